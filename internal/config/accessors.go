package config

import (
	"path/filepath"
	"time"
)

// LogDirectory returns the directory log files are written to.
func (c *Config) LogDirectory() string { return c.Paths.LogDir }

// LogLevel returns the configured log level.
func (c *Config) LogLevel() string { return c.Logging.Level }

// LogFormat returns the configured log output format.
func (c *Config) LogFormat() string { return c.Logging.Format }

// DatabasePath returns the path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "sitelog.db")
}

// SessionTTL returns how long an idle capture session is retained.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMinutes) * time.Minute
}

// SessionSweepInterval returns how often expired sessions are collected.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.Sessions.SweepInterval) * time.Second
}

// NotionConfigured reports whether the Notion destination has credentials.
func (c *Config) NotionConfigured() bool {
	return c.Notion.Token != "" && c.Notion.DatabaseID != ""
}

// DriveConfigured reports whether the Drive destination has credentials.
func (c *Config) DriveConfigured() bool {
	return c.Drive.AccessToken != "" && c.Drive.FolderID != ""
}
