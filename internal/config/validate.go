package config

import (
	"errors"
	"fmt"
	"strings"
)

var validScopeStrictness = map[string]struct{}{
	"strict":  {},
	"lenient": {},
}

var validLogFormats = map[string]struct{}{
	"console": {},
	"json":    {},
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate checks the configuration for values that would break the daemon at runtime.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Transcriber.BaseURL == "" {
		problems = append(problems, "transcriber.base_url must not be empty")
	}
	if c.Transcriber.Model == "" {
		problems = append(problems, "transcriber.model must not be empty")
	}
	if c.LLM.BaseURL == "" {
		problems = append(problems, "llm.base_url must not be empty")
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model must not be empty")
	}
	if _, ok := validScopeStrictness[c.Structuring.ScopeStrictness]; !ok {
		problems = append(problems, fmt.Sprintf("structuring.scope_strictness: unsupported value %q", c.Structuring.ScopeStrictness))
	}
	if _, ok := validLogFormats[c.Logging.Format]; !ok {
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}
	if _, ok := validLogLevels[c.Logging.Level]; !ok {
		problems = append(problems, fmt.Sprintf("logging.level: unsupported value %q", c.Logging.Level))
	}
	if c.Notion.Token != "" && c.Notion.DatabaseID == "" {
		problems = append(problems, "notion.database_id is required when notion.token is set")
	}
	if c.Drive.AccessToken != "" && c.Drive.FolderID == "" {
		problems = append(problems, "drive.folder_id is required when drive.access_token is set")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
