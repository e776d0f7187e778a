package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Transcriber.Model != defaultTranscriberModel {
		t.Fatalf("transcriber model = %q, want default", cfg.Transcriber.Model)
	}
	if cfg.Structuring.ScopeStrictness != "strict" {
		t.Fatalf("scope strictness = %q, want strict", cfg.Structuring.ScopeStrictness)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[transcriber]
base_url = "https://stt.example/v1/"
api_key = "  key  "
model = "whisper-1"

[structuring]
scope_strictness = "Lenient"

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Transcriber.BaseURL != "https://stt.example/v1" {
		t.Fatalf("base url not trimmed: %q", cfg.Transcriber.BaseURL)
	}
	if cfg.Transcriber.APIKey != "key" {
		t.Fatalf("api key not trimmed: %q", cfg.Transcriber.APIKey)
	}
	if cfg.Structuring.ScopeStrictness != "lenient" {
		t.Fatalf("scope strictness = %q, want lenient", cfg.Structuring.ScopeStrictness)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format = %q, want json", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadScopeStrictness(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Structuring.ScopeStrictness = "paranoid"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "scope_strictness") {
		t.Fatalf("error does not mention scope_strictness: %v", err)
	}
}

func TestValidateRequiresNotionDatabaseWithToken(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Notion.Token = "secret"
	cfg.Notion.DatabaseID = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for notion token without database id")
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/sitelog-test")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, "sitelog-test")
	if got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Paths.APIBind != defaultAPIBind {
		t.Fatalf("api bind = %q, want %q", cfg.Paths.APIBind, defaultAPIBind)
	}
}
