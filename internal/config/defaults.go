package config

const (
	defaultDataDir              = "~/.local/share/sitelog"
	defaultLogDir               = "~/.local/share/sitelog/logs"
	defaultAPIBind              = "127.0.0.1:7319"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultTranscriberBaseURL   = "https://api.openai.com/v1"
	defaultTranscriberModel     = "whisper-1"
	defaultTranscriberTimeout   = 120
	defaultLLMBaseURL           = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel             = "google/gemini-3-flash-preview"
	defaultLLMReferer           = "https://github.com/sitelog/sitelog"
	defaultLLMTitle             = "Sitelog Structuring"
	defaultLLMTimeoutSeconds    = 60
	defaultScopeStrictness      = "strict"
	defaultNotionBaseURL        = "https://api.notion.com/v1"
	defaultDriveUploadURL       = "https://www.googleapis.com/upload/drive/v3/files"
	defaultNotifyRequestTimeout = 10
	defaultSessionTTLMinutes    = 60
	defaultSessionSweepInterval = 300
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Transcriber: Transcriber{
			BaseURL:        defaultTranscriberBaseURL,
			Model:          defaultTranscriberModel,
			TimeoutSeconds: defaultTranscriberTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Structuring: Structuring{
			ScopeStrictness: defaultScopeStrictness,
		},
		Notion: Notion{
			BaseURL: defaultNotionBaseURL,
		},
		Drive: Drive{
			UploadURL: defaultDriveUploadURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Capture:        true,
			Submission:     true,
			Errors:         true,
		},
		Sessions: Sessions{
			TTLMinutes:    defaultSessionTTLMinutes,
			SweepInterval: defaultSessionSweepInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
