package config

const (
	defaultDataDir                  = "~/.local/share/lectern"
	defaultLogDir                   = "~/.local/share/lectern/logs"
	defaultExportDir                = "~/lectern/exports"
	defaultInboxDir                 = "~/lectern/inbox"
	defaultAPIBind                  = "127.0.0.1:7519"
	defaultGeneratorBackend         = "gemini"
	defaultGeneratorModel           = "gemini-2.5-flash"
	defaultOpenRouterBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultGeneratorReferer         = "https://github.com/lectern-project/lectern"
	defaultGeneratorTitle           = "Lectern Scene Generator"
	defaultGeneratorTimeoutSeconds  = 300
	defaultGeneratorMaxRetries      = 2
	defaultNarrationLanguage        = "en-US"
	defaultNarrationMaxSpeechWords  = 120
	defaultWorkflowHeartbeat        = 15
	defaultWorkflowHeartbeatTimeout = 120
	defaultGenerationTimeoutSeconds = 600
	defaultWatchSettleSeconds       = 3
	defaultNotifyRequestTimeout     = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
			InboxDir:  defaultInboxDir,
			APIBind:   defaultAPIBind,
		},
		Generator: Generator{
			Backend:        defaultGeneratorBackend,
			Model:          defaultGeneratorModel,
			Referer:        defaultGeneratorReferer,
			Title:          defaultGeneratorTitle,
			TimeoutSeconds: defaultGeneratorTimeoutSeconds,
			MaxRetries:     defaultGeneratorMaxRetries,
		},
		Narration: Narration{
			Language:       defaultNarrationLanguage,
			MaxSpeechWords: defaultNarrationMaxSpeechWords,
		},
		Workflow: Workflow{
			HeartbeatInterval:        defaultWorkflowHeartbeat,
			HeartbeatTimeout:         defaultWorkflowHeartbeatTimeout,
			GenerationTimeoutSeconds: defaultGenerationTimeoutSeconds,
		},
		Watch: Watch{
			SettleSeconds: defaultWatchSettleSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Narration:      true,
			Annotation:     true,
			Export:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
