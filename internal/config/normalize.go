package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeGenerator()
	c.normalizeNarration()
	c.normalizeWorkflow()
	c.normalizeWatch()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) != "" {
		if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
			return fmt.Errorf("paths.inbox_dir: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeGenerator() {
	c.Generator.Backend = strings.ToLower(strings.TrimSpace(c.Generator.Backend))
	if c.Generator.Backend == "" {
		c.Generator.Backend = defaultGeneratorBackend
	}
	c.Generator.Model = strings.TrimSpace(c.Generator.Model)
	if c.Generator.Model == "" {
		c.Generator.Model = defaultGeneratorModel
	}
	c.Generator.APIKey = strings.TrimSpace(c.Generator.APIKey)
	if c.Generator.APIKey == "" {
		switch c.Generator.Backend {
		case "gemini":
			if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
				c.Generator.APIKey = strings.TrimSpace(value)
			} else if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
				c.Generator.APIKey = strings.TrimSpace(value)
			}
		case "openrouter":
			if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
				c.Generator.APIKey = strings.TrimSpace(value)
			}
		}
	}
	c.Generator.BaseURL = strings.TrimSpace(c.Generator.BaseURL)
	if c.Generator.BaseURL == "" && c.Generator.Backend == "openrouter" {
		c.Generator.BaseURL = defaultOpenRouterBaseURL
	}
	c.Generator.Referer = strings.TrimSpace(c.Generator.Referer)
	if c.Generator.Referer == "" {
		c.Generator.Referer = defaultGeneratorReferer
	}
	c.Generator.Title = strings.TrimSpace(c.Generator.Title)
	if c.Generator.Title == "" {
		c.Generator.Title = defaultGeneratorTitle
	}
	if c.Generator.TimeoutSeconds <= 0 {
		c.Generator.TimeoutSeconds = defaultGeneratorTimeoutSeconds
	}
	if c.Generator.MaxRetries < 0 {
		c.Generator.MaxRetries = defaultGeneratorMaxRetries
	}
}

func (c *Config) normalizeNarration() {
	c.Narration.Language = strings.TrimSpace(c.Narration.Language)
	if c.Narration.Language == "" {
		c.Narration.Language = defaultNarrationLanguage
	}
	if c.Narration.MaxSpeechWords <= 0 {
		c.Narration.MaxSpeechWords = defaultNarrationMaxSpeechWords
	}
	c.Narration.Instructions = strings.TrimSpace(c.Narration.Instructions)
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultWorkflowHeartbeat
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		c.Workflow.HeartbeatTimeout = defaultWorkflowHeartbeatTimeout
	}
	if c.Workflow.GenerationTimeoutSeconds <= 0 {
		c.Workflow.GenerationTimeoutSeconds = defaultGenerationTimeoutSeconds
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultWatchSettleSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("LECTERN_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
