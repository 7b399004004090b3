package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGenerator(); err != nil {
		return err
	}
	if err := c.validateNarration(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGenerator() error {
	switch c.Generator.Backend {
	case "gemini", "openrouter", "mock":
	default:
		return fmt.Errorf("generator.backend must be one of gemini, openrouter, mock (got %q)", c.Generator.Backend)
	}
	if c.Generator.Backend != "mock" && c.Generator.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lectern/config.toml"
		}
		envHint := "GEMINI_API_KEY"
		if c.Generator.Backend == "openrouter" {
			envHint = "OPENROUTER_API_KEY"
		}
		return fmt.Errorf("generator.api_key is required. Set %s env var or edit %s (create with 'lectern config init')", envHint, defaultPath)
	}
	if c.Generator.Backend == "openrouter" && c.Generator.BaseURL == "" {
		return errors.New("generator.base_url must be set for the openrouter backend")
	}
	if c.Generator.TimeoutSeconds <= 0 {
		return errors.New("generator.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNarration() error {
	if _, err := language.Parse(c.Narration.Language); err != nil {
		return fmt.Errorf("narration.language %q is not a valid BCP 47 tag: %w", c.Narration.Language, err)
	}
	if c.Narration.MaxSpeechWords <= 0 {
		return errors.New("narration.max_speech_words must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.GenerationTimeoutSeconds <= 0 {
		return errors.New("workflow.generation_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if !c.Watch.Enabled {
		return nil
	}
	if c.Paths.InboxDir == "" {
		return errors.New("paths.inbox_dir must be set when watch.enabled is true")
	}
	if c.Watch.SettleSeconds <= 0 {
		return errors.New("watch.settle_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}
