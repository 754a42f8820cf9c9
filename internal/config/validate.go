package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.Constraints.Validate(); err != nil {
		return fmt.Errorf("constraints: %w", err)
	}
	if err := c.FixPolicy().Validate(); err != nil {
		return fmt.Errorf("repair: %w", err)
	}
	if err := c.validateGender(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateGender() error {
	if c.Gender.AmbiguityThreshold < 0 || c.Gender.AmbiguityThreshold > 1 {
		return errors.New("gender.ambiguity_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	switch c.Translation.Provider {
	case ProviderMock:
	case ProviderLLM:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = "~/.config/subconform/config.toml"
			}
			return fmt.Errorf("llm.api_key is required when translation.provider is %q. Set SUBCONFORM_LLM_API_KEY or edit %s (create with 'subconform config init')", ProviderLLM, defaultPath)
		}
	default:
		return fmt.Errorf("translation.provider must be %q or %q, got %q", ProviderMock, ProviderLLM, c.Translation.Provider)
	}
	if c.Translation.BatchSize <= 0 {
		return errors.New("translation.batch_size must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.workers":    c.Workflow.Workers,
		"llm.timeout_seconds": c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
