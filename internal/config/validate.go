package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateVision(); err != nil {
		return err
	}
	if err := c.validateAgency(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateReview(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVision() error {
	if c.Vision.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/darkroom/config.toml"
		}
		return fmt.Errorf("vision.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'darkroom config init')", defaultPath)
	}
	if c.Vision.MaxHintChars <= 0 {
		return errors.New("vision.max_hint_chars must be positive")
	}
	return nil
}

func (c *Config) validateAgency() error {
	if strings.TrimSpace(c.Agency.Host) == "" {
		return errors.New("agency.host must be set")
	}
	if c.Agency.Port <= 0 || c.Agency.Port > 65535 {
		return errors.New("agency.port must be a valid TCP port")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"vision.timeout_seconds":        c.Vision.TimeoutSeconds,
		"embedder.timeout_seconds":      c.Embedder.TimeoutSeconds,
		"agency.timeout_seconds":        c.Agency.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.analysis_workers":     c.Workflow.AnalysisWorkers,
		"workflow.delivery_workers":     c.Workflow.DeliveryWorkers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.retry_base_delay":     c.Workflow.RetryBaseDelay,
	}); err != nil {
		return err
	}
	if c.Workflow.RetryMaxDelay < c.Workflow.RetryBaseDelay {
		return errors.New("workflow.retry_max_delay must be >= workflow.retry_base_delay")
	}
	if c.Workflow.AnalysisRetryLimit < 0 {
		return errors.New("workflow.analysis_retry_limit must be >= 0")
	}
	if c.Workflow.TransferRetryLimit < 0 {
		return errors.New("workflow.transfer_retry_limit must be >= 0")
	}
	return nil
}

func (c *Config) validateReview() error {
	if c.Review.MaxKeywords < 1 {
		return errors.New("review.max_keywords must be >= 1")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
