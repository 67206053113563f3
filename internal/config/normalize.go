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
	c.normalizeVision()
	c.normalizeEmbedder()
	c.normalizeAgency()
	c.normalizeReview()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeVision() {
	c.Vision.APIKey = strings.TrimSpace(c.Vision.APIKey)
	if c.Vision.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Vision.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("DARKROOM_VISION_API_KEY"); ok {
			c.Vision.APIKey = strings.TrimSpace(value)
		}
	}
	c.Vision.BaseURL = strings.TrimSpace(c.Vision.BaseURL)
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = defaultVisionBaseURL
	}
	c.Vision.BaseURL = strings.TrimRight(c.Vision.BaseURL, "/")
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	if c.Vision.Model == "" {
		c.Vision.Model = defaultVisionModel
	}
	if c.Vision.TimeoutSeconds <= 0 {
		c.Vision.TimeoutSeconds = defaultVisionTimeout
	}
	if c.Vision.MaxHintChars <= 0 {
		c.Vision.MaxHintChars = defaultMaxHintChars
	}
}

func (c *Config) normalizeEmbedder() {
	c.Embedder.Binary = strings.TrimSpace(c.Embedder.Binary)
	if c.Embedder.Binary == "" {
		c.Embedder.Binary = defaultEmbedderBinary
	}
	if c.Embedder.TimeoutSeconds <= 0 {
		c.Embedder.TimeoutSeconds = defaultEmbedderTimeout
	}
}

func (c *Config) normalizeAgency() {
	c.Agency.Host = strings.TrimSpace(c.Agency.Host)
	if c.Agency.Host == "" {
		c.Agency.Host = defaultAgencyHost
	}
	if c.Agency.Port <= 0 {
		c.Agency.Port = defaultAgencyPort
	}
	c.Agency.Username = strings.TrimSpace(c.Agency.Username)
	c.Agency.Password = strings.TrimSpace(c.Agency.Password)
	if c.Agency.Password == "" {
		if value, ok := os.LookupEnv("DARKROOM_AGENCY_PASSWORD"); ok {
			c.Agency.Password = strings.TrimSpace(value)
		}
	}
	c.Agency.RemoteDir = strings.Trim(strings.TrimSpace(c.Agency.RemoteDir), "/")
	if c.Agency.TimeoutSeconds <= 0 {
		c.Agency.TimeoutSeconds = defaultAgencyTimeout
	}
}

func (c *Config) normalizeReview() {
	if c.Review.MaxKeywords <= 0 {
		c.Review.MaxKeywords = defaultMaxKeywords
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.AnalysisWorkers <= 0 {
		c.Workflow.AnalysisWorkers = defaultAnalysisWorkers
	}
	if c.Workflow.DeliveryWorkers <= 0 {
		c.Workflow.DeliveryWorkers = defaultDeliveryWorkers
	}
	if c.Workflow.AnalysisRetryLimit < 0 {
		c.Workflow.AnalysisRetryLimit = defaultAnalysisRetryLimit
	}
	if c.Workflow.TransferRetryLimit < 0 {
		c.Workflow.TransferRetryLimit = defaultTransferRetryLimit
	}
	if c.Workflow.RetryBaseDelay <= 0 {
		c.Workflow.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.Workflow.RetryMaxDelay <= 0 {
		c.Workflow.RetryMaxDelay = defaultRetryMaxDelay
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
