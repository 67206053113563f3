package config

const (
	defaultWorkspaceDir       = "~/.local/share/darkroom/workspace"
	defaultLogDir             = "~/.local/share/darkroom/logs"
	defaultLogRetentionDays   = 60
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultVisionBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	defaultVisionModel        = "gemini-2.0-flash"
	defaultVisionTimeout      = 60
	defaultMaxHintChars       = 500
	defaultEmbedderBinary     = "exiftool"
	defaultEmbedderTimeout    = 30
	defaultAgencyHost         = "ftp.shutterstock.com"
	defaultAgencyPort         = 21
	defaultAgencyTimeout      = 60
	defaultMaxKeywords        = 50
	defaultAnalysisWorkers    = 3
	defaultDeliveryWorkers    = 2
	defaultAnalysisRetryLimit = 3
	defaultTransferRetryLimit = 3
	defaultRetryBaseDelay     = 1
	defaultRetryMaxDelay      = 30
	defaultNotifyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
		},
		Vision: Vision{
			BaseURL:        defaultVisionBaseURL,
			Model:          defaultVisionModel,
			TimeoutSeconds: defaultVisionTimeout,
			MaxHintChars:   defaultMaxHintChars,
		},
		Embedder: Embedder{
			Binary:         defaultEmbedderBinary,
			TimeoutSeconds: defaultEmbedderTimeout,
		},
		Agency: Agency{
			Host:           defaultAgencyHost,
			Port:           defaultAgencyPort,
			TimeoutSeconds: defaultAgencyTimeout,
		},
		Review: Review{
			RequireTitle:       true,
			RequireDescription: true,
			MaxKeywords:        defaultMaxKeywords,
		},
		Workflow: Workflow{
			AnalysisWorkers:    defaultAnalysisWorkers,
			DeliveryWorkers:    defaultDeliveryWorkers,
			AnalysisRetryLimit: defaultAnalysisRetryLimit,
			TransferRetryLimit: defaultTransferRetryLimit,
			RetryBaseDelay:     defaultRetryBaseDelay,
			RetryMaxDelay:      defaultRetryMaxDelay,
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Batches:        true,
			Review:         true,
			Delivery:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
