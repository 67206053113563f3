package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/review"
	"darkroom/internal/services"
	"darkroom/internal/services/vision"
	"darkroom/internal/stage"
)

// Client is the vision behaviour the analyzer needs.
type Client interface {
	Analyze(ctx context.Context, req vision.Request) (vision.Result, error)
	HealthCheck(ctx context.Context) error
}

// Analyzer generates metadata for one staged image and hangs the result on
// the record for operator review.
type Analyzer struct {
	store  *catalog.Store
	cfg    *config.Config
	logger *slog.Logger
	client Client
	policy review.Policy
}

// NewAnalyzer constructs the analysis stage handler using the configured
// vision endpoint.
func NewAnalyzer(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Analyzer {
	client := vision.NewClient(vision.Config{
		APIKey:         cfg.Vision.APIKey,
		BaseURL:        cfg.Vision.BaseURL,
		Model:          cfg.Vision.Model,
		TimeoutSeconds: cfg.Vision.TimeoutSeconds,
	})
	return NewAnalyzerWithClient(cfg, store, logger, client)
}

// NewAnalyzerWithClient allows injecting the vision client (used in tests).
func NewAnalyzerWithClient(cfg *config.Config, store *catalog.Store, logger *slog.Logger, client Client) *Analyzer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "analyzer"))
	}
	return &Analyzer{
		store:  store,
		cfg:    cfg,
		logger: stageLogger,
		client: client,
		policy: review.FromConfig(cfg),
	}
}

func (a *Analyzer) Prepare(ctx context.Context, record *catalog.Record) error {
	logger := logging.WithContext(ctx, a.logger)
	if strings.TrimSpace(record.SourcePath) == "" {
		return services.Wrap(services.ErrValidation, catalog.StageAnalysis, "validate inputs",
			"record has no staged file; resubmit the image", nil)
	}
	if _, err := os.Stat(record.SourcePath); err != nil {
		return services.Wrap(services.ErrValidation, catalog.StageAnalysis, "validate inputs",
			fmt.Sprintf("staged file missing at %s", record.SourcePath), err)
	}
	logger.Info("starting analysis",
		logging.String("original_name", record.OriginalName),
		logging.Bool("hint_present", strings.TrimSpace(record.Hint) != ""),
	)
	return nil
}

func (a *Analyzer) Execute(ctx context.Context, record *catalog.Record) error {
	logger := logging.WithContext(ctx, a.logger)

	data, err := os.ReadFile(record.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrValidation, catalog.StageAnalysis, "read staged file",
			fmt.Sprintf("cannot read %s", record.SourcePath), err)
	}

	result, err := a.client.Analyze(ctx, vision.Request{
		ImageData: data,
		MIMEType:  MIMETypeForPath(record.SourcePath),
		Hint:      record.Hint,
	})
	if err != nil {
		return err
	}

	fields := a.policy.Normalize(catalog.MetadataFields{
		Title:       result.Title,
		Description: result.Description,
		Keywords:    result.Keywords,
		Category:    result.Category,
	})
	record.Fields = &fields

	logger.Info("analysis complete",
		logging.String("title", fields.Title),
		logging.Int("keywords", len(fields.Keywords)),
		logging.String("category", fields.Category),
	)
	return nil
}

func (a *Analyzer) HealthCheck(ctx context.Context) stage.Health {
	const name = "analyzer"
	if a.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(a.cfg.Vision.APIKey) == "" {
		return stage.Unhealthy(name, "vision api key missing")
	}
	if a.client == nil {
		return stage.Unhealthy(name, "vision client unavailable")
	}
	return stage.Healthy(name)
}

// MIMETypeForPath maps an image extension onto the MIME type the vision API
// expects, defaulting to JPEG.
func MIMETypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
