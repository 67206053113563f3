package embed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"log/slog"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/services/exiftool"
	"darkroom/internal/stage"
)

// Client is the embedder behaviour this stage needs.
type Client interface {
	Embed(ctx context.Context, path string, meta exiftool.Metadata) error
}

// Embedder writes the reviewed metadata into the staged file. The write is
// the one destructive step in the pipeline, so everything is validated before
// the tool runs and the underlying client only replaces the file after a
// confirmed write.
type Embedder struct {
	store  *catalog.Store
	cfg    *config.Config
	logger *slog.Logger
	client Client
}

// NewEmbedder constructs the embed stage handler using the configured
// exiftool binary.
func NewEmbedder(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Embedder, error) {
	client, err := exiftool.New(cfg.ExiftoolBinary(), cfg.Embedder.TimeoutSeconds)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	return NewEmbedderWithClient(cfg, store, logger, client), nil
}

// NewEmbedderWithClient allows injecting the exiftool client (used in tests).
func NewEmbedderWithClient(cfg *config.Config, store *catalog.Store, logger *slog.Logger, client Client) *Embedder {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "embedder"))
	}
	return &Embedder{store: store, cfg: cfg, logger: stageLogger, client: client}
}

func (e *Embedder) Prepare(ctx context.Context, record *catalog.Record) error {
	logger := logging.WithContext(ctx, e.logger)
	if record.Fields == nil {
		return services.Wrap(services.ErrValidation, catalog.StageEmbed, "validate inputs",
			"record has no reviewed metadata; reanalyze before finalizing", nil)
	}
	if _, err := os.Stat(record.SourcePath); err != nil {
		return services.Wrap(services.ErrValidation, catalog.StageEmbed, "validate inputs",
			fmt.Sprintf("staged file missing at %s", record.SourcePath), err)
	}
	logger.Info("starting embed",
		logging.String("original_name", record.OriginalName),
		logging.String("title", record.Fields.Title),
	)
	return nil
}

func (e *Embedder) Execute(ctx context.Context, record *catalog.Record) error {
	logger := logging.WithContext(ctx, e.logger)
	fields := record.Fields
	if fields == nil {
		return services.Wrap(services.ErrValidation, catalog.StageEmbed, "validate inputs",
			"record has no reviewed metadata; reanalyze before finalizing", nil)
	}
	meta := exiftool.Metadata{
		Title:       fields.Title,
		Description: fields.Description,
		Keywords:    fields.Keywords,
		Category:    fields.Category,
	}
	if err := e.client.Embed(ctx, record.SourcePath, meta); err != nil {
		return err
	}
	logger.Info("embed complete",
		logging.String("original_name", record.OriginalName),
		logging.Int("keywords", len(meta.Keywords)),
	)
	return nil
}

func (e *Embedder) HealthCheck(ctx context.Context) stage.Health {
	const name = "embedder"
	if e.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(e.cfg.ExiftoolBinary()) == "" {
		return stage.Unhealthy(name, "exiftool binary not configured")
	}
	if e.client == nil {
		return stage.Unhealthy(name, "exiftool client unavailable")
	}
	return stage.Healthy(name)
}
