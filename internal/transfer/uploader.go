package transfer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"log/slog"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/services/agency"
	"darkroom/internal/stage"
)

// Client is the agency behaviour the uploader needs.
type Client interface {
	Upload(ctx context.Context, localPath, remoteName string) error
}

// Uploader delivers embedded files to the agency and stamps UploadedAt.
type Uploader struct {
	store  *catalog.Store
	cfg    *config.Config
	logger *slog.Logger
	client Client
}

// NewUploader constructs the transfer stage handler using the configured
// agency endpoint.
func NewUploader(cfg *config.Config, store *catalog.Store, logger *slog.Logger) (*Uploader, error) {
	client, err := agency.NewClient(agency.Config{
		Host:           cfg.Agency.Host,
		Port:           cfg.Agency.Port,
		Username:       cfg.Agency.Username,
		Password:       cfg.Agency.Password,
		RemoteDir:      cfg.Agency.RemoteDir,
		TimeoutSeconds: cfg.Agency.TimeoutSeconds,
		PoolSize:       cfg.Workflow.DeliveryWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("uploader: %w", err)
	}
	return NewUploaderWithClient(cfg, store, logger, client), nil
}

// NewUploaderWithClient allows injecting the agency client (used in tests).
func NewUploaderWithClient(cfg *config.Config, store *catalog.Store, logger *slog.Logger, client Client) *Uploader {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "uploader"))
	}
	return &Uploader{store: store, cfg: cfg, logger: stageLogger, client: client}
}

func (u *Uploader) Prepare(ctx context.Context, record *catalog.Record) error {
	logger := logging.WithContext(ctx, u.logger)
	if strings.TrimSpace(record.OriginalName) == "" {
		return services.Wrap(services.ErrValidation, catalog.StageTransfer, "validate inputs",
			"record has no original name to upload under", nil)
	}
	if _, err := os.Stat(record.SourcePath); err != nil {
		return services.Wrap(services.ErrValidation, catalog.StageTransfer, "validate inputs",
			fmt.Sprintf("staged file missing at %s", record.SourcePath), err)
	}
	logger.Info("starting transfer", logging.String("original_name", record.OriginalName))
	return nil
}

func (u *Uploader) Execute(ctx context.Context, record *catalog.Record) error {
	logger := logging.WithContext(ctx, u.logger)
	if err := u.client.Upload(ctx, record.SourcePath, record.OriginalName); err != nil {
		return err
	}
	now := time.Now().UTC()
	record.UploadedAt = &now
	logger.Info("transfer complete", logging.String("original_name", record.OriginalName))
	return nil
}

func (u *Uploader) HealthCheck(ctx context.Context) stage.Health {
	const name = "uploader"
	if u.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(u.cfg.Agency.Host) == "" {
		return stage.Unhealthy(name, "agency host not configured")
	}
	if strings.TrimSpace(u.cfg.Agency.Username) == "" {
		return stage.Unhealthy(name, "agency credentials not configured")
	}
	if u.client == nil {
		return stage.Unhealthy(name, "agency client unavailable")
	}
	return stage.Healthy(name)
}
