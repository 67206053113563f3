package intake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"log/slog"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// imageExtensions lists the file types the pipeline accepts for submission.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// Request describes one submission. An empty BatchID creates a new batch;
// otherwise records join the existing one. Hints are keyed by the source path
// exactly as supplied in Sources.
type Request struct {
	BatchID string
	Label   string
	Sources []string
	Hints   map[string]string
}

// Service stages submitted images into the batch workspace and creates their
// records. Validation is all-or-nothing: every source is checked before the
// first byte is copied, so a rejected submission leaves no partial batch
// behind.
type Service struct {
	cfg    *config.Config
	store  *catalog.Store
	logger *slog.Logger
}

// NewService constructs the intake service.
func NewService(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Service {
	intakeLogger := logger
	if intakeLogger != nil {
		intakeLogger = intakeLogger.With(logging.String(logging.FieldComponent, "intake"))
	}
	return &Service{cfg: cfg, store: store, logger: intakeLogger}
}

// Submit validates, stages, and enqueues every source in the request. The
// returned records are in source order with status pending.
func (s *Service) Submit(ctx context.Context, req Request) (*catalog.Batch, []*catalog.Record, error) {
	if len(req.Sources) == 0 {
		return nil, nil, services.Wrap(services.ErrValidation, "intake", "validate submission",
			"at least one source file is required", nil)
	}

	resolved := make([]string, 0, len(req.Sources))
	for _, source := range req.Sources {
		absPath, err := s.validateSource(source, req.Hints[source])
		if err != nil {
			return nil, nil, err
		}
		resolved = append(resolved, absPath)
	}

	batch, err := s.resolveBatch(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	batchDir := s.cfg.BatchDir(batch.ID)
	if err := os.MkdirAll(batchDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create batch workspace: %w", err)
	}

	records := make([]*catalog.Record, 0, len(resolved))
	for i, absPath := range resolved {
		originalName := filepath.Base(absPath)
		stagedPath, err := stageFile(absPath, batchDir)
		if err != nil {
			return nil, records, fmt.Errorf("stage %s: %w", originalName, err)
		}
		record, err := s.store.NewRecord(ctx, batch.ID, stagedPath, originalName, strings.TrimSpace(req.Hints[req.Sources[i]]))
		if err != nil {
			return nil, records, fmt.Errorf("enqueue %s: %w", originalName, err)
		}
		records = append(records, record)
	}

	if s.logger != nil {
		s.logger.Info("batch submitted",
			logging.String(logging.FieldBatchID, batch.ID),
			logging.Int("records", len(records)),
		)
	}
	return batch, records, nil
}

func (s *Service) validateSource(source, hint string) (string, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return "", services.Wrap(services.ErrValidation, "intake", "validate submission",
			"source path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "intake", "validate submission",
			fmt.Sprintf("resolve source path %q", trimmed), err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "intake", "validate submission",
			fmt.Sprintf("source file %s not readable", absPath), err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "intake", "validate submission",
			fmt.Sprintf("source path %s is a directory", absPath), nil)
	}
	ext := strings.ToLower(filepath.Ext(info.Name()))
	if _, ok := imageExtensions[ext]; !ok {
		return "", services.Wrap(services.ErrValidation, "intake", "validate submission",
			fmt.Sprintf("unsupported file extension %q", ext), nil)
	}
	if max := s.cfg.Vision.MaxHintChars; max > 0 && utf8.RuneCountInString(hint) > max {
		return "", services.Wrap(services.ErrValidation, "intake", "validate submission",
			fmt.Sprintf("hint for %s exceeds %d characters", filepath.Base(absPath), max), nil)
	}
	return absPath, nil
}

func (s *Service) resolveBatch(ctx context.Context, req Request) (*catalog.Batch, error) {
	batchID := strings.TrimSpace(req.BatchID)
	if batchID == "" {
		batch, err := s.store.NewBatch(ctx, strings.TrimSpace(req.Label))
		if err != nil {
			return nil, fmt.Errorf("create batch: %w", err)
		}
		return batch, nil
	}
	batch, err := s.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("look up batch: %w", err)
	}
	if batch == nil {
		return nil, services.Wrap(services.ErrNotFound, "intake", "validate submission",
			fmt.Sprintf("batch %s does not exist", batchID), nil)
	}
	if batch.Cancelled() {
		return nil, services.Wrap(services.ErrValidation, "intake", "validate submission",
			fmt.Sprintf("batch %s is cancelled", batchID), nil)
	}
	return batch, nil
}

// stageFile copies src into batchDir, uniquifying the name when a sibling
// submission already staged the same basename. The exclusive create is the
// uniqueness check, so concurrent submissions of the same file cannot race.
func stageFile(src, batchDir string) (string, error) {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	target := filepath.Join(batchDir, base)
	for n := 1; ; n++ {
		err := fileutil.CopyExclusive(src, target, 0o644)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("stage copy: %w", err)
		}
		target = filepath.Join(batchDir, fmt.Sprintf("%s-%d%s", stem, n, ext))
	}
}

// RemoveBatchDir deletes a batch's staging directory. Used when a batch is
// discarded.
func RemoveBatchDir(cfg *config.Config, batchID string) error {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil
	}
	dir := cfg.BatchDir(batchID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove batch workspace: %w", err)
	}
	return nil
}
