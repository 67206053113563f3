package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/deps"
	"darkroom/internal/intake"
	"darkroom/internal/logging"
	"darkroom/internal/notifications"
	"darkroom/internal/pipeline"
	"darkroom/internal/preflight"
	"darkroom/internal/review"
)

const lockFileName = "darkroomd.lock"

// Daemon coordinates the catalog, the pipeline manager, and the operator
// facing operations behind the control socket. It enforces single-instance
// execution with a file lock in the log directory.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	pipeline *pipeline.Manager
	intake   *intake.Service
	notifier notifications.Service
	policy   review.Policy

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	CatalogPath  string
	LockFilePath string
	Pipeline     pipeline.StatusSummary
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies. The notifier should
// be the same instance handed to the pipeline manager so batch events and
// daemon events share one channel; a nil notifier falls back to the
// config-derived service.
func New(cfg *config.Config, store *catalog.Store, logger *slog.Logger, mgr *pipeline.Manager, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || mgr == nil {
		return nil, errors.New("daemon requires config, store, logger, and pipeline manager")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, lockFileName)
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pipeline: mgr,
		intake:   intake.NewService(cfg, store, logger),
		notifier: notifier,
		policy:   review.FromConfig(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the pipeline manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another darkroom daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.pipeline.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start pipeline: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("darkroom daemon started", logging.String("lock", d.lockPath))
	go d.logPreflight(d.ctx)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pipeline.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("darkroom daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogPath reports the log file served by the LogTail IPC call.
func (d *Daemon) LogPath() string {
	return logging.FilePath(d.cfg)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		CatalogPath:  catalog.DatabasePath(d.cfg),
		LockFilePath: d.lockPath,
		Pipeline:     d.pipeline.Status(ctx),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
}

// logPreflight records startup check outcomes without blocking Start; a
// vision endpoint that is down should surface in the log, not stall the
// control socket.
func (d *Daemon) logPreflight(ctx context.Context) {
	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			d.logger.Info("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
}
