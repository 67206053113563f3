package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/notifications"
)

// Manager coordinates catalog processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *catalog.Store
	logger       *slog.Logger
	notifier     notifications.Service
	pollInterval time.Duration
	errorRetry   time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
	sleep        sleepFunc

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu         sync.RWMutex
	running    bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	lastRecord *catalog.Record

	batchMu sync.Mutex
	batches map[string]*batchProgress
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	sleep sleepFunc
}

// WithRetrySleep replaces the backoff sleep between retry attempts. Tests use
// it to make retries instantaneous.
func WithRetrySleep(sleep func(ctx context.Context, d time.Duration) error) ManagerOption {
	return func(o *managerOptions) {
		o.sleep = sleep
	}
}

// NewManager constructs a new pipeline manager.
func NewManager(cfg *config.Config, store *catalog.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a pipeline manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *catalog.Store, logger *slog.Logger, notifier notifications.Service, opts ...ManagerOption) *Manager {
	options := &managerOptions{sleep: sleepWithContext}
	for _, opt := range opts {
		opt(options)
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetry:   time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		retryBase:    time.Duration(cfg.Workflow.RetryBaseDelay) * time.Second,
		retryMax:     time.Duration(cfg.Workflow.RetryMaxDelay) * time.Second,
		sleep:        options.sleep,
		lanes:        make(map[laneKind]*laneState),
		batches:      make(map[string]*batchProgress),
	}
}
