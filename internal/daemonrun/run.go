// Package daemonrun hosts the darkroom daemon process: logging setup, the
// catalog store, the pipeline manager with its stage handlers, and the IPC
// server. Both the darkroomd binary and the CLI's `daemon run` command call
// Run so the daemon behaves identically however it is launched.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"darkroom/internal/analysis"
	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/daemon"
	"darkroom/internal/embed"
	"darkroom/internal/ipc"
	"darkroom/internal/logging"
	"darkroom/internal/notifications"
	"darkroom/internal/pipeline"
	"darkroom/internal/transfer"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string
	// SocketPath overrides the control socket location when non-empty.
	SocketPath string
	// Development switches the logger into development output.
	Development bool
}

// SocketPath returns the control socket location for the given config.
func SocketPath(cfg *config.Config) string {
	if cfg == nil {
		return filepath.Join("", "darkroom.sock")
	}
	return filepath.Join(cfg.Paths.LogDir, "darkroom.sock")
}

// PIDFilePath returns the daemon pid file location for the given config.
func PIDFilePath(cfg *config.Config) string {
	if cfg == nil {
		return filepath.Join("", "darkroom.pid")
	}
	return filepath.Join(cfg.Paths.LogDir, "darkroom.pid")
}

// Run starts the darkroom daemon runtime loop and blocks until the context
// is cancelled or a SIGINT/SIGTERM arrives. Each run writes a timestamped
// log file and repoints darkroom.log at it.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("darkroom-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logStartupSnapshot(logger, cfg, runID)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update darkroom.log link: %v\n", err)
	}
	logging.PruneOldLogs(logger, cfg.Logging.RetentionDays, cfg.Paths.LogDir, "darkroom-*.log", logPath)
	pidPath := PIDFilePath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	manager := pipeline.NewManagerWithNotifier(cfg, store, logger, notifier)
	if err := configureStages(manager, cfg, store, logger); err != nil {
		return fmt.Errorf("configure stages: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, manager, notifier)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	socketPath := strings.TrimSpace(opts.SocketPath)
	if socketPath == "" {
		socketPath = SocketPath(cfg)
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and catalog database access"),
			logging.String(logging.FieldImpact, "daemon will not process records until started via IPC"),
		)
	}

	<-signalCtx.Done()
	logger.Info("darkroom daemon shutting down")
	return nil
}

// configureStages wires the production stage handlers into the manager. The
// analyzer builds unconditionally; embed and transfer validate their
// configuration up front so a broken daemon fails at startup rather than on
// the first finalized record.
func configureStages(mgr *pipeline.Manager, cfg *config.Config, store *catalog.Store, logger *slog.Logger) error {
	if mgr == nil || cfg == nil {
		return fmt.Errorf("pipeline manager and config are required")
	}

	embedder, err := embed.NewEmbedder(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("embed stage: %w", err)
	}
	uploader, err := transfer.NewUploader(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("transfer stage: %w", err)
	}

	mgr.ConfigureStages(pipeline.StageSet{
		Analyzer: analysis.NewAnalyzer(cfg, store, logger),
		Embedder: embedder,
		Uploader: uploader,
	})
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "darkroom.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logStartupSnapshot(logger *slog.Logger, cfg *config.Config, runID string) {
	if logger == nil || cfg == nil {
		return
	}
	exiftool := cfg.ExiftoolBinary()
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.String("run_id", runID),
		logging.Bool("vision_key_present", strings.TrimSpace(cfg.Vision.APIKey) != ""),
		logging.Bool("exiftool_available", binaryAvailable(exiftool)),
		logging.String("exiftool_binary", exiftool),
		logging.Bool("agency_credentials_present", strings.TrimSpace(cfg.Agency.Username) != ""),
		logging.Bool("notifications_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Int("analysis_workers", cfg.Workflow.AnalysisWorkers),
		logging.Int("delivery_workers", cfg.Workflow.DeliveryWorkers),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
