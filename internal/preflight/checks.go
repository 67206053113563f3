package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"darkroom/internal/config"
	"darkroom/internal/deps"
	"darkroom/internal/services/vision"
)

// CheckVision verifies that the vision API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckVision(ctx context.Context, cfg config.Vision) Result {
	const name = "Vision API"

	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := vision.NewClient(vision.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	})

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeVisionError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckExiftool verifies the embed binary resolves and runs.
func CheckExiftool(ctx context.Context, binary string) Result {
	status := deps.ProbeExiftool(ctx, binary)
	return Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
// Both the daemon status RPC and the CLI deps command use this so the
// requirements list lives in one place.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return []deps.Status{
		deps.ProbeExiftool(ctx, cfg.ExiftoolBinary()),
	}
}

// summarizeVisionError produces a short summary for vision health check failures.
func summarizeVisionError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (vision API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (vision API unreachable)"
	}
	return err.Error()
}
