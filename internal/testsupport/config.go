package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"darkroom/internal/config"
)

// ConfigOption customizes the generated test configuration after the
// defaults are applied.
type ConfigOption func(tb testing.TB, baseDir string, cfg *config.Config)

// NewConfig produces a config seeded with unique temp directories per test:
// a fake vision key, test agency credentials, and notifications off.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Vision.APIKey = "test"
	cfg.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Agency.Host = "agency.test"
	cfg.Agency.Username = "contributor"
	cfg.Agency.Password = "secret"
	cfg.Notifications.NtfyTopic = ""

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	return &cfg
}

// WithStubbedBinaries writes always-succeeding stub executables for the given
// names and prepends them to PATH for the test's duration. With no names it
// stubs the binaries darkroom shells out to.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(tb testing.TB, baseDir string, _ *config.Config) {
		tb.Helper()
		if len(names) == 0 {
			names = []string{"exiftool"}
		}
		binDir := filepath.Join(baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			tb.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				tb.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			tb.Fatalf("set PATH: %v", err)
		}
		tb.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}
