package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"darkroom/internal/config"
)

func TestLoadDefaultConfigUsesEnvVisionKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWorkspace := filepath.Join(tempHome, ".local", "share", "darkroom", "workspace")
	if cfg.Paths.WorkspaceDir != wantWorkspace {
		t.Fatalf("unexpected workspace dir: got %q want %q", cfg.Paths.WorkspaceDir, wantWorkspace)
	}
	if cfg.Vision.APIKey != "test-key" {
		t.Fatalf("expected vision key from env, got %q", cfg.Vision.APIKey)
	}
	if cfg.Vision.BaseURL != config.Default().Vision.BaseURL {
		t.Fatalf("unexpected vision base url: %q", cfg.Vision.BaseURL)
	}
	if cfg.Vision.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected vision model: %q", cfg.Vision.Model)
	}
	if cfg.Vision.MaxHintChars != 500 {
		t.Fatalf("unexpected max hint chars: %d", cfg.Vision.MaxHintChars)
	}
	if cfg.Agency.Host != "ftp.shutterstock.com" {
		t.Fatalf("unexpected agency host: %q", cfg.Agency.Host)
	}
	if cfg.Agency.Port != 21 {
		t.Fatalf("unexpected agency port: %d", cfg.Agency.Port)
	}
	if cfg.Workflow.AnalysisWorkers != 3 {
		t.Fatalf("unexpected analysis workers: %d", cfg.Workflow.AnalysisWorkers)
	}
	if cfg.Workflow.DeliveryWorkers != 2 {
		t.Fatalf("unexpected delivery workers: %d", cfg.Workflow.DeliveryWorkers)
	}
	if !cfg.Review.RequireTitle || !cfg.Review.RequireDescription {
		t.Fatal("expected title and description required by default")
	}
	if cfg.ExiftoolBinary() != "exiftool" {
		t.Fatalf("unexpected embedder binary: %q", cfg.ExiftoolBinary())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.WorkspaceDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "darkroom.toml")

	type payload struct {
		Vision struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"vision"`
		Agency struct {
			Host     string `toml:"host"`
			Username string `toml:"username"`
		} `toml:"agency"`
		Workflow struct {
			AnalysisWorkers int `toml:"analysis_workers"`
			RetryBaseDelay  int `toml:"retry_base_delay"`
			RetryMaxDelay   int `toml:"retry_max_delay"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Vision.APIKey = "abc123"
	custom.Vision.BaseURL = "https://example.com/v1beta/"
	custom.Agency.Host = "ftp.example.com"
	custom.Agency.Username = "contributor"
	custom.Workflow.AnalysisWorkers = 5
	custom.Workflow.RetryBaseDelay = 2
	custom.Workflow.RetryMaxDelay = 40
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Vision.APIKey != "abc123" {
		t.Fatalf("expected vision key from file, got %q", cfg.Vision.APIKey)
	}
	if cfg.Vision.BaseURL != "https://example.com/v1beta" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Vision.BaseURL)
	}
	if cfg.Agency.Host != "ftp.example.com" {
		t.Fatalf("expected agency host override, got %q", cfg.Agency.Host)
	}
	if cfg.Workflow.AnalysisWorkers != 5 {
		t.Fatalf("expected analysis workers 5, got %d", cfg.Workflow.AnalysisWorkers)
	}
	if cfg.Workflow.RetryMaxDelay != 40 {
		t.Fatalf("expected retry max delay 40, got %d", cfg.Workflow.RetryMaxDelay)
	}
}

func TestEnvVarFallbackForSecrets(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "darkroom.toml")

	if err := os.WriteFile(configPath, []byte("[agency]\nusername = \"contributor\"\n"), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("GEMINI_API_KEY", "env-vision")
	t.Setenv("DARKROOM_AGENCY_PASSWORD", "env-password")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Vision.APIKey != "env-vision" {
		t.Errorf("expected vision key from env, got %q", cfg.Vision.APIKey)
	}
	if cfg.Agency.Password != "env-password" {
		t.Errorf("expected agency password from env, got %q", cfg.Agency.Password)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "ftp.shutterstock.com") {
		t.Fatalf("sample config missing agency host: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.WorkspaceDir, "darkroom") {
		t.Fatalf("expected workspace dir to contain darkroom, got %q", cfg.Paths.WorkspaceDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Vision.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing vision key")
	}

	cfg = config.Default()
	cfg.Vision.APIKey = "key"
	cfg.Embedder.TimeoutSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive timeout")
	}

	cfg = config.Default()
	cfg.Vision.APIKey = "key"
	cfg.Agency.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid agency port")
	}

	cfg = config.Default()
	cfg.Vision.APIKey = "key"
	cfg.Workflow.RetryMaxDelay = 0
	cfg.Workflow.RetryBaseDelay = 5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when max delay below base delay")
	}

	cfg = config.Default()
	cfg.Vision.APIKey = "key"
	cfg.Review.MaxKeywords = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero max keywords")
	}
}
