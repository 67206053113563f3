package analysis_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"darkroom/internal/analysis"
	"darkroom/internal/catalog"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/services/vision"
	"darkroom/internal/testsupport"
)

type stubVision struct {
	result   vision.Result
	err      error
	requests []vision.Request
}

func (s *stubVision) Analyze(ctx context.Context, req vision.Request) (vision.Result, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return vision.Result{}, s.err
	}
	return s.result, nil
}

func (s *stubVision) HealthCheck(ctx context.Context) error { return nil }

func TestAnalyzerGeneratesFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "shoot")

	source := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	testsupport.WriteJPEG(t, source)
	record := testsupport.NewRecord(t, store, batch.ID, source, "IMG_0001.jpg")
	record.Hint = "sunrise over the bay"

	stub := &stubVision{result: vision.Result{
		Title:       "Harbor at dawn",
		Description: "Fishing boats at sunrise.",
		Keywords:    []string{"Harbor", "harbor", "sunrise"},
		Category:    "nature",
	}}
	handler := analysis.NewAnalyzerWithClient(cfg, store, logging.NewNop(), stub)

	if err := handler.Prepare(context.Background(), record); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), record); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(stub.requests) != 1 {
		t.Fatalf("expected one vision call, got %d", len(stub.requests))
	}
	req := stub.requests[0]
	if req.Hint != "sunrise over the bay" {
		t.Fatalf("hint not forwarded: %q", req.Hint)
	}
	if req.MIMEType != "image/jpeg" || len(req.ImageData) == 0 {
		t.Fatalf("unexpected request payload: mime=%q bytes=%d", req.MIMEType, len(req.ImageData))
	}

	if record.Fields == nil {
		t.Fatal("expected generated fields on record")
	}
	if record.Fields.Title != "Harbor at dawn" {
		t.Fatalf("unexpected title %q", record.Fields.Title)
	}
	if len(record.Fields.Keywords) != 2 {
		t.Fatalf("keywords should be deduplicated, got %v", record.Fields.Keywords)
	}
	if record.Fields.Category != "Nature" {
		t.Fatalf("category should be canonical, got %q", record.Fields.Category)
	}
}

func TestAnalyzerPropagatesVisionError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "shoot")

	source := filepath.Join(t.TempDir(), "IMG_0002.jpg")
	testsupport.WriteJPEG(t, source)
	record := testsupport.NewRecord(t, store, batch.ID, source, "IMG_0002.jpg")

	visionErr := &vision.Error{Kind: vision.KindRateLimited, Message: "slow down"}
	handler := analysis.NewAnalyzerWithClient(cfg, store, logging.NewNop(), &stubVision{err: visionErr})

	err := handler.Execute(context.Background(), record)
	var typed *vision.Error
	if !errors.As(err, &typed) || typed.Kind != vision.KindRateLimited {
		t.Fatalf("expected typed vision error to pass through, got %v", err)
	}
	if record.Fields != nil {
		t.Fatal("failed analysis must not set fields")
	}
}

func TestAnalyzerPrepareRejectsMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "shoot")
	record := testsupport.NewRecord(t, store, batch.ID, filepath.Join(t.TempDir(), "gone.jpg"), "gone.jpg")

	handler := analysis.NewAnalyzerWithClient(cfg, store, logging.NewNop(), &stubVision{})
	err := handler.Prepare(context.Background(), record)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if catalog.FailureKind(err) != catalog.KindValidation {
		t.Fatalf("expected validation kind, got %s", catalog.FailureKind(err))
	}
}

func TestAnalyzerHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := analysis.NewAnalyzerWithClient(cfg, store, logging.NewNop(), &stubVision{})
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy analyzer, got %+v", health)
	}

	cfg.Vision.APIKey = ""
	handler = analysis.NewAnalyzerWithClient(cfg, store, logging.NewNop(), &stubVision{})
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy analyzer without api key")
	}
}

func TestMIMETypeForPath(t *testing.T) {
	cases := map[string]string{
		"a.jpg":  "image/jpeg",
		"a.JPEG": "image/jpeg",
		"a.png":  "image/png",
		"a.webp": "image/webp",
		"a":      "image/jpeg",
	}
	for path, want := range cases {
		if got := analysis.MIMETypeForPath(path); got != want {
			t.Fatalf("MIMETypeForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
