package embed_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"darkroom/internal/catalog"
	"darkroom/internal/embed"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/services/exiftool"
	"darkroom/internal/testsupport"
)

type stubEmbedClient struct {
	err   error
	calls []exiftool.Metadata
	paths []string
}

func (s *stubEmbedClient) Embed(ctx context.Context, path string, meta exiftool.Metadata) error {
	s.paths = append(s.paths, path)
	s.calls = append(s.calls, meta)
	return s.err
}

func reviewedRecord(t *testing.T, store *catalog.Store, batchID string) *catalog.Record {
	t.Helper()
	source := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	testsupport.WriteJPEG(t, source)
	record := testsupport.NewRecord(t, store, batchID, source, "IMG_0001.jpg")
	record.Fields = &catalog.MetadataFields{
		Title:       "Harbor at dawn",
		Description: "Fishing boats at sunrise.",
		Keywords:    []string{"harbor", "sunrise"},
		Category:    "Nature",
	}
	return record
}

func TestEmbedderWritesReviewedFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "shoot")
	record := reviewedRecord(t, store, batch.ID)

	stub := &stubEmbedClient{}
	handler := embed.NewEmbedderWithClient(cfg, store, logging.NewNop(), stub)

	if err := handler.Prepare(context.Background(), record); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), record); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(stub.calls) != 1 {
		t.Fatalf("expected one embed call, got %d", len(stub.calls))
	}
	if stub.paths[0] != record.SourcePath {
		t.Fatalf("embed should target the staged file, got %q", stub.paths[0])
	}
	meta := stub.calls[0]
	if meta.Title != "Harbor at dawn" || meta.Category != "Nature" || len(meta.Keywords) != 2 {
		t.Fatalf("unexpected metadata payload: %+v", meta)
	}
}

func TestEmbedderRequiresFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "shoot")

	source := filepath.Join(t.TempDir(), "IMG_0002.jpg")
	testsupport.WriteJPEG(t, source)
	record := testsupport.NewRecord(t, store, batch.ID, source, "IMG_0002.jpg")

	handler := embed.NewEmbedderWithClient(cfg, store, logging.NewNop(), &stubEmbedClient{})
	err := handler.Prepare(context.Background(), record)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error without fields, got %v", err)
	}
}

func TestEmbedderPropagatesToolError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "shoot")
	record := reviewedRecord(t, store, batch.ID)

	toolErr := &exiftool.Error{Kind: exiftool.KindUnsupportedFormat, Message: "raw not supported"}
	handler := embed.NewEmbedderWithClient(cfg, store, logging.NewNop(), &stubEmbedClient{err: toolErr})

	err := handler.Execute(context.Background(), record)
	var typed *exiftool.Error
	if !errors.As(err, &typed) || typed.Kind != exiftool.KindUnsupportedFormat {
		t.Fatalf("expected typed exiftool error to pass through, got %v", err)
	}
	if catalog.FailureKind(err) != exiftool.KindUnsupportedFormat {
		t.Fatalf("catalog should classify by adapter kind, got %s", catalog.FailureKind(err))
	}
}

func TestEmbedderHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := embed.NewEmbedderWithClient(cfg, store, logging.NewNop(), &stubEmbedClient{})
	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy embedder, got %+v", health)
	}

	handler = embed.NewEmbedderWithClient(cfg, store, logging.NewNop(), nil)
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy embedder without client")
	}
}
