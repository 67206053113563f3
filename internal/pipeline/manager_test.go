package pipeline_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
	"darkroom/internal/logging"
	"darkroom/internal/notifications"
	"darkroom/internal/pipeline"
	"darkroom/internal/services/agency"
	"darkroom/internal/services/exiftool"
	"darkroom/internal/services/vision"
	"darkroom/internal/stage"
	"darkroom/internal/testsupport"
)

type stubHandler struct {
	name       string
	prepareErr error
	execute    func(ctx context.Context, record *catalog.Record) error
	health     stage.Health

	mu         sync.Mutex
	executions int
	perRecord  map[int64]int
}

func newStubHandler(name string) *stubHandler {
	return &stubHandler{name: name, health: stage.Healthy(name), perRecord: make(map[int64]int)}
}

func (s *stubHandler) Prepare(context.Context, *catalog.Record) error {
	return s.prepareErr
}

func (s *stubHandler) Execute(ctx context.Context, record *catalog.Record) error {
	s.mu.Lock()
	s.executions++
	s.perRecord[record.ID]++
	s.mu.Unlock()
	if s.execute != nil {
		return s.execute(ctx, record)
	}
	return nil
}

func (s *stubHandler) HealthCheck(context.Context) stage.Health {
	return s.health
}

func (s *stubHandler) executionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executions
}

func (s *stubHandler) recordExecutions(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.perRecord[id]
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	loads  []notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.loads = append(r.loads, payload)
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, seen := range r.events {
		if seen == event {
			total++
		}
	}
	return total
}

func (r *recordingNotifier) payloadFor(event notifications.Event) (notifications.Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, seen := range r.events {
		if seen == event {
			return r.loads[i], true
		}
	}
	return nil, false
}

func instantSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func pipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0
	return cfg
}

func startManager(t *testing.T, cfg *config.Config, store *catalog.Store, set pipeline.StageSet, notifier notifications.Service) *pipeline.Manager {
	t.Helper()
	if notifier == nil {
		notifier = &recordingNotifier{}
	}
	mgr := pipeline.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier, pipeline.WithRetrySleep(instantSleep))
	mgr.ConfigureStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

func seedRecord(t *testing.T, store *catalog.Store, batchID, name string) *catalog.Record {
	t.Helper()
	return testsupport.NewRecord(t, store, batchID, filepath.Join(t.TempDir(), name), name)
}

func seedDeliveryRecord(t *testing.T, store *catalog.Store, batchID, name string, status catalog.Status) *catalog.Record {
	t.Helper()
	record := seedRecord(t, store, batchID, name)
	record.Status = status
	record.Fields = &catalog.MetadataFields{
		Title:       "Harbor at dawn",
		Description: "Fishing boats moored in still water at first light",
		Keywords:    []string{"harbor", "dawn"},
	}
	if err := store.Update(context.Background(), record); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return record
}

func waitForStatus(t *testing.T, store *catalog.Store, id int64, want catalog.Status) *catalog.Record {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		record, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if record != nil && record.Status == want {
			return record
		}
		select {
		case <-deadline:
			current := catalog.Status("missing")
			if record != nil {
				current = record.Status
			}
			t.Fatalf("timed out waiting for status %s, record is %s", want, current)
		default:
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		default:
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestManagerAnalyzesPendingRecords(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "scenic")

	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(_ context.Context, record *catalog.Record) error {
		record.Fields = &catalog.MetadataFields{
			Title:       "Alpine ridge",
			Description: "Snow covered ridge line under a clear sky",
			Keywords:    []string{"alps", "snow"},
		}
		return nil
	}

	records := []*catalog.Record{
		seedRecord(t, store, batch.ID, "one.jpg"),
		seedRecord(t, store, batch.ID, "two.jpg"),
		seedRecord(t, store, batch.ID, "three.jpg"),
	}

	startManager(t, cfg, store, pipeline.StageSet{Analyzer: analyzer}, nil)

	for _, record := range records {
		updated := waitForStatus(t, store, record.ID, catalog.StatusReviewReady)
		if updated.Fields == nil || updated.Fields.Title == "" {
			t.Fatalf("expected generated fields on record %d, got %+v", record.ID, updated.Fields)
		}
		if updated.Failure != nil {
			t.Fatalf("expected no failure, got %+v", updated.Failure)
		}
	}
	if got := analyzer.executionCount(); got != len(records) {
		t.Fatalf("expected %d analyzer executions, got %d", len(records), got)
	}
}

func TestManagerClaimsEachRecordOnce(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.Workflow.AnalysisWorkers = 3
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "claims")

	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(_ context.Context, record *catalog.Record) error {
		time.Sleep(time.Millisecond)
		record.Fields = &catalog.MetadataFields{Title: "t", Description: "d", Keywords: []string{"k"}}
		return nil
	}

	var ids []int64
	for i := 0; i < 8; i++ {
		record := seedRecord(t, store, batch.ID, "img.jpg")
		ids = append(ids, record.ID)
	}

	startManager(t, cfg, store, pipeline.StageSet{Analyzer: analyzer}, nil)

	for _, id := range ids {
		waitForStatus(t, store, id, catalog.StatusReviewReady)
	}
	for _, id := range ids {
		if got := analyzer.recordExecutions(id); got != 1 {
			t.Fatalf("record %d executed %d times, want exactly 1", id, got)
		}
	}
}

func TestManagerRetriesTransientAnalysisFailures(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "retry")
	record := seedRecord(t, store, batch.ID, "flaky.jpg")

	var observedRetryCount int
	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(_ context.Context, r *catalog.Record) error {
		if analyzer.recordExecutions(r.ID) <= 2 {
			return &vision.Error{Kind: vision.KindRateLimited, StatusCode: 429, Message: "quota exhausted"}
		}
		if r.Failure != nil {
			observedRetryCount = r.Failure.RetryCount
		}
		r.Fields = &catalog.MetadataFields{Title: "t", Description: "d", Keywords: []string{"k"}}
		return nil
	}

	startManager(t, cfg, store, pipeline.StageSet{Analyzer: analyzer}, nil)

	updated := waitForStatus(t, store, record.ID, catalog.StatusReviewReady)
	if updated.Failure != nil {
		t.Fatalf("expected failure cleared after success, got %+v", updated.Failure)
	}
	if got := analyzer.executionCount(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if observedRetryCount != 2 {
		t.Fatalf("expected retry count 2 on final attempt, got %d", observedRetryCount)
	}
}

func TestManagerDoesNotRetryPermanentAnalysisFailure(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "auth")
	record := seedRecord(t, store, batch.ID, "denied.jpg")

	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(context.Context, *catalog.Record) error {
		return &vision.Error{Kind: vision.KindUnauthorized, StatusCode: 401, Message: "api key rejected"}
	}

	notifier := &recordingNotifier{}
	startManager(t, cfg, store, pipeline.StageSet{Analyzer: analyzer}, notifier)

	updated := waitForStatus(t, store, record.ID, catalog.StatusFailed)
	if updated.Failure == nil {
		t.Fatal("expected failure detail")
	}
	if updated.Failure.Kind != vision.KindUnauthorized {
		t.Fatalf("expected kind %q, got %q", vision.KindUnauthorized, updated.Failure.Kind)
	}
	if updated.Failure.Stage != catalog.StageAnalysis {
		t.Fatalf("expected stage %q, got %q", catalog.StageAnalysis, updated.Failure.Stage)
	}
	if updated.Failure.RetryCount != 0 {
		t.Fatalf("expected no retries, got %d", updated.Failure.RetryCount)
	}
	if got := analyzer.executionCount(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
	waitFor(t, "record failure notification", func() bool {
		return notifier.count(notifications.EventRecordFailed) == 1
	})
}

func TestManagerStopsRetryingAtLimit(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.Workflow.AnalysisRetryLimit = 2
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "limit")
	record := seedRecord(t, store, batch.ID, "down.jpg")

	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(context.Context, *catalog.Record) error {
		return &vision.Error{Kind: vision.KindUnreachable, Message: "connect: network is unreachable"}
	}

	startManager(t, cfg, store, pipeline.StageSet{Analyzer: analyzer}, nil)

	updated := waitForStatus(t, store, record.ID, catalog.StatusFailed)
	if updated.Failure == nil || updated.Failure.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %+v", updated.Failure)
	}
	if got := analyzer.executionCount(); got != 3 {
		t.Fatalf("expected 3 attempts (initial plus 2 retries), got %d", got)
	}
}

func TestManagerHonorsServerRetryHint(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "hint")
	record := seedRecord(t, store, batch.ID, "throttled.jpg")

	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(_ context.Context, r *catalog.Record) error {
		if analyzer.recordExecutions(r.ID) == 1 {
			return &vision.Error{
				Kind:       vision.KindRateLimited,
				StatusCode: 429,
				Message:    "slow down",
				RetryAfter: 250 * time.Millisecond,
			}
		}
		r.Fields = &catalog.MetadataFields{Title: "t", Description: "d", Keywords: []string{"k"}}
		return nil
	}

	var mu sync.Mutex
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return ctx.Err()
	}

	mgr := pipeline.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{}, pipeline.WithRetrySleep(sleep))
	mgr.ConfigureStages(pipeline.StageSet{Analyzer: analyzer})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)

	waitForStatus(t, store, record.ID, catalog.StatusReviewReady)

	mu.Lock()
	defer mu.Unlock()
	if len(delays) != 1 {
		t.Fatalf("expected one backoff sleep, got %d", len(delays))
	}
	if delays[0] != 250*time.Millisecond {
		t.Fatalf("expected server hint 250ms, got %s", delays[0])
	}
}

func TestManagerDeliversFinalizedRecords(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "delivery")
	record := seedDeliveryRecord(t, store, batch.ID, "final.jpg", catalog.StatusFinalized)

	embedder := newStubHandler(catalog.StageEmbed)
	uploader := newStubHandler(catalog.StageTransfer)
	uploader.execute = func(_ context.Context, r *catalog.Record) error {
		if uploader.recordExecutions(r.ID) <= 2 {
			return &agency.Error{Kind: agency.KindConnectionLost, Message: "connection reset by peer"}
		}
		now := time.Now().UTC()
		r.UploadedAt = &now
		return nil
	}

	startManager(t, cfg, store, pipeline.StageSet{Embedder: embedder, Uploader: uploader}, nil)

	updated := waitForStatus(t, store, record.ID, catalog.StatusCompleted)
	if updated.UploadedAt == nil {
		t.Fatal("expected uploaded timestamp")
	}
	if updated.Failure != nil {
		t.Fatalf("expected failure cleared, got %+v", updated.Failure)
	}
	if got := embedder.executionCount(); got != 1 {
		t.Fatalf("expected one embed, got %d", got)
	}
	if got := uploader.executionCount(); got != 3 {
		t.Fatalf("expected 3 transfer attempts, got %d", got)
	}
}

func TestManagerNeverRetriesEmbedFailures(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "embedfail")
	record := seedDeliveryRecord(t, store, batch.ID, "broken.jpg", catalog.StatusFinalized)

	embedder := newStubHandler(catalog.StageEmbed)
	embedder.execute = func(context.Context, *catalog.Record) error {
		return &exiftool.Error{Kind: exiftool.KindWriteFailed, Message: "exit status 1"}
	}

	mgr := startManager(t, cfg, store, pipeline.StageSet{Embedder: embedder, Uploader: newStubHandler(catalog.StageTransfer)}, nil)

	updated := waitForStatus(t, store, record.ID, catalog.StatusFailed)
	if updated.Failure == nil || updated.Failure.Kind != exiftool.KindWriteFailed {
		t.Fatalf("expected write_failed failure, got %+v", updated.Failure)
	}
	if updated.Failure.Stage != catalog.StageEmbed {
		t.Fatalf("expected embed stage, got %q", updated.Failure.Stage)
	}
	if got := embedder.executionCount(); got != 1 {
		t.Fatalf("expected a single embed attempt, got %d", got)
	}

	// A manual retry re-queues at the failed stage.
	mgr.Stop()
	if _, err := store.RetryFailed(context.Background(), record.ID); err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	requeued, err := store.GetByID(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if requeued.Status != catalog.StatusFinalized {
		t.Fatalf("expected finalized after manual retry, got %s", requeued.Status)
	}
	if requeued.Failure != nil {
		t.Fatalf("expected failure cleared on manual retry, got %+v", requeued.Failure)
	}
}

func TestManagerSkipsCancelledBatchRecords(t *testing.T) {
	cfg := pipelineConfig(t)
	cfg.Workflow.AnalysisWorkers = 2
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "cancelme")

	started := make(chan int64, 8)
	release := make(chan struct{})
	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(ctx context.Context, record *catalog.Record) error {
		select {
		case started <- record.ID:
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case <-release:
			record.Fields = &catalog.MetadataFields{Title: "t", Description: "d", Keywords: []string{"k"}}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	var ids []int64
	for i := 0; i < 5; i++ {
		record := seedRecord(t, store, batch.ID, "img.jpg")
		ids = append(ids, record.ID)
	}

	startManager(t, cfg, store, pipeline.StageSet{Analyzer: analyzer}, nil)

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for workers to claim records")
		}
	}

	ctx := context.Background()
	if _, err := store.MarkBatchCancelled(ctx, batch.ID); err != nil {
		t.Fatalf("MarkBatchCancelled failed: %v", err)
	}
	if _, err := store.SkipQueued(ctx, batch.ID); err != nil {
		t.Fatalf("SkipQueued failed: %v", err)
	}
	close(release)

	for _, id := range ids {
		waitForStatus(t, store, id, catalog.StatusSkipped)
	}
	if got := analyzer.executionCount(); got != 2 {
		t.Fatalf("expected only the 2 in-flight records to run, got %d executions", got)
	}
}

func TestManagerCancellationKeepsCompletedTransfers(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "lastleg")
	record := seedDeliveryRecord(t, store, batch.ID, "almost.jpg", catalog.StatusEmbedded)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	uploader := newStubHandler(catalog.StageTransfer)
	uploader.execute = func(ctx context.Context, r *catalog.Record) error {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
			now := time.Now().UTC()
			r.UploadedAt = &now
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	startManager(t, cfg, store, pipeline.StageSet{Embedder: newStubHandler(catalog.StageEmbed), Uploader: uploader}, nil)

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for transfer to start")
	}

	ctx := context.Background()
	if _, err := store.MarkBatchCancelled(ctx, batch.ID); err != nil {
		t.Fatalf("MarkBatchCancelled failed: %v", err)
	}
	if _, err := store.SkipQueued(ctx, batch.ID); err != nil {
		t.Fatalf("SkipQueued failed: %v", err)
	}
	close(release)

	updated := waitForStatus(t, store, record.ID, catalog.StatusCompleted)
	if updated.UploadedAt == nil {
		t.Fatal("expected uploaded timestamp on completed transfer")
	}
}

func TestManagerShutdownLeavesClaimForReclaim(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "shutdown")
	record := seedRecord(t, store, batch.ID, "inflight.jpg")

	started := make(chan struct{}, 1)
	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(ctx context.Context, _ *catalog.Record) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return ctx.Err()
	}

	notifier := &recordingNotifier{}
	mgr := pipeline.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier, pipeline.WithRetrySleep(instantSleep))
	mgr.ConfigureStages(pipeline.StageSet{Analyzer: analyzer})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for analysis to start")
	}
	mgr.Stop()

	interrupted, err := store.GetByID(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if interrupted.Status != catalog.StatusAnalyzing {
		t.Fatalf("expected record left in analyzing for reclaim, got %s", interrupted.Status)
	}

	if _, err := store.ResetStuckProcessing(context.Background()); err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	reclaimed, err := store.GetByID(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reclaimed.Status != catalog.StatusPending {
		t.Fatalf("expected pending after reclaim, got %s", reclaimed.Status)
	}
}

func TestManagerPublishesBatchMilestones(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	batch := testsupport.NewBatch(t, store, "milestones")

	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.execute = func(_ context.Context, record *catalog.Record) error {
		record.Fields = &catalog.MetadataFields{Title: "t", Description: "d", Keywords: []string{"k"}}
		return nil
	}
	embedder := newStubHandler(catalog.StageEmbed)
	uploader := newStubHandler(catalog.StageTransfer)

	first := seedRecord(t, store, batch.ID, "a.jpg")
	second := seedRecord(t, store, batch.ID, "b.jpg")

	notifier := &recordingNotifier{}
	startManager(t, cfg, store, pipeline.StageSet{Analyzer: analyzer, Embedder: embedder, Uploader: uploader}, notifier)

	waitForStatus(t, store, first.ID, catalog.StatusReviewReady)
	waitForStatus(t, store, second.ID, catalog.StatusReviewReady)

	waitFor(t, "review milestone", func() bool {
		return notifier.count(notifications.EventBatchAnalyzed) == 1
	})
	payload, ok := notifier.payloadFor(notifications.EventBatchAnalyzed)
	if !ok {
		t.Fatal("missing review milestone payload")
	}
	if ready, _ := payload["ready"].(int); ready != 2 {
		t.Fatalf("expected 2 records ready, got %v", payload["ready"])
	}

	// Operator finalizes both records, releasing them to the delivery lane.
	ctx := context.Background()
	for _, id := range []int64{first.ID, second.ID} {
		record, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		record.Status = catalog.StatusFinalized
		if err := store.Update(ctx, record); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	waitForStatus(t, store, first.ID, catalog.StatusCompleted)
	waitForStatus(t, store, second.ID, catalog.StatusCompleted)

	waitFor(t, "delivery milestone", func() bool {
		return notifier.count(notifications.EventBatchDelivered) == 1
	})
	payload, ok = notifier.payloadFor(notifications.EventBatchDelivered)
	if !ok {
		t.Fatal("missing delivery milestone payload")
	}
	if processed, _ := payload["processed"].(int); processed != 2 {
		t.Fatalf("expected 2 processed, got %v", payload["processed"])
	}
}

func TestManagerStartRequiresConfiguredStages(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := pipeline.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error starting unconfigured pipeline")
	}

	mgr.ConfigureStages(pipeline.StageSet{Analyzer: newStubHandler(catalog.StageAnalysis)})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)
	if err := mgr.Start(ctx); err == nil {
		t.Fatal("expected error starting pipeline twice")
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := pipelineConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	analyzer := newStubHandler(catalog.StageAnalysis)
	analyzer.health = stage.Unhealthy(catalog.StageAnalysis, "api key missing")

	mgr := pipeline.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.ConfigureStages(pipeline.StageSet{Analyzer: analyzer})

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("expected stopped pipeline")
	}
	health, ok := status.StageHealth[catalog.StageAnalysis]
	if !ok {
		t.Fatalf("expected stage health entry for %s", catalog.StageAnalysis)
	}
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if health.Detail != "api key missing" {
		t.Fatalf("expected detail %q, got %q", "api key missing", health.Detail)
	}
	if status.QueueStats == nil {
		t.Fatal("expected queue stats")
	}
}
