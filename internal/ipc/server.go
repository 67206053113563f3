package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"darkroom/internal/api"
	"darkroom/internal/catalog"
	"darkroom/internal/daemon"
	"darkroom/internal/intake"
	"darkroom/internal/logging"
	"darkroom/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx, path: path}
	if err := rpcServer.RegisterName("Darkroom", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String("impact", "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String("impact", "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually or rerun darkroom daemon stop"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
	path   string
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String(logging.FieldComponent, "ipc"))
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	s.log().Debug("daemon start requested")
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	s.log().Info("daemon started via IPC",
		logging.String(logging.FieldEventType, "daemon_start"))
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.log().Debug("daemon stop requested")
	s.daemon.Stop()
	resp.Stopped = true
	s.log().Info("daemon stopped via IPC",
		logging.String(logging.FieldEventType, "daemon_stop"))
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	pipeline := api.FromStatusSummary(status.Pipeline)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.QueueStats = pipeline.QueueStats
	resp.LastError = pipeline.LastError
	resp.LastRecord = pipeline.LastRecord
	resp.CatalogPath = status.CatalogPath
	resp.LockPath = status.LockFilePath
	resp.SocketPath = s.path
	resp.StageHealth = pipeline.StageHealth
	resp.Dependencies = api.FromDependencyStatuses(status.Dependencies)
	return nil
}

func (s *service) Submit(req SubmitRequest, resp *SubmitResponse) error {
	s.log().Debug("submission requested", logging.Int("source_count", len(req.Sources)))
	batch, records, err := s.daemon.Submit(s.ctx, intake.Request{
		BatchID: req.BatchID,
		Label:   req.Label,
		Sources: req.Sources,
		Hints:   req.Hints,
	})
	if err != nil {
		return err
	}
	resp.Batch = api.FromBatch(batch)
	resp.Records = api.FromRecords(records)
	s.log().Info("batch submitted via IPC",
		logging.String(logging.FieldEventType, "batch_submit"),
		logging.String(logging.FieldBatchID, batch.ID),
		logging.Int("record_count", len(records)))
	return nil
}

func (s *service) DescribeRecord(req DescribeRecordRequest, resp *DescribeRecordResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid record id %d", req.ID)
	}
	record, err := s.daemon.GetRecord(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Record = api.FromRecord(record)
	return nil
}

func (s *service) EditFields(req EditFieldsRequest, resp *EditFieldsResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid record id %d", req.ID)
	}
	record, err := s.daemon.EditFields(s.ctx, req.ID, api.ToMetadataFields(req.Fields))
	if err != nil {
		return err
	}
	resp.Record = api.FromRecord(record)
	return nil
}

func (s *service) Reanalyze(req ReanalyzeRequest, resp *ReanalyzeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid record id %d", req.ID)
	}
	record, err := s.daemon.Reanalyze(s.ctx, req.ID, req.Hint)
	if err != nil {
		return err
	}
	resp.Record = api.FromRecord(record)
	s.log().Info("record queued for reanalysis via IPC",
		logging.String(logging.FieldEventType, "record_reanalyze"),
		logging.Int64(logging.FieldRecordID, req.ID))
	return nil
}

func (s *service) Finalize(req FinalizeRequest, resp *FinalizeResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid record id %d", req.ID)
	}
	record, err := s.daemon.Finalize(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Record = api.FromRecord(record)
	s.log().Info("record finalized via IPC",
		logging.String(logging.FieldEventType, "record_finalize"),
		logging.Int64(logging.FieldRecordID, req.ID))
	return nil
}

func (s *service) FinalizeBatch(req FinalizeBatchRequest, resp *FinalizeBatchResponse) error {
	finalized, err := s.daemon.FinalizeBatch(s.ctx, req.BatchID)
	if err != nil {
		return err
	}
	resp.Finalized = finalized
	s.log().Info("batch finalized via IPC",
		logging.String(logging.FieldEventType, "batch_finalize"),
		logging.String(logging.FieldBatchID, req.BatchID),
		logging.Int64("finalized_count", finalized))
	return nil
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	if req.ID <= 0 {
		return fmt.Errorf("invalid record id %d", req.ID)
	}
	record, err := s.daemon.Retry(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Record = api.FromRecord(record)
	s.log().Info("record retried via IPC",
		logging.String(logging.FieldEventType, "record_retry"),
		logging.Int64(logging.FieldRecordID, req.ID))
	return nil
}

func (s *service) BatchStatus(req BatchStatusRequest, resp *BatchStatusResponse) error {
	batch, counts, records, err := s.daemon.BatchStatus(s.ctx, req.BatchID)
	if err != nil {
		return err
	}
	resp.Batch = api.FromBatch(batch)
	resp.Counts = api.MergeCatalogStats(counts)
	resp.Records = api.FromRecords(records)
	return nil
}

func (s *service) CancelBatch(req CancelBatchRequest, resp *CancelBatchResponse) error {
	skipped, err := s.daemon.CancelBatch(s.ctx, req.BatchID)
	if err != nil {
		return err
	}
	resp.Skipped = skipped
	s.log().Info("batch cancelled via IPC",
		logging.String(logging.FieldEventType, "batch_cancel"),
		logging.String(logging.FieldBatchID, req.BatchID),
		logging.Int64("skipped_count", skipped))
	return nil
}

func (s *service) DiscardBatch(req DiscardBatchRequest, resp *DiscardBatchResponse) error {
	removed, err := s.daemon.DiscardBatch(s.ctx, req.BatchID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("batch discarded via IPC",
		logging.String(logging.FieldEventType, "batch_discard"),
		logging.String(logging.FieldBatchID, req.BatchID),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) ListBatches(_ ListBatchesRequest, resp *ListBatchesResponse) error {
	batches, err := s.daemon.ListBatches(s.ctx)
	if err != nil {
		return err
	}
	resp.Batches = api.FromBatches(batches)
	return nil
}

func (s *service) ListRecords(req ListRecordsRequest, resp *ListRecordsResponse) error {
	statuses := make([]catalog.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		parsed, ok := catalog.ParseStatus(status)
		if !ok {
			continue
		}
		statuses = append(statuses, parsed)
	}
	records, err := s.daemon.ListRecords(s.ctx, statuses)
	if err != nil {
		return err
	}
	resp.Records = api.FromRecords(records)
	return nil
}

func (s *service) ClearCompleted(_ ClearCompletedRequest, resp *ClearCompletedResponse) error {
	s.log().Debug("clear completed requested")
	removed, err := s.daemon.ClearCompleted(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("completed records cleared",
		logging.String(logging.FieldEventType, "catalog_clear_completed"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) ClearFailed(_ ClearFailedRequest, resp *ClearFailedResponse) error {
	s.log().Debug("clear failed requested")
	removed, err := s.daemon.ClearFailed(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("failed records cleared",
		logging.String(logging.FieldEventType, "catalog_clear_failed"),
		logging.Int64("removed_count", removed))
	return nil
}

func (s *service) ReclaimStale(_ ReclaimStaleRequest, resp *ReclaimStaleResponse) error {
	s.log().Debug("reclaim stale requested")
	updated, err := s.daemon.ReclaimStale(s.ctx)
	if err != nil {
		return err
	}
	resp.Updated = updated
	s.log().Info("stale records reclaimed",
		logging.String(logging.FieldEventType, "catalog_reclaim_stale"),
		logging.Int64("updated_count", updated))
	return nil
}

func (s *service) StoreHealth(_ StoreHealthRequest, resp *StoreHealthResponse) error {
	summary, database, err := s.daemon.StoreHealth(s.ctx)
	if err != nil && database.Error == "" {
		return err
	}
	resp.Counts = CatalogCounts{
		Total:       summary.Total,
		Pending:     summary.Pending,
		Processing:  summary.Processing,
		ReviewReady: summary.ReviewReady,
		Failed:      summary.Failed,
		Completed:   summary.Completed,
		Skipped:     summary.Skipped,
	}
	resp.Database = DatabaseHealth{
		DBPath:           database.DBPath,
		DatabaseExists:   database.DatabaseExists,
		DatabaseReadable: database.DatabaseReadable,
		SchemaVersion:    database.SchemaVersion,
		TableExists:      database.TableExists,
		ColumnsPresent:   append([]string(nil), database.ColumnsPresent...),
		MissingColumns:   append([]string(nil), database.MissingColumns...),
		IntegrityCheck:   database.IntegrityCheck,
		TotalRecords:     database.TotalRecords,
		Error:            database.Error,
	}
	return err
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	logPath := s.daemon.LogPath()
	if logPath == "" {
		resp.Offset = 0
		return nil
	}

	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if wait <= 0 && req.Follow {
		wait = time.Second
	}

	// Bound follow requests so a shutdown never waits on a held RPC.
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}

	result, err := logs.Tail(ctx, logPath, logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}
