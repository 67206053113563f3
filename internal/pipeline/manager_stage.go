package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
)

func (m *Manager) processRecord(ctx context.Context, lane *laneState, workerLogger *slog.Logger, record *catalog.Record, stg pipelineStage) error {
	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, lane, stg.name, record, requestID)
	stageLogger := m.stageLogger(stageCtx, workerLogger)

	// The batch may have been cancelled between the queue scan and our claim.
	// The record never started the stage, so it settles like queued work.
	cancelled, err := m.batchCancelled(stageCtx, record.BatchID)
	if err != nil {
		stageLogger.Warn("batch cancellation check failed; continuing", logging.Error(err))
	} else if cancelled {
		return m.settleCancelledRecord(stageCtx, stageLogger, record)
	}

	m.onRecordStarted(stageCtx, record)
	return m.executeStage(stageCtx, stageLogger, stg, record)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, record *catalog.Record) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("source_file", record.OriginalName),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stg.name))
		record.SetFailure(stg.name, catalog.KindConfiguration, fmt.Sprintf("stage %s missing handler", stg.name), 0)
		if err := m.store.Update(ctx, record); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, record); err != nil {
		m.handleStageFailure(ctx, stg, record, err, 0)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, record); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	retries, execErr := m.executeWithRetries(ctx, stageLogger, stg, record)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
			// Shutdown. Leave the record in its processing state so the next
			// start reclaims it.
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg, record, execErr, retries)
		m.setLastError(execErr)
		return execErr
	}

	// A cancelled batch gives up records that still have stages ahead of
	// them. Work that just finished the pipeline stays finished.
	if stg.doneStatus != catalog.StatusCompleted {
		cancelled, err := m.batchCancelled(ctx, record.BatchID)
		if err == nil && cancelled {
			return m.settleCancelledRecord(ctx, stageLogger, record)
		}
	}

	if record.Status == stg.processingStatus || record.Status == "" {
		record.Status = stg.doneStatus
	}
	record.ClearFailure()
	if err := m.store.Update(ctx, record); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(record.Status)),
		logging.Int("retries", retries),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastRecord(record)
	m.checkBatchProgress(ctx, record.BatchID)
	return nil
}

// executeAttempt runs one handler attempt under the stage's deadline.
func (m *Manager) executeAttempt(ctx context.Context, stg pipelineStage, record *catalog.Record) error {
	attemptCtx := ctx
	if stg.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, stg.attemptTimeout)
		defer cancel()
	}
	return stg.handler.Execute(attemptCtx, record)
}

func (m *Manager) settleCancelledRecord(ctx context.Context, stageLogger *slog.Logger, record *catalog.Record) error {
	record.Status = catalog.StatusSkipped
	if err := m.store.Update(ctx, record); err != nil {
		wrapped := fmt.Errorf("persist cancellation skip: %w", err)
		stageLogger.Error("failed to persist cancellation skip", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("record skipped after batch cancellation",
		logging.String(logging.FieldEventType, "record_skipped"),
	)
	m.setLastRecord(record)
	m.checkBatchProgress(ctx, record.BatchID)
	return nil
}

func (m *Manager) batchCancelled(ctx context.Context, batchID string) (bool, error) {
	if batchID == "" {
		return false, nil
	}
	batch, err := m.store.GetBatch(ctx, batchID)
	if err != nil {
		return false, err
	}
	return batch.Cancelled(), nil
}
