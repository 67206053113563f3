package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
)

func (m *Manager) handleStageFailure(ctx context.Context, stg pipelineStage, record *catalog.Record, stageErr error, retries int) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := m.stageLogger(ctx, base).With(logging.String(logging.FieldComponent, "pipeline-manager"))

	kind := catalog.FailureKind(stageErr)
	message := failureMessage(stg.name, stageErr)
	record.SetFailure(stg.name, kind, message, retries)

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("resolved_status", string(catalog.StatusFailed)),
		logging.String(logging.FieldErrorKind, kind),
		logging.Int("retry_count", retries),
		logging.Alert("stage_failure"),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, record); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastRecord(record)
	m.notifyRecordFailed(ctx, stg.name, record, stageErr)
	m.checkBatchProgress(ctx, record.BatchID)
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr != nil {
		if message := strings.TrimSpace(stageErr.Error()); message != "" {
			return message
		}
	}
	if stageName != "" {
		return fmt.Sprintf("%s failed without error detail", stageName)
	}
	return "stage failed without error detail"
}
