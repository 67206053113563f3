package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	name := lane.name
	if name == "" {
		name = string(lane.kind)
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("pipeline-%s-runner", name)),
		logging.String(logging.FieldLane, name),
	)
}

func (m *Manager) stageLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}
	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, lane *laneState, stageName string, record *catalog.Record, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if record != nil {
		ctx = services.WithRecordID(ctx, record.ID)
		if record.BatchID != "" {
			ctx = services.WithBatchID(ctx, record.BatchID)
		}
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if lane != nil {
		ctx = services.WithLane(ctx, string(lane.kind))
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
