package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
)

// Start reclaims interrupted work and begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("pipeline already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, kind := range m.laneOrder {
		lane := m.lanes[kind]
		if lane == nil || len(lane.claimOrder) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("pipeline stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := 0
	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
		workers += lane.workers
	}
	m.wg.Add(workers)
	m.mu.Unlock()

	if requeued, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("startup reclaim failed; interrupted records may be stuck",
			logging.Error(err),
			logging.String(logging.FieldEventType, "reclaim_failed"),
			logging.String(logging.FieldErrorHint, "check catalog database access"),
		)
	} else if requeued > 0 {
		m.logger.Info("recovered records left in flight by previous run",
			logging.Int64("records", requeued),
			logging.String(logging.FieldEventType, "reclaim_complete"),
		)
	}

	for _, lane := range lanes {
		for i := 1; i <= lane.workers; i++ {
			go m.runWorker(runCtx, lane, i)
		}
	}

	return nil
}

// Stop terminates background processing and waits for workers to settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, lane *laneState, worker int) {
	defer m.wg.Done()
	if lane == nil {
		return
	}
	logger := lane.logger
	if logger == nil {
		logger = m.logger
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.Int("worker", worker))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		record, stg, err := m.claimNextForLane(ctx, lane)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if record == nil {
			m.waitForWorkOrShutdown(ctx)
			continue
		}

		if err := m.processRecord(ctx, lane, logger, record, stg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

// claimNextForLane finds the oldest waiting record in the lane and claims it
// with a conditional status update. Losing a claim race just means another
// worker got there first, so the loop moves on to the next candidate.
func (m *Manager) claimNextForLane(ctx context.Context, lane *laneState) (*catalog.Record, pipelineStage, error) {
	for {
		candidate, err := m.store.NextForStatuses(ctx, lane.claimOrder...)
		if err != nil {
			return nil, pipelineStage{}, err
		}
		if candidate == nil {
			return nil, pipelineStage{}, nil
		}
		stg, ok := lane.stageForStatus(candidate.Status)
		if !ok {
			continue
		}
		claimed, err := m.store.Claim(ctx, candidate.ID, stg.startStatus, stg.processingStatus)
		if err != nil {
			return nil, pipelineStage{}, err
		}
		if !claimed {
			continue
		}
		record, err := m.store.GetByID(ctx, candidate.ID)
		if err != nil {
			return nil, pipelineStage{}, err
		}
		if record == nil {
			continue
		}
		return record, stg, nil
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next record",
		logging.Error(err),
		logging.String(logging.FieldEventType, "claim_failed"),
		logging.String(logging.FieldErrorHint, "check catalog database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetry):
	}
}

func (m *Manager) waitForWorkOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
