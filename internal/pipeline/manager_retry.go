package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// executeWithRetries runs the stage handler until it succeeds, fails
// permanently, or burns the stage's retry budget. The worker keeps its claim
// the whole time, so a retried record never races another worker. Returns the
// retries consumed alongside the final error.
func (m *Manager) executeWithRetries(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, record *catalog.Record) (int, error) {
	retries := 0
	for {
		execErr := m.executeAttempt(ctx, stg, record)
		if execErr == nil {
			return retries, nil
		}
		if errors.Is(execErr, context.Canceled) && ctx.Err() != nil {
			return retries, execErr
		}
		if retries >= stg.retryLimit || !retryable(execErr) {
			return retries, execErr
		}
		// Cancelled batches give up their remaining retry budget.
		if cancelled, err := m.batchCancelled(ctx, record.BatchID); err == nil && cancelled {
			return retries, execErr
		}

		retries++
		kind := catalog.FailureKind(execErr)
		record.Failure = &catalog.Failure{
			Stage:      stg.name,
			Kind:       kind,
			Message:    execErr.Error(),
			RetryCount: retries,
		}
		if err := m.store.Update(ctx, record); err != nil {
			stageLogger.Warn("failed to persist retry state", logging.Error(err))
		}

		delay := m.retryDelay(retries, execErr)
		stageLogger.Warn("stage attempt failed; retrying",
			logging.String(logging.FieldEventType, "stage_retry"),
			logging.String(logging.FieldErrorKind, kind),
			logging.Int("retry", retries),
			logging.Int("retry_limit", stg.retryLimit),
			logging.Duration("backoff", delay),
			logging.Error(execErr),
		)
		if err := m.sleep(ctx, delay); err != nil {
			return retries, err
		}
	}
}

// retryable reports whether a stage error is worth another automatic attempt.
// Adapters that know their own failure modes get the first say; everything
// else falls back to the catalog's failure classification.
func retryable(err error) bool {
	var decider interface{ Retryable() bool }
	if errors.As(err, &decider) {
		return decider.Retryable()
	}
	switch catalog.FailureKind(err) {
	case catalog.KindTransient, catalog.KindTimeout:
		return true
	default:
		return false
	}
}

// retryDelay computes the wait before the next attempt. Rate limited
// responses that name their own delay win over the computed backoff.
func (m *Manager) retryDelay(retry int, cause error) time.Duration {
	var hinted interface{ RetryAfterDelay() time.Duration }
	if errors.As(cause, &hinted) {
		if hint := hinted.RetryAfterDelay(); hint > 0 {
			return m.capDelay(hint)
		}
	}

	base := m.retryBase
	if base <= 0 {
		base = time.Second
	}
	delay := base
	for i := 1; i < retry; i++ {
		delay *= 2
		if m.retryMax > 0 && delay >= m.retryMax {
			break
		}
	}
	delay = m.capDelay(delay)
	// Randomize within [delay/2, delay] so parallel retries spread out.
	if half := delay / 2; half > 0 {
		delay = half + time.Duration(rand.Int63n(int64(half)+1))
	}
	return delay
}

func (m *Manager) capDelay(delay time.Duration) time.Duration {
	if m.retryMax > 0 && delay > m.retryMax {
		return m.retryMax
	}
	return delay
}
