package pipeline

import (
	"context"

	"darkroom/internal/catalog"
	"darkroom/internal/logging"
	"darkroom/internal/stage"
)

// StatusSummary represents lightweight pipeline diagnostics.
type StatusSummary struct {
	Running     bool
	LastError   string
	LastRecord  *catalog.Record
	QueueStats  map[catalog.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest pipeline information. Stats and health probes run
// outside the manager lock, so a stalled adapter health check cannot block
// record processing.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{Running: m.running}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastRecord != nil {
		copied := *m.lastRecord
		summary.LastRecord = &copied
	}
	var probes []pipelineStage
	for _, kind := range m.laneOrder {
		if lane := m.lanes[kind]; lane != nil {
			probes = append(probes, lane.stages...)
		}
	}
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read catalog stats", logging.Error(err))
	}
	summary.QueueStats = stats

	summary.StageHealth = make(map[string]stage.Health, len(probes))
	for _, stg := range probes {
		if stg.handler != nil {
			summary.StageHealth[stg.name] = stg.handler.HealthCheck(ctx)
		}
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastRecord(record *catalog.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record == nil {
		m.lastRecord = nil
		return
	}
	copied := *record
	m.lastRecord = &copied
}
