package pipeline

import (
	"time"

	"darkroom/internal/catalog"
)

// ConfigureStages registers the concrete stage handlers the pipeline will run.
func (m *Manager) ConfigureStages(set StageSet) {
	analysis := &laneState{kind: laneAnalysis, name: "analysis", workers: m.cfg.Workflow.AnalysisWorkers}
	delivery := &laneState{kind: laneDelivery, name: "delivery", workers: m.cfg.Workflow.DeliveryWorkers}

	if set.Analyzer != nil {
		analysis.stages = append(analysis.stages, pipelineStage{
			name:             catalog.StageAnalysis,
			handler:          set.Analyzer,
			startStatus:      catalog.StatusPending,
			processingStatus: catalog.StatusAnalyzing,
			doneStatus:       catalog.StatusReviewReady,
			retryLimit:       m.cfg.Workflow.AnalysisRetryLimit,
			attemptTimeout:   time.Duration(m.cfg.Vision.TimeoutSeconds) * time.Second,
		})
	}
	if set.Embedder != nil {
		delivery.stages = append(delivery.stages, pipelineStage{
			name:             catalog.StageEmbed,
			handler:          set.Embedder,
			startStatus:      catalog.StatusFinalized,
			processingStatus: catalog.StatusEmbedding,
			doneStatus:       catalog.StatusEmbedded,
			// A failed header write needs eyes on the staged file before
			// another attempt, so embed never retries automatically.
			retryLimit:     0,
			attemptTimeout: time.Duration(m.cfg.Embedder.TimeoutSeconds) * time.Second,
		})
	}
	if set.Uploader != nil {
		delivery.stages = append(delivery.stages, pipelineStage{
			name:             catalog.StageTransfer,
			handler:          set.Uploader,
			startStatus:      catalog.StatusEmbedded,
			processingStatus: catalog.StatusTransferring,
			doneStatus:       catalog.StatusCompleted,
			retryLimit:       m.cfg.Workflow.TransferRetryLimit,
			attemptTimeout:   time.Duration(m.cfg.Agency.TimeoutSeconds) * time.Second,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(analysis.stages) > 0 {
		analysis.finalize()
		lanes[analysis.kind] = analysis
		order = append(order, analysis.kind)
	}
	if len(delivery.stages) > 0 {
		delivery.finalize()
		lanes[delivery.kind] = delivery
		order = append(order, delivery.kind)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
