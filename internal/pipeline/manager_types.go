package pipeline

import (
	"log/slog"
	"time"

	"darkroom/internal/catalog"
	"darkroom/internal/stage"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Analyzer stage.Handler
	Embedder stage.Handler
	Uploader stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      catalog.Status
	processingStatus catalog.Status
	doneStatus       catalog.Status
	retryLimit       int
	attemptTimeout   time.Duration
}

type laneKind string

const (
	laneAnalysis laneKind = "analysis"
	laneDelivery laneKind = "delivery"
)

type laneState struct {
	kind         laneKind
	name         string
	workers      int
	stages       []pipelineStage
	claimOrder   []catalog.Status
	stageByStart map[catalog.Status]pipelineStage
	logger       *slog.Logger
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	if l.workers < 1 {
		l.workers = 1
	}
	l.stageByStart = make(map[catalog.Status]pipelineStage, len(l.stages))
	l.claimOrder = make([]catalog.Status, 0, len(l.stages))
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.claimOrder = append(l.claimOrder, stg.startStatus)
	}
}

func (l *laneState) stageForStatus(status catalog.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}
