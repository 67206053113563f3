package stage

import (
	"context"

	"darkroom/internal/catalog"
)

// Handler is the unit of work the pipeline manager schedules. Prepare runs
// once when a record is claimed and may reject it before any external call is
// made; Execute performs the stage's adapter call and is the only part the
// retry loop re-runs.
type Handler interface {
	Prepare(context.Context, *catalog.Record) error
	Execute(context.Context, *catalog.Record) error
	HealthCheck(context.Context) Health
}

// Health reports whether a stage's external dependency is usable right now.
// Detail carries the operator-facing explanation when Ready is false.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}
