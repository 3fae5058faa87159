package troupe

import "go.uber.org/atomic"

// Stats are hot-path counters, safe to read while the engine runs.
type Stats struct {
	Events          int64
	Responses       int64
	Vetoes          int64
	FollowUps       int64
	SubEngineErrors int64
	Abandoned       int64
}

type statCounters struct {
	events          atomic.Int64
	responses       atomic.Int64
	vetoes          atomic.Int64
	followUps       atomic.Int64
	subEngineErrors atomic.Int64
	abandoned       atomic.Int64
}

func (c *statCounters) snapshot() Stats {
	return Stats{
		Events:          c.events.Load(),
		Responses:       c.responses.Load(),
		Vetoes:          c.vetoes.Load(),
		FollowUps:       c.followUps.Load(),
		SubEngineErrors: c.subEngineErrors.Load(),
		Abandoned:       c.abandoned.Load(),
	}
}
