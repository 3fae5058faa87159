package troupe

import "time"

// ──────────────────────────────────────────────
// Background decay sweeps
// ──────────────────────────────────────────────

// Start launches the periodic sweep loop: mood decay, conflict decay,
// activity histogram pruning, and eviction of staged effects the caller
// never committed or abandoned. Non-blocking; safe to call once.
func (e *Engine) Start() {
	e.lifecycleMu.Lock()
	if e.running {
		e.lifecycleMu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.lifecycleMu.Unlock()

	go e.sweepLoop(stopCh)
	e.log.Info().Dur("interval", e.cfg.SweepInterval).Msg("sweeper started")
}

// Stop halts the sweep loop.
func (e *Engine) Stop() {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stopCh)
	e.log.Info().Msg("sweeper stopped")
}

func (e *Engine) sweepLoop(stopCh chan struct{}) {
	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.Sweep()
		}
	}
}

// Sweep runs one decay pass. Exposed so tests and callers with their own
// schedulers can drive it directly.
func (e *Engine) Sweep() {
	now := e.clock.Now()
	e.mood.Sweep(now)
	e.conflict.Sweep(now)
	e.ambient.Sweep(now)
	e.prunePending(now)
}

// prunePending evicts staged effects past PendingTTL. An evicted event is
// treated as abandoned: nothing was committed, nothing to roll back.
func (e *Engine) prunePending(now time.Time) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	for id, fx := range e.pending {
		if now.Sub(fx.at) > e.cfg.PendingTTL {
			delete(e.pending, id)
			e.stats.abandoned.Inc()
			e.log.Debug().Str("event", id).Msg("stale pending decision evicted")
		}
	}
}
