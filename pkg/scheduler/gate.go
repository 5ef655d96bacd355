package scheduler

import "go.uber.org/atomic"

// Gate is a single-slot admission gate: at most one holder at a time,
// acquisition never blocks.
type Gate struct {
	busy atomic.Bool
}

// TryAcquire takes the gate and reports whether it succeeded.
func (g *Gate) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the gate.
func (g *Gate) Release() {
	g.busy.Store(false)
}

// Busy reports whether the gate is held.
func (g *Gate) Busy() bool {
	return g.busy.Load()
}
