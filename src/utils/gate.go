package utils

import (
	"context"
	"sync"

	"indicator-observer/src/helpers"
)

// -----------------------------------------------------------------------------
// Gate is a FIFO mutual-exclusion primitive. Ownership is handed directly from
// the releasing holder to the longest waiting caller, so waiters are served in
// arrival order.
// -----------------------------------------------------------------------------

type Gate struct {
	mu     sync.Mutex
	locked bool
	queue  []chan struct{}
}

// -----------------------------------------------------------------------------

func NewGate() *Gate {
	return &Gate{}
}

// -----------------------------------------------------------------------------

// Acquire blocks until the caller holds the gate or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if !g.locked {
		g.locked = true
		g.mu.Unlock()
		return nil
	}
	turn := make(chan struct{})
	g.queue = append(g.queue, turn)
	g.mu.Unlock()

	select {
	case <-turn:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		for i, waiter := range g.queue {
			if waiter == turn {
				g.queue = append(g.queue[:i], g.queue[i+1:]...)
				g.mu.Unlock()
				return ctx.Err()
			}
		}
		g.mu.Unlock()
		// Ownership was handed over while we were giving up; pass it on.
		g.Release()
		return ctx.Err()
	}
}

// -----------------------------------------------------------------------------

// Release hands the gate to the next waiter, or frees it when nobody waits.
// Releasing a free gate is a programming error and panics.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.locked {
		panic(helpers.ErrGateNotHeld)
	}
	if len(g.queue) > 0 {
		next := g.queue[0]
		g.queue = g.queue[1:]
		close(next)
		return
	}
	g.locked = false
}

// -----------------------------------------------------------------------------

// Do runs fn while holding the gate. The gate is released on every exit path,
// including a panic in fn.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

// -----------------------------------------------------------------------------

// Waiting reports how many callers are queued behind the holder.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// -----------------------------------------------------------------------------

// Locked reports whether the gate currently has a holder.
func (g *Gate) Locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked
}
