package autosave

import (
	"context"
	"sync"
)

// ExportedFlightGuard lets the black-box tests drive the guard directly.
type ExportedFlightGuard = flightGuard

// ─────────────────────────────────────────────────────────────
// flightGuard — one save request per channel
// ─────────────────────────────────────────────────────────────

// flightGuard keeps the positions and furniture channels from sending two
// saves at once. A debounce that fires while its channel is still sending
// finds the channel taken; the syncer then has the running save go again
// with the latest state once it returns. Close waits on the guard so
// no save is cut off mid-request.
type flightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock claims channel for one save. It returns false while another save
// of the same channel is still waiting on the server.
func (g *flightGuard) TryLock(channel string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[channel]; ok {
		return false
	}
	g.running[channel] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases channel once its save has been answered, failed or not.
func (g *flightGuard) Unlock(channel string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, channel)
	g.wg.Done()
}

// Busy reports whether any save is waiting on the server. Reconcile skips
// its reload while this holds.
func (g *flightGuard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.running) > 0
}

// WaitAll blocks until every outstanding save has been answered or ctx ends.
func (g *flightGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
