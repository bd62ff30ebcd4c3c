package simpleble

import "sync"

// handleGuard counts the native calls using a handle. Release marks the
// handle released at once, but the native release runs only after the
// last call that was already using the handle returns, so it happens
// exactly once and never under a running call. Release never waits, which
// keeps it safe to call from a native callback.
type handleGuard struct {
	mu       sync.Mutex
	h        Handle
	inFlight int
	released bool
	freed    bool
	free     func(Handle)
}

// acquire pins the handle for one native call. The caller must invoke done
// when the call returns.
func (g *handleGuard) acquire() (h Handle, done func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return 0, nil, ErrReleased
	}
	g.inFlight++
	return g.h, g.done, nil
}

func (g *handleGuard) done() {
	g.mu.Lock()
	g.inFlight--
	last := g.released && g.inFlight == 0 && !g.freed
	if last {
		g.freed = true
	}
	g.mu.Unlock()
	if last {
		g.free(g.h)
	}
}

// release reports false when the handle was already released.
func (g *handleGuard) release() bool {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return false
	}
	g.released = true
	now := g.inFlight == 0
	if now {
		g.freed = true
	}
	g.mu.Unlock()
	if now {
		g.free(g.h)
	}
	return true
}

func (g *handleGuard) isReleased() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released
}
