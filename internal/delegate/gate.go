package delegate

import (
	"sync"

	"github.com/desertthunder/audioquery/internal/models"
)

// Pending is the one call held while its permission request is outstanding.
type Pending struct {
	Call  models.Call
	Reply models.Reply
}

// Gate is a single-slot admission gate: it is either idle or holds one [Pending] call.
type Gate struct {
	mu      sync.Mutex
	pending *Pending
}

// TryAdmit stores call and reply as the pending call. It reports false, leaving the held
// call untouched, when another call is already pending.
func (g *Gate) TryAdmit(call models.Call, reply models.Reply) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending != nil {
		return false
	}
	g.pending = &Pending{Call: call, Reply: reply}
	return true
}

// Pending returns the held call, if any.
func (g *Gate) Pending() (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return Pending{}, false
	}
	return *g.pending, true
}

// Take returns the held call and leaves the gate idle.
func (g *Gate) Take() (Pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return Pending{}, false
	}
	p := *g.pending
	g.pending = nil
	return p, true
}

// Clear leaves the gate idle.
func (g *Gate) Clear() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}
