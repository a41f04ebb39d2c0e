package switches

import "sync"

// OpGuard bounds the number of concurrent expensive operations per user. It is
// process-local: counts reset on restart and are not shared across instances,
// which bounds rather than eliminates overlap under horizontal scaling.
type OpGuard struct {
	mu     sync.Mutex
	counts map[string]int
	limit  int
}

// NewOpGuard constructs a guard allowing up to limit concurrent operations per user.
func NewOpGuard(limit int) *OpGuard {
	if limit <= 0 {
		limit = 1
	}
	return &OpGuard{counts: make(map[string]int), limit: limit}
}

// Acquire reserves a slot for the user, reporting false when the user is at the limit.
func (g *OpGuard) Acquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counts[userID] >= g.limit {
		return false
	}
	g.counts[userID]++
	return true
}

// Release frees a slot previously reserved with Acquire.
func (g *OpGuard) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counts[userID] <= 1 {
		delete(g.counts, userID)
		return
	}
	g.counts[userID]--
}

// Active returns the current count for the user.
func (g *OpGuard) Active(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[userID]
}
