package prioq

import (
	"cmp"
	"sync/atomic"

	"github.com/gaarutyunov/prioq/internal/reclaim"
)

// Handle is a registered goroutine's private context: its reclamation
// registration, its own level-selection RNG, and the cached near-head
// position delete-min resumes from. A Handle must not be used from more
// than one goroutine at a time, and must not be used after Close.
//
// This is the language-neutral realization spec §9 calls for: "pass a
// per-thread context explicitly into delete_min, or use a thread-local
// variable managed by the reclamation service's thread-registration hook."
// Go has no portable thread-local storage and goroutines are not threads,
// so the context is passed explicitly instead.
type Handle[K cmp.Ordered, V any] struct {
	queue *Queue[K, V]
	rh    *reclaim.Handle
	rng   *levelGen

	// cached delete-min resume state (spec §4.4 step 2).
	cachedNode    *node[K, V]
	cachedObsHead *node[K, V]
	cachedOffset  int

	closed bool

	// inUse backs the prioq_debug reentrancy assertion: a Handle is owned by
	// exactly one goroutine at a time, and calling two operations on it
	// concurrently is misuse the release build has no cheap way to detect.
	inUse atomic.Bool
}

// Register enrolls the calling goroutine with the queue's reclamation
// domain and returns a Handle for it to use on every subsequent operation.
// Operations must not be called from a goroutine that hasn't registered —
// doing so is a misuse spec §5 calls undefined behavior; this package
// returns ErrNotRegistered for a nil or foreign Handle instead of behaving
// undefined.
func (q *Queue[K, V]) Register() *Handle[K, V] {
	return &Handle[K, V]{
		queue: q,
		rh:    q.domain.Register(),
		rng:   newLevelGen(q.maxLevel),
	}
}

// Close deregisters the handle. It is called after the goroutine's last
// operation against the owning queue, and the handle must not be used again
// afterward. Calling Close again on an already-closed handle is a no-op.
func (h *Handle[K, V]) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.rh.Deregister()
}

func (h *Handle[K, V]) valid(q *Queue[K, V]) bool {
	return h != nil && !h.closed && h.queue == q
}
