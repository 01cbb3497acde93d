// Package reclaim is the memory reclamation service consumed by the
// skip-list core: per-goroutine critical sections, plus deferred retire of
// anything that might still be visible to a concurrent traversal.
//
// It implements a small epoch scheme rather than anything exotic: a global
// epoch counter, one slot per registered goroutine recording the epoch it
// last entered, and per-epoch limbo bags. An object handed to Retire is
// freed (its finalizer runs) only once the global epoch has advanced twice
// past the one active when the object was retired. Each advance requires
// every slot that is inside a critical section to have entered at the
// current epoch, so no critical section that could still reference the
// object remains open.
package reclaim

import (
	"sync"
	"sync/atomic"
)

// inactive marks a slot whose goroutine is not currently inside a critical
// section. Epoch numbers start at 1 so this never collides with a real
// epoch value.
const inactive = 0

type slot struct {
	epoch atomic.Uint64
}

// Domain owns the global epoch and the registry of goroutine slots. One
// Domain per Queue; multiple Domains never share slots.
type Domain struct {
	epoch atomic.Uint64

	mu    sync.RWMutex
	slots []*slot

	limboMu sync.Mutex
	limbo   [3][]func()

	retireCount atomic.Uint64
}

// NewDomain creates a reclamation domain starting at epoch 1.
func NewDomain() *Domain {
	d := &Domain{}
	d.epoch.Store(1)
	return d
}

// Handle is the registration token returned by Register. It must be closed
// by the same goroutine that obtained it, after that goroutine's last
// operation against the owning Queue.
type Handle struct {
	domain *Domain
	slot   *slot
}

// Register enrolls the calling goroutine with the domain. The returned
// Handle is not safe to share across goroutines — each goroutine that
// calls operations on the queue must hold its own Handle.
func (d *Domain) Register() *Handle {
	s := &slot{}
	s.epoch.Store(inactive)

	d.mu.Lock()
	d.slots = append(d.slots, s)
	d.mu.Unlock()

	return &Handle{domain: d, slot: s}
}

// Deregister removes the handle's slot from the domain. The handle must not
// be used again afterward.
func (h *Handle) Deregister() {
	d := h.domain
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.slots {
		if s == h.slot {
			d.slots[i] = d.slots[len(d.slots)-1]
			d.slots = d.slots[:len(d.slots)-1]
			return
		}
	}
}

// Guard brackets a critical section. No node reachable from the queue may
// be dereferenced outside of one.
type Guard struct {
	handle *Handle
}

// Enter opens a critical section for the calling goroutine's handle. There
// must be no other open Guard for this handle (no nested critical
// sections); callers that need to check this invariant in tests can do so
// via the prioq_debug build tag one layer up.
func (h *Handle) Enter() Guard {
	h.slot.epoch.Store(h.domain.epoch.Load())
	return Guard{handle: h}
}

// Exit closes the critical section opened by Enter.
func (g Guard) Exit() {
	g.handle.slot.epoch.Store(inactive)
}

// Retire schedules fn to run once no registered handle can still be inside
// a critical section that started before this call. fn is typically a
// closure that returns a node to its nodealloc pool.
func (d *Domain) Retire(fn func()) {
	epoch := d.epoch.Load()

	d.limboMu.Lock()
	d.limbo[epoch%3] = append(d.limbo[epoch%3], fn)
	d.limboMu.Unlock()

	d.retireCount.Add(1)
	d.tryAdvance()
}

// tryAdvance attempts to bump the global epoch and, if it succeeds, retires
// the bag that is now two epochs stale. It is safe to call from any
// goroutine at any time; on contention it simply does nothing and the next
// caller (or the next Retire) tries again. Advancing is never required for
// correctness, only for bounding memory: a goroutine that never calls
// Retire or tryAdvance still observes a correct queue, just one that defers
// reclamation longer.
func (d *Domain) tryAdvance() {
	cur := d.epoch.Load()

	d.mu.RLock()
	for _, s := range d.slots {
		e := s.epoch.Load()
		if e != inactive && e < cur {
			d.mu.RUnlock()
			return
		}
	}
	d.mu.RUnlock()

	if !d.epoch.CompareAndSwap(cur, cur+1) {
		return
	}

	stale := (cur + 2) % 3
	d.limboMu.Lock()
	bag := d.limbo[stale]
	d.limbo[stale] = nil
	d.limboMu.Unlock()

	for _, fn := range bag {
		fn()
	}
}

// RetiredCount returns the number of objects ever handed to Retire, for
// tests and for prioq's Stats.
func (d *Domain) RetiredCount() uint64 {
	return d.retireCount.Load()
}

// Quiesce forces repeated epoch advances until the limbo bags drain or no
// further progress is possible. It exists for queue_destroy / Close and for
// tests that want a deterministic "everything has been reclaimed" point;
// it is not part of the hot path.
func (d *Domain) Quiesce() {
	for i := 0; i < 3; i++ {
		d.tryAdvance()
	}
}
