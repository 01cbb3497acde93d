package prioq

import (
	"sync/atomic"
)

// cacheLinePad is sized to keep a node from sharing a cache line with its
// neighbor once laid out by the allocator; the head sentinel and the nodes
// immediately after it are the hottest words in the whole structure, since
// every delete-min and every restructuring round touches them.
const cacheLinePad = 64

// markableRef is the successor pointer plus the logical-deletion mark for
// one forward slot, swapped together as a single atomic unit. The spec
// describes the mark as the low bit of the level-0 forward pointer; Go has
// no portable way to steal a pointer's low bit without unsafe.Pointer
// arithmetic that would defeat the garbage collector's ability to follow
// the reference, so the mark rides alongside the pointer in one allocation
// instead of inside it. This preserves the invariant that matters: the
// successor and the mark can only ever change together, atomically.
type markableRef[K any, V any] struct {
	succ   *node[K, V]
	marked bool
}

// forward is one level's atomic forward slot.
type forward[K any, V any] struct {
	ref atomic.Pointer[markableRef[K, V]]
}

func (f *forward[K, V]) load() (succ *node[K, V], marked bool) {
	m := f.ref.Load()
	return m.succ, m.marked
}

func (f *forward[K, V]) loadUnmarked() *node[K, V] {
	succ, _ := f.load()
	return succ
}

// store installs succ unmarked. Used only for initial linkage before a
// node is published (head/tail construction, or a new node's own forward
// slots before the level-0 commit CAS).
func (f *forward[K, V]) store(succ *node[K, V]) {
	f.ref.Store(&markableRef[K, V]{succ: succ})
}

// casForward attempts to swing the slot from (oldSucc, false) to
// (newSucc, false). It fails if the current value's successor differs from
// oldSucc or if the slot is already marked.
func (f *forward[K, V]) casForward(oldSucc, newSucc *node[K, V]) bool {
	old := f.ref.Load()
	if old.succ != oldSucc || old.marked {
		return false
	}
	return f.ref.CompareAndSwap(old, &markableRef[K, V]{succ: newSucc})
}

// tryMark attempts to mark this slot without changing its successor.
// Marking a node's level-0 slot logically deletes that node (the slot's
// owner), not the successor. It returns the slot's successor and whether
// this call set the mark. If the slot was already marked, it returns the
// existing successor and false — mirroring the "old value already marked"
// branch of the spec's fetch-and-or.
func (f *forward[K, V]) tryMark() (claimed *node[K, V], won bool) {
	for {
		old := f.ref.Load()
		if old.marked {
			return old.succ, false
		}
		marked := &markableRef[K, V]{succ: old.succ, marked: true}
		if f.ref.CompareAndSwap(old, marked) {
			return old.succ, true
		}
	}
}

// node is one skip-list element. key/value/level are fixed at construction
// and never change for the lifetime of the node; only the forward slots
// mutate, and only via atomic operations.
type node[K any, V any] struct {
	key   K
	value V
	level int
	next  []forward[K, V]
	_     [cacheLinePad]byte
}

// newNode allocates and wires up a node of the given level. It does not
// publish the node to the list; the caller must do that via a CAS on a
// predecessor's forward slot.
func newNode[K any, V any](key K, value V, level int) *node[K, V] {
	n := &node[K, V]{key: key, value: value, level: level, next: make([]forward[K, V], level)}
	for i := range n.next {
		n.next[i].store(nil)
	}
	return n
}

// resetNode wipes a reused node (returned from the allocator's pool) back
// to a blank state for the given level, so it carries no stale key, value,
// or forward references into its new life.
func resetNode[K any, V any](n *node[K, V], level int) {
	var zeroK K
	var zeroV V
	n.key = zeroK
	n.value = zeroV
	n.level = level
	if cap(n.next) < level {
		n.next = make([]forward[K, V], level)
	} else {
		n.next = n.next[:level]
	}
	for i := range n.next {
		n.next[i].store(nil)
	}
}
