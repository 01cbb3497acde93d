// Package prioq implements a lock-free concurrent priority queue: a
// skip-list-based shared event set supporting concurrent Insert and
// DeleteMin without a global lock, built on logical/physical deletion
// separation and batched physical reclamation of the marked head prefix.
//
// Every public operation requires a Handle obtained from Queue.Register,
// one per goroutine that calls into the queue; this is both the
// reclamation-service registration and the home for per-goroutine state
// (the level-selection RNG and the cached delete-min resume position) that
// must never be shared across goroutines.
package prioq

import (
	"cmp"
	"fmt"
	"sync/atomic"

	"github.com/gaarutyunov/prioq/internal/nodealloc"
	"github.com/gaarutyunov/prioq/internal/reclaim"
)

// MaxLevel is the hard ceiling (spec's L_max) on the per-queue maxLevel
// passed to New. It bounds the node allocator's size-class table.
const MaxLevel = 32

// Queue is a concurrent priority queue ordered by K. It does not maintain
// key uniqueness, does not support update-in-place, and has no Len/size
// operation or ordered iteration — see spec.md Non-goals.
type Queue[K cmp.Ordered, V any] struct {
	maxLevel  int
	maxOffset int

	head *node[K, V]
	tail *node[K, V]

	domain *reclaim.Domain
	pool   *nodealloc.Pool[node[K, V]]

	counters counters
	closed   atomic.Bool
}

// New creates a queue. maxOffset is the amortization threshold: the number
// of consecutive logically-deleted nodes at the head that triggers a
// restructuring attempt. maxLevel bounds the height of any node's tower and
// must be in [1, MaxLevel].
func New[K cmp.Ordered, V any](maxOffset, maxLevel int) (q *Queue[K, V], err error) {
	if maxOffset < 1 {
		return nil, fmt.Errorf("prioq: maxOffset must be >= 1, got %d", maxOffset)
	}
	if maxLevel < 1 || maxLevel > MaxLevel {
		return nil, fmt.Errorf("prioq: maxLevel must be in [1, %d], got %d", MaxLevel, maxLevel)
	}
	defer func() {
		if r := recover(); r != nil {
			q, err = nil, ErrAllocation
		}
	}()

	var zeroK K
	var zeroV V

	pool := nodealloc.New[node[K, V]](maxLevel,
		func(level int) *node[K, V] { return newNode[K, V](zeroK, zeroV, level) },
		func(n *node[K, V], level int) { resetNode(n, level) },
	)

	head := newNode[K, V](zeroK, zeroV, maxLevel)
	tail := newNode[K, V](zeroK, zeroV, maxLevel)
	for i := range head.next {
		head.next[i].store(tail)
	}

	return &Queue[K, V]{
		maxLevel:  maxLevel,
		maxOffset: maxOffset,
		head:      head,
		tail:      tail,
		domain:    reclaim.NewDomain(),
		pool:      pool,
	}, nil
}

// Close destroys the queue. There must be no concurrent callers of any
// other Queue method, and no registered Handle may be used afterward
// (spec §6, queue_destroy). It drains whatever reclamation work it safely
// can before returning.
func (q *Queue[K, V]) Close() error {
	if !q.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	q.domain.Quiesce()
	return nil
}

func (q *Queue[K, V]) allocNode(key K, value V, level int) (n *node[K, V], err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = nil, ErrAllocation
		}
	}()
	n = q.pool.Get(level)
	n.key = key
	n.value = value
	return n, nil
}

func (q *Queue[K, V]) freeNode(n *node[K, V]) {
	q.pool.Put(n.level, n)
}

// weakSearch returns, at every level, the last node with key strictly less
// than k (preds) and the first node with key >= k (succs). It never
// physically excises a marked node it passes through — per spec §4.2, that
// is restructure's job alone, not weak search's.
func (q *Queue[K, V]) weakSearch(key K) (preds, succs []*node[K, V]) {
	preds = make([]*node[K, V], q.maxLevel)
	succs = make([]*node[K, V], q.maxLevel)

	pred := q.head
	for level := q.maxLevel - 1; level >= 0; level-- {
		curr := pred.next[level].loadUnmarked()
		assertReachable("weakSearch", curr, q.tail)
		for curr != q.tail && curr.key < key {
			pred = curr
			curr = pred.next[level].loadUnmarked()
			assertReachable("weakSearch", curr, q.tail)
		}
		preds[level] = pred
		succs[level] = curr
	}
	return preds, succs
}

// Insert adds a node with key k and value v (spec §4.3). Duplicate keys
// coexist; a later DeleteMin/Remove observes each inserted (k, v) exactly
// once. Apart from ErrClosed and ErrNotRegistered for a closed queue or an
// invalid handle, the only error this returns is node allocation failure.
func (q *Queue[K, V]) Insert(h *Handle[K, V], key K, value V) error {
	if q.closed.Load() {
		return ErrClosed
	}
	if !h.valid(q) {
		return ErrNotRegistered
	}

	assertEnter(h)
	defer assertExit(h)

	guard := h.rh.Enter()
	defer guard.Exit()

	lv := h.rng.pick()
	n, err := q.allocNode(key, value, lv)
	if err != nil {
		return err
	}

	preds, succs := q.weakSearch(key)
	for i := 0; i < lv; i++ {
		n.next[i].store(succs[i])
	}

	for {
		if preds[0].next[0].casForward(succs[0], n) {
			break
		}

		curSucc, curMarked := preds[0].next[0].load()
		if curMarked {
			// pred[0] has been logically deleted concurrently; the node
			// can still be spliced in at level 0 only (spec §4.3 step 5,
			// marked-predecessor branch). Upper-level insertion is
			// abandoned in this path.
			q.insertAfterMarkedPredecessor(n, preds[0], key)
			q.counters.inserts.Add(1)
			return nil
		}
		_ = curSucc

		// A competing insert won the slot; re-run weak search and retry.
		preds, succs = q.weakSearch(key)
		for i := 0; i < lv; i++ {
			n.next[i].store(succs[i])
		}
	}

	q.threadUpward(n, preds, succs, lv, key)
	q.counters.inserts.Add(1)
	return nil
}

// insertAfterMarkedPredecessor handles spec §4.3 step 5's marked-pred
// branch: walk forward from a logically deleted predecessor over further
// marked nodes and splice n in at the first unmarked forward pointer
// found, retrying with a bounded local budget before refreshing the
// starting point from a fresh head-seeking weak search.
func (q *Queue[K, V]) insertAfterMarkedPredecessor(n *node[K, V], start *node[K, V], key K) {
	const localRetryBudget = 10

	p := start
	retries := 0
	for {
		succ, marked := p.next[0].load()
		if marked {
			p = succ
			continue
		}

		n.next[0].store(succ)
		if p.next[0].casForward(succ, n) {
			return
		}

		retries++
		if retries > localRetryBudget {
			preds, _ := q.weakSearch(key)
			p = preds[0]
			retries = 0
		}
	}
}

// threadUpward links n into levels [1, lv) after its level-0 commit has
// already linearized the insert (spec §4.3 step 7).
func (q *Queue[K, V]) threadUpward(n *node[K, V], preds, succs []*node[K, V], lv int, key K) {
	for i := 1; i < lv; i++ {
		for {
			if _, marked := n.next[0].load(); marked {
				return
			}

			cur := n.next[i].loadUnmarked()
			if cur != succs[i] {
				n.next[i].casForward(cur, succs[i])
			}

			if preds[i].next[i].casForward(succs[i], n) {
				break
			}
			if _, marked := n.next[0].load(); marked {
				return
			}
			preds, succs = q.weakSearch(key)
		}
	}
}

// DeleteMin claims and returns the node whose mark bit this goroutine sets
// first while walking forward from its cached near-head position (spec
// §4.4). ok is false exactly when the queue was observed empty.
func (q *Queue[K, V]) DeleteMin(h *Handle[K, V]) (key K, value V, ok bool, err error) {
	var zeroK K
	var zeroV V

	if q.closed.Load() {
		return zeroK, zeroV, false, ErrClosed
	}
	if !h.valid(q) {
		return zeroK, zeroV, false, ErrNotRegistered
	}

	assertEnter(h)
	defer assertExit(h)

	guard := h.rh.Enter()
	defer guard.Exit()

	obsHead := q.head.next[0].loadUnmarked()
	var x *node[K, V]
	resumed := h.cachedObsHead == obsHead && h.cachedNode != nil
	if resumed {
		x = h.cachedNode
	} else {
		x = obsHead
		h.cachedObsHead = obsHead
		h.cachedOffset = 0
	}

	steps := 0
	for {
		if x == q.tail {
			h.cachedNode = x
			h.cachedOffset += steps
			return zeroK, zeroV, false, nil
		}

		succ, marked := x.next[0].load()
		if marked {
			x = succ
			steps++
			continue
		}

		claimed, won := x.next[0].tryMark()
		if !won {
			x = claimed
			steps++
			continue
		}

		key, value = x.key, x.value
		h.cachedNode = x
		// A resumed walk starts at the cached node, which was already
		// counted when it was claimed; a fresh walk counts x itself.
		h.cachedOffset += steps
		if !resumed {
			h.cachedOffset++
		}
		q.counters.deletes.Add(1)

		if h.cachedOffset > q.maxOffset {
			q.maybeRestructure(h, x)
			h.cachedOffset = 0
		}
		return key, value, true, nil
	}
}

// Remove performs a weak search for key and attempts to claim the node
// found via the same mark-swap DeleteMin uses (spec §4.6). It is not part
// of the priority-queue contract proper but belongs to the set-of-keys
// interface the core also exposes.
func (q *Queue[K, V]) Remove(h *Handle[K, V], key K) (value V, ok bool, err error) {
	var zeroV V

	if q.closed.Load() {
		return zeroV, false, ErrClosed
	}
	if !h.valid(q) {
		return zeroV, false, ErrNotRegistered
	}

	assertEnter(h)
	defer assertExit(h)

	guard := h.rh.Enter()
	defer guard.Exit()

	_, succs := q.weakSearch(key)
	target := succs[0]
	if target == q.tail || target.key != key {
		return zeroV, false, nil
	}
	if _, marked := target.next[0].load(); marked {
		return zeroV, false, nil
	}

	_, won := target.next[0].tryMark()
	if !won {
		return zeroV, false, nil
	}
	q.counters.removes.Add(1)
	return target.value, true, nil
}
