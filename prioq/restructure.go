package prioq

// maybeRestructure implements spec §4.4 step 6: once a handle's local
// count of consecutive claims since its last observed head exceeds
// maxOffset, one goroutine pays to swing the head past the whole marked
// prefix and retire it, amortizing physical reclamation across maxOffset
// logical deletes instead of paying it on every one.
func (q *Queue[K, V]) maybeRestructure(h *Handle[K, V], claimed *node[K, V]) {
	obsHp := h.cachedObsHead
	if cur := q.head.next[0].loadUnmarked(); cur != obsHp {
		// Someone else already restructured past this point; nothing to do.
		return
	}
	q.restructure(obsHp, claimed)
}

// restructure swings head.next[0] past the marked run [obsHp, claimed],
// repairs the upper-level shortcuts top-down, and retires the excised
// prefix into the reclamation domain. Only the goroutine that wins the
// head-0 CAS does any of this; everyone else's attempt is a cheap no-op.
func (q *Queue[K, V]) restructure(obsHp, claimed *node[K, V]) {
	newHeadSucc, _ := claimed.next[0].load()
	if !q.head.next[0].casForward(obsHp, newHeadSucc) {
		return
	}
	q.counters.restructurings.Add(1)

	for level := q.maxLevel - 1; level >= 1; level-- {
		q.repairLevel(level)
	}

	q.retirePrefix(obsHp, claimed)
}

// repairLevel is spec §4.5's weak-search-end: find the last node in a
// contiguous marked run reachable from head at this level and swing
// head.next[level] past it, so future weak searches stop paying the cost
// of climbing through nodes level 0 has already physically dropped.
func (q *Queue[K, V]) repairLevel(level int) {
	for {
		start := q.head.next[level].loadUnmarked()
		if start == q.tail {
			return
		}
		if _, marked := start.next[0].load(); !marked {
			// head already shortcuts to a live node at this level.
			return
		}

		last := start
		for {
			nxt := last.next[level].loadUnmarked()
			if nxt == q.tail {
				break
			}
			if _, nxtMarked := nxt.next[0].load(); !nxtMarked {
				break
			}
			last = nxt
		}

		newSucc := last.next[level].loadUnmarked()
		if q.head.next[level].casForward(start, newSucc) {
			return
		}
		// Lost the race against a concurrent restructuring pass; the head
		// pointer moved under us, re-read it and try again.
	}
}

// retirePrefix walks the excised run from obsHp through claimed inclusive
// and hands each node to the reclamation domain, which frees it back to
// the node pool once every goroutine active at retirement time has left
// its critical section (spec §4.5 step 4, §8).
func (q *Queue[K, V]) retirePrefix(obsHp, claimed *node[K, V]) {
	cur := obsHp
	for {
		next, _ := cur.next[0].load()
		dead := cur
		q.domain.Retire(func() { q.freeNode(dead) })
		if cur == claimed {
			return
		}
		cur = next
	}
}
