package prioq

import "sync/atomic"

// counters are the atomic operation counts a Queue keeps on the hot path.
// Every field is updated with a single atomic.Uint64.Add on a branch that
// was already being taken, so Stats carries no synchronization cost beyond
// what the operations pay regardless.
type counters struct {
	inserts        atomic.Uint64
	deletes        atomic.Uint64
	removes        atomic.Uint64
	restructurings atomic.Uint64
}

// Stats is a point-in-time snapshot of a Queue's operation counts. It has
// no relation to the queue's contents — spec.md explicitly excludes a size
// operation (Non-goals, §1) — this is purely for observability.
type Stats struct {
	Inserts        uint64
	Deletes        uint64
	Removes        uint64
	Restructurings uint64
	Retired        uint64
}

// Stats snapshots the queue's operation counters.
func (q *Queue[K, V]) Stats() Stats {
	return Stats{
		Inserts:        q.counters.inserts.Load(),
		Deletes:        q.counters.deletes.Load(),
		Removes:        q.counters.removes.Load(),
		Restructurings: q.counters.restructurings.Load(),
		Retired:        q.domain.RetiredCount(),
	}
}
