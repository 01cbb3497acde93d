package prioq

import "testing"

// TestRestructureTriggersAndPreservesOrder drives enough deletes through a
// tiny maxOffset to force at least one restructuring round, then checks the
// queue still drains in order afterward — restructuring must never lose or
// reorder a live node.
func TestRestructureTriggersAndPreservesOrder(t *testing.T) {
	const n = 64
	q, err := New[int, int](2, 6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := q.Register()
	defer h.Close()

	for i := n - 1; i >= 0; i-- {
		if err := q.Insert(h, i, i); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	for want := 0; want < n; want++ {
		k, _, ok, err := q.DeleteMin(h)
		if err != nil || !ok {
			t.Fatalf("DeleteMin at %d: ok=%v err=%v", want, ok, err)
		}
		if k != want {
			t.Fatalf("DeleteMin at %d: got key %d, want %d", want, k, want)
		}
	}

	if s := q.Stats(); s.Restructurings == 0 {
		t.Fatal("expected at least one restructuring round with maxOffset=2 and 64 deletes")
	}
}

// TestRestructureAfterRemoveAndReinsert exercises restructuring when the
// marked prefix was produced by a mix of DeleteMin and Remove, then
// confirms inserts after restructuring still land in the right place.
func TestRestructureAfterRemoveAndReinsert(t *testing.T) {
	q, err := New[int, int](1, 4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h := q.Register()
	defer h.Close()

	for i := 0; i < 8; i++ {
		if err := q.Insert(h, i, i*10); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := 0; i < 4; i++ {
		if _, ok, err := q.Remove(h, i); err != nil || !ok {
			t.Fatalf("Remove(%d): ok=%v err=%v", i, ok, err)
		}
	}

	// Force at least one restructuring attempt by draining one delete-min.
	if _, _, ok, err := q.DeleteMin(h); err != nil || !ok {
		t.Fatalf("DeleteMin: ok=%v err=%v", ok, err)
	}

	if err := q.Insert(h, -1, -10); err != nil {
		t.Fatalf("Insert(-1): %v", err)
	}
	k, v, ok, err := q.DeleteMin(h)
	if err != nil || !ok {
		t.Fatalf("DeleteMin: ok=%v err=%v", ok, err)
	}
	if k != -1 || v != -10 {
		t.Fatalf("DeleteMin after restructure+insert: got (%d,%d), want (-1,-10)", k, v)
	}
}

func TestRepairLevelNoOpOnEmptyQueue(t *testing.T) {
	q, err := New[int, int](4, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// No nodes exist at all; repairLevel must not panic walking an all-tail
	// skip list.
	for level := q.maxLevel - 1; level >= 1; level-- {
		q.repairLevel(level)
	}
}
