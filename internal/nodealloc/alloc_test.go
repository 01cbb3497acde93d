package nodealloc

import "testing"

type fakeNode struct {
	val  int
	next []int
}

func TestGetBuildsFreshWhenPoolEmpty(t *testing.T) {
	p := New[fakeNode](4,
		func(level int) *fakeNode { return &fakeNode{val: -1, next: make([]int, level)} },
		func(n *fakeNode, level int) {
			n.val = 0
			if cap(n.next) < level {
				n.next = make([]int, level)
			} else {
				n.next = n.next[:level]
			}
		},
	)

	n := p.Get(3)
	if len(n.next) != 3 {
		t.Fatalf("Get(3): len(next) = %d, want 3", len(n.next))
	}
	if n.val != 0 {
		t.Fatalf("Get(3): val = %d, want 0 (reset applied even on a fresh build)", n.val)
	}
}

func TestPutGetReusesAndResets(t *testing.T) {
	built := 0
	p := New[fakeNode](4,
		func(level int) *fakeNode {
			built++
			return &fakeNode{next: make([]int, level)}
		},
		func(n *fakeNode, level int) {
			n.val = 0
			n.next = n.next[:level]
		},
	)

	n := p.Get(2)
	n.val = 99
	n.next[0] = 7
	p.Put(2, n)

	got := p.Get(2)
	if got != n {
		t.Fatal("expected Get to hand back the node just Put, sync.Pool has no concurrent contenders here")
	}
	if got.val != 0 {
		t.Fatalf("reused node val = %d, want reset to 0", got.val)
	}
	if built != 1 {
		t.Fatalf("built = %d, want exactly 1 (reuse should not rebuild)", built)
	}
}

func TestSizeClassesAreIndependent(t *testing.T) {
	p := New[fakeNode](4,
		func(level int) *fakeNode { return &fakeNode{next: make([]int, level)} },
		func(n *fakeNode, level int) { n.next = n.next[:level] },
	)

	a := p.Get(1)
	b := p.Get(4)
	if len(a.next) != 1 {
		t.Fatalf("level-1 node has len(next)=%d, want 1", len(a.next))
	}
	if len(b.next) != 4 {
		t.Fatalf("level-4 node has len(next)=%d, want 4", len(b.next))
	}
}
