package reclaim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetireDefersUntilGuardExits(t *testing.T) {
	d := NewDomain()
	h1 := d.Register()
	h2 := d.Register()
	defer h1.Deregister()
	defer h2.Deregister()

	g1 := h1.Enter()

	freed := false
	d.Retire(func() { freed = true })

	// h1's guard is still open at the epoch the object was retired in, so
	// no amount of quiescing from h2 alone can free it yet.
	for i := 0; i < 5; i++ {
		d.tryAdvance()
	}
	require.False(t, freed, "object freed while a guard opened before Retire was still live")

	g1.Exit()
	d.Quiesce()
	require.True(t, freed, "object should be freed once every guard has exited and the epoch advanced twice")
}

func TestRetireWithNoRegisteredGoroutinesFreesImmediately(t *testing.T) {
	d := NewDomain()
	freed := false
	d.Retire(func() { freed = true })
	d.Quiesce()
	require.True(t, freed)
}

func TestQuiesceIsIdempotent(t *testing.T) {
	d := NewDomain()
	d.Quiesce()
	d.Quiesce()
}

func TestRetiredCountTracksEveryRetire(t *testing.T) {
	d := NewDomain()
	const n = 50
	for i := 0; i < n; i++ {
		d.Retire(func() {})
	}
	require.EqualValues(t, n, d.RetiredCount())
}

func TestConcurrentRegisterEnterExitRetire(t *testing.T) {
	d := NewDomain()
	const goroutines = 32
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := d.Register()
			defer h.Deregister()
			for j := 0; j < 200; j++ {
				g := h.Enter()
				d.Retire(func() {})
				g.Exit()
			}
		}()
	}
	wg.Wait()
	d.Quiesce()
}

func TestDeregisterRemovesOnlyItsOwnSlot(t *testing.T) {
	d := NewDomain()
	h1 := d.Register()
	h2 := d.Register()
	h3 := d.Register()

	h2.Deregister()

	require.Len(t, d.slots, 2)
	require.Contains(t, d.slots, h1.slot)
	require.Contains(t, d.slots, h3.slot)

	h1.Deregister()
	h3.Deregister()
	require.Empty(t, d.slots)
}
