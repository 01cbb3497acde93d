package prioq

import "math/rand/v2"

// levelGen produces geometrically distributed levels with p = 1/2,
// truncated at maxLevel, using a bit-trick (repeated coin flips from a
// 64-bit random word) rather than a log/log division — both compute the
// same distribution, but counting set low bits avoids the float rounding
// spec §4.1 allows either implementation for.
//
// Each registered Handle owns one levelGen; it is never shared across
// goroutines; that's what makes this contention-free, unlike the teacher's
// single mutex-guarded *rand.Rand shared by every caller.
type levelGen struct {
	rng      *rand.Rand
	maxLevel int
}

func newLevelGen(maxLevel int) *levelGen {
	return &levelGen{
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		maxLevel: maxLevel,
	}
}

// pick returns a level in [1, maxLevel]: 1 plus the count of consecutive
// set bits from the low end of a random word, i.e. floor(log2(1/U))
// realized without floating point.
func (g *levelGen) pick() int {
	level := 1
	bits := g.rng.Uint64()
	for level < g.maxLevel && bits&1 == 1 {
		level++
		bits >>= 1
	}
	return level
}
