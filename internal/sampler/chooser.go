package sampler

import "math/rand/v2"

// RandomChooser draws uniformly without replacement from its own source.
type RandomChooser struct {
	rng *rand.Rand
}

// NewRandomChooser returns a chooser seeded from the runtime's entropy.
func NewRandomChooser() *RandomChooser {
	return &RandomChooser{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededChooser returns a chooser whose draws are fully determined by seed.
func NewSeededChooser(seed uint64) *RandomChooser {
	return &RandomChooser{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Choose runs a partial Fisher-Yates shuffle over a copy of candidates and
// returns the first n entries.
func (c *RandomChooser) Choose(candidates []int, n int) []int {
	if n <= 0 {
		return nil
	}
	if n > len(candidates) {
		n = len(candidates)
	}
	pool := make([]int, len(candidates))
	copy(pool, candidates)
	for i := 0; i < n; i++ {
		j := i + c.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
