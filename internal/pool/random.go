package pool

import (
	"math/rand/v2"
	"time"
)

// Randomizer is the single source of randomness for slot assignment,
// sampling and shuffling. It is not safe for concurrent use; the loader and
// sampler only call it from one goroutine.
type Randomizer struct {
	rng *rand.Rand
}

// NewRandomizer returns a Randomizer seeded from the clock.
func NewRandomizer() *Randomizer {
	now := uint64(time.Now().UnixNano())
	return &Randomizer{rng: rand.New(rand.NewPCG(now, now>>17|1))}
}

// NewSeededRandomizer returns a reproducible Randomizer.
func NewSeededRandomizer(seed uint64) *Randomizer {
	return &Randomizer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// CoinFlip returns true with probability 0.5.
func (r *Randomizer) CoinFlip() bool {
	return r.rng.IntN(2) == 1
}

// Shuffle permutes items in place (Fisher-Yates).
func (r *Randomizer) Shuffle(items []Item) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Pick returns n items drawn uniformly without replacement. The input slice is
// not modified. When n is out of range the whole group is returned, in its
// original order.
func (r *Randomizer) Pick(items []Item, n int) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	if n <= 0 || n >= len(out) {
		return out
	}
	// Partial Fisher-Yates: the first n positions end up a uniform sample.
	for i := 0; i < n; i++ {
		j := i + r.rng.IntN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}

// Assign binds two candidates to slots A and B with a fair coin flip.
func (r *Randomizer) Assign(x, y Candidate) map[Slot]Candidate {
	if r.CoinFlip() {
		return map[Slot]Candidate{SlotA: x, SlotB: y}
	}
	return map[Slot]Candidate{SlotA: y, SlotB: x}
}
