package pool

// Sampler draws per-group subsets and merges them into presentation order.
type Sampler struct {
	rnd *Randomizer
}

// NewSampler returns a Sampler using rnd for every random decision.
func NewSampler(rnd *Randomizer) *Sampler {
	if rnd == nil {
		rnd = NewRandomizer()
	}
	return &Sampler{rnd: rnd}
}

// Sample selects sizes[group] items from each group (the whole group when no
// positive size is configured or the group is smaller), concatenates the
// selections in group order and shuffles the result once.
//
// Groups are identified by the Group tag of their first item; an empty group
// contributes nothing. When every group is empty the returned pool is empty.
func (s *Sampler) Sample(groups [][]Item, sizes map[string]int) []Item {
	var merged []Item
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		merged = append(merged, s.rnd.Pick(g, sizes[g[0].Group])...)
	}
	s.rnd.Shuffle(merged)
	return merged
}
