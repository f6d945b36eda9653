package pool

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler_GroupSizes(t *testing.T) {
	before := makeGroup("before", 15)
	after := makeGroup("after", 30)
	s := NewSampler(NewSeededRandomizer(5))

	out := s.Sample([][]Item{before, after}, map[string]int{"before": 8, "after": 12})
	require.Len(t, out, 20)

	counts := map[string]int{}
	seen := map[string]bool{}
	for _, it := range out {
		counts[it.Group]++
		assert.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true
	}
	assert.Equal(t, 8, counts["before"])
	assert.Equal(t, 12, counts["after"])
}

func TestSampler_WholeGroupWhenUnsizedOrSmall(t *testing.T) {
	s := NewSampler(NewSeededRandomizer(5))

	out := s.Sample([][]Item{makeGroup("before", 3), makeGroup("after", 4)}, map[string]int{"before": 10})
	assert.Len(t, out, 7)

	out = s.Sample([][]Item{makeGroup("before", 3)}, map[string]int{"before": 0})
	assert.Len(t, out, 3)
}

func TestSampler_EmptyGroups(t *testing.T) {
	s := NewSampler(NewSeededRandomizer(5))
	assert.Empty(t, s.Sample([][]Item{nil, {}}, map[string]int{"before": 8}))
	assert.Empty(t, s.Sample(nil, nil))
}

func TestSampler_ShuffleLaw(t *testing.T) {
	groups := [][]Item{makeGroup("before", 10), makeGroup("after", 10)}

	first := NewSampler(NewSeededRandomizer(1)).Sample(groups, nil)
	second := NewSampler(NewSeededRandomizer(2)).Sample(groups, nil)

	a, b := IDs(first), IDs(second)
	sort.Strings(a)
	sort.Strings(b)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("samples are not permutations of the same ids (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, IDs(first), IDs(second), "different seeds should yield different orders")
}

func TestSampler_DoesNotMutateInput(t *testing.T) {
	group := makeGroup("before", 10)
	orig := IDs(group)
	NewSampler(NewSeededRandomizer(3)).Sample([][]Item{group}, map[string]int{"before": 4})
	assert.Equal(t, orig, IDs(group))
}

func TestRandomizer_PickIsUniform(t *testing.T) {
	group := makeGroup("g", 4)
	rnd := NewSeededRandomizer(11)
	hits := map[string]int{}
	const trials = 4000
	for i := 0; i < trials; i++ {
		for _, it := range rnd.Pick(group, 1) {
			hits[it.ID]++
		}
	}
	for _, it := range group {
		assert.InDelta(t, trials/4, hits[it.ID], 150, "item %s", it.ID)
	}
}

func TestRandomizer_ShuffleFirstPositionIsUniform(t *testing.T) {
	rnd := NewSeededRandomizer(12)
	hits := map[string]int{}
	const trials = 3000
	for i := 0; i < trials; i++ {
		g := makeGroup("g", 3)
		rnd.Shuffle(g)
		hits[g[0].ID]++
	}
	for _, id := range []string{"g_0", "g_1", "g_2"} {
		assert.InDelta(t, trials/3, hits[id], 150, "id %s", id)
	}
}

func TestSlot(t *testing.T) {
	s, err := ParseSlot(" a ")
	require.NoError(t, err)
	assert.Equal(t, SlotA, s)
	assert.Equal(t, SlotB, s.Other())

	_, err = ParseSlot("C")
	assert.Error(t, err)
	assert.False(t, Slot("").Valid())
}
