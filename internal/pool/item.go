// Package pool builds the ordered set of comparison items a respondent reviews.
// It loads tabular sources into Items, randomizes which model occupies each
// display slot, and samples/shuffles per-group item lists into one pool.
package pool

import (
	"fmt"
	"strings"
)

// Slot is the positional label a candidate response is displayed under.
type Slot string

const (
	SlotA Slot = "A"
	SlotB Slot = "B"
)

// Valid reports whether s is one of the two display slots.
func (s Slot) Valid() bool {
	return s == SlotA || s == SlotB
}

// Other returns the opposite slot.
func (s Slot) Other() Slot {
	if s == SlotA {
		return SlotB
	}
	return SlotA
}

// ParseSlot accepts "a", "A", "b" or "B".
func ParseSlot(v string) (Slot, error) {
	s := Slot(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("invalid slot %q: want A or B", v)
	}
	return s, nil
}

// Candidate is one model's response to a question.
type Candidate struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// Item is one comparison unit: a question and two candidates bound to slots.
// Items are created once at load time and never mutated.
type Item struct {
	ID       string             `json:"id"`
	Question string             `json:"question"`
	Slots    map[Slot]Candidate `json:"slots"`
	Group    string             `json:"group"`
}

// Candidate returns the candidate shown under slot s.
func (it Item) Candidate(s Slot) (Candidate, bool) {
	c, ok := it.Slots[s]
	return c, ok
}

// ItemID builds the stable identifier for the row at index idx of group.
func ItemID(group string, idx int) string {
	return fmt.Sprintf("%s_%d", group, idx)
}

// IDs returns the item identifiers in pool order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
