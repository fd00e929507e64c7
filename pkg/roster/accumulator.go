package roster

import (
	"encoding/json"
	"sort"
)

// Accumulator folds page items into a growing set of unique members.
// Members are kept in arrival order until Sorted is called.
// It is owned by a single run and is not safe for concurrent use.
type Accumulator struct {
	seen    map[int64]struct{}
	members []Member
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[int64]struct{})}
}

// Add merges one page of raw items and returns how many new members were recorded.
// Malformed items, items without a usable identifier and identifiers already
// recorded are skipped.
func (a *Accumulator) Add(items []json.RawMessage) int {
	added := 0
	for _, item := range items {
		m, ok := memberFromItem(item)
		if !ok {
			continue
		}
		if a.record(m) {
			added++
		}
	}
	return added
}

// Seed restores previously collected members, e.g. from a checkpoint.
// Duplicates inside the seed are dropped like any other duplicate.
func (a *Accumulator) Seed(members []Member) int {
	added := 0
	for _, m := range members {
		if a.record(m) {
			added++
		}
	}
	return added
}

func (a *Accumulator) record(m Member) bool {
	if _, dup := a.seen[m.UserID]; dup {
		return false
	}
	a.seen[m.UserID] = struct{}{}
	a.members = append(a.members, m)
	return true
}

// Len returns the number of unique members recorded.
func (a *Accumulator) Len() int {
	return len(a.members)
}

// Members returns a copy of the members in arrival order.
func (a *Accumulator) Members() []Member {
	out := make([]Member, len(a.members))
	copy(out, a.members)
	return out
}

// Sorted returns a copy of the members sorted ascending by UserID.
func (a *Accumulator) Sorted() []Member {
	out := a.Members()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UserID < out[j].UserID
	})
	return out
}
