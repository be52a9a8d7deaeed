// Package conditional picks the active conditional behavior group from an
// entity's tags. It holds no state.
package conditional

import "github.com/hassoncs/clover-sub000/internal/scene"

// None is the group index meaning no group is active.
const None = -1

// Matches reports whether every clause of p holds for the tag test has.
func Matches(p scene.Predicate, has func(string) bool) bool {
	if p.HasTag != "" && !has(p.HasTag) {
		return false
	}
	if p.LacksTag != "" && has(p.LacksTag) {
		return false
	}
	if len(p.HasAnyTag) > 0 {
		found := false
		for _, t := range p.HasAnyTag {
			if has(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, t := range p.HasAllTags {
		if !has(t) {
			return false
		}
	}
	return true
}

// Select returns the index of the matching group with the highest priority,
// the earliest declared on ties, or None.
func Select(groups []scene.ConditionalGroup, has func(string) bool) int {
	best := None
	for i, g := range groups {
		if !Matches(g.When, has) {
			continue
		}
		if best == None || g.Priority > groups[best].Priority {
			best = i
		}
	}
	return best
}

// Transition is a pending change of active group, consumed by the scheduler.
type Transition struct {
	From int
	To   int
}

// Then folds a later change into t. Several tag changes in one frame collapse
// into one transition from the group active at the last scheduler pass; ok is
// false when the net effect is no change.
func (t Transition) Then(next Transition) (merged Transition, ok bool) {
	merged = Transition{From: t.From, To: next.To}
	return merged, merged.From != merged.To
}
