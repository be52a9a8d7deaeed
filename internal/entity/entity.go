package entity

import (
	"github.com/hassoncs/clover-sub000/internal/conditional"
	"github.com/hassoncs/clover-sub000/internal/core/ecs"
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/core/tags"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"github.com/hassoncs/clover-sub000/internal/scene"
)

// RuntimeBehavior is one attached behavior: its definition, an enabled flag and
// a private state bag for the handler.
type RuntimeBehavior struct {
	Def     scene.Behavior
	Enabled bool
	State   map[string]any
}

func newRuntimeBehavior(def scene.Behavior) *RuntimeBehavior {
	return &RuntimeBehavior{Def: def, Enabled: def.Enabled, State: make(map[string]any)}
}

// ResetBehaviorState drops the per-behavior runtime state of every behavior,
// group members included. Enabled flags are kept.
func (e *Entity) ResetBehaviorState() {
	for _, b := range e.Behaviors {
		clear(b.State)
	}
	for _, g := range e.Groups {
		for _, b := range g.Behaviors {
			clear(b.State)
		}
	}
}

// Group is a conditional behavior group attached to an entity.
type Group struct {
	When      scene.Predicate
	Priority  int
	Behaviors []*RuntimeBehavior
}

// Entity is the unit of simulation. Tag and hierarchy fields are owned by the
// Registry; mutate them only through it.
type Entity struct {
	ID       string
	Handle   ecs.EntityID
	Name     string
	Template string

	Local geom.Transform
	World geom.Transform

	Body     physics.BodyHandle
	Collider physics.ColliderHandle
	Physics  *scene.Physics

	Behaviors   []*RuntimeBehavior
	Groups      []*Group
	ActiveGroup int

	Visible bool
	Active  bool
	Layer   int

	parent   string
	children []string

	tags    []string
	tagBits tags.Set
	tagReg  *tags.Registry

	groupDefs []scene.ConditionalGroup
	pending   conditional.Transition
	hasPend   bool
	seq       uint64
	destroyed bool
}

// Position returns the world position.
func (e *Entity) Position() geom.Vec2 { return e.World.Position() }

// Tags returns the entity's tags in the order they were added.
func (e *Entity) Tags() []string { return e.tags }

// HasTag is a bitset lookup through the interned tag id.
func (e *Entity) HasTag(tag string) bool {
	id, ok := e.tagReg.Lookup(tag)
	return ok && e.tagBits.Has(id)
}

// HasAnyTag reports whether e carries at least one of tags.
func (e *Entity) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}

func (e *Entity) Parent() string     { return e.parent }
func (e *Entity) ChildIDs() []string { return e.children }

// Destroyed reports whether e was removed from its registry. Pointers held across
// a destroy must check this (or resolve the Handle) before use.
func (e *Entity) Destroyed() bool { return e.destroyed }

// Pending returns the group transition awaiting the scheduler's lifecycle pass.
func (e *Entity) Pending() (conditional.Transition, bool) { return e.pending, e.hasPend }

// TakePending returns and clears the pending transition.
func (e *Entity) TakePending() (conditional.Transition, bool) {
	t, ok := e.pending, e.hasPend
	e.pending, e.hasPend = conditional.Transition{}, false
	return t, ok
}

// LiveGroup is the group whose activation has been processed: while a transition
// is pending, the old group stays live until the lifecycle pass swaps it.
func (e *Entity) LiveGroup() *Group {
	idx := e.ActiveGroup
	if e.hasPend {
		idx = e.pending.From
	}
	if idx < 0 || idx >= len(e.Groups) {
		return nil
	}
	return e.Groups[idx]
}

// GroupAt returns the group at idx, or nil for None and out-of-range values.
func (e *Entity) GroupAt(idx int) *Group {
	if idx < 0 || idx >= len(e.Groups) {
		return nil
	}
	return e.Groups[idx]
}

func (e *Entity) recordTransition(next int) {
	if next == e.ActiveGroup {
		return
	}
	t := conditional.Transition{From: e.ActiveGroup, To: next}
	if e.hasPend {
		t, e.hasPend = e.pending.Then(t)
		e.pending = t
	} else {
		e.pending, e.hasPend = t, true
	}
	e.ActiveGroup = next
}
