// Package frame holds the per-frame inputs shared by behaviors and rules: the
// input snapshot and the collisions reported since the previous clear.
package frame

import (
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/physics"
)

// Tap is a completed tap in world coordinates. Target is the id of the entity
// the host hit-tested under the tap, if any.
type Tap struct {
	World  geom.Vec2
	Target string
}

// DragEnd is a released drag with its world-space release velocity.
type DragEnd struct {
	Velocity geom.Vec2
}

// Input is the host's input snapshot for one frame.
type Input struct {
	Tap     *Tap
	DragEnd *DragEnd
	Tilt    *geom.Vec2
	// Buttons held this frame, keyed by name (left, right, up, down, jump, ...).
	Buttons map[string]bool
	// Pressed lists buttons that went down this frame.
	Pressed map[string]bool
	// Start marks the frame the game was explicitly started.
	Start bool
}

// Held reports whether button is held.
func (in Input) Held(button string) bool { return in.Buttons[button] }

// JustPressed reports whether button went down this frame.
func (in Input) JustPressed(button string) bool { return in.Pressed[button] }

// Collision is a begin-contact between two entities.
type Collision struct {
	A, B    *entity.Entity
	Normal  geom.Vec2
	Impulse float64
	Sensor  bool
}

// Involves returns the other participant when e is one side of c.
func (c Collision) Involves(e *entity.Entity) (*entity.Entity, bool) {
	switch e {
	case c.A:
		return c.B, true
	case c.B:
		return c.A, true
	}
	return nil, false
}

// Matches reports whether the pair covers tagA and tagB, in either order.
func (c Collision) Matches(tagA, tagB string) bool {
	return (c.A.HasTag(tagA) && c.B.HasTag(tagB)) || (c.A.HasTag(tagB) && c.B.HasTag(tagA))
}

// Point is the midpoint between the two participants.
func (c Collision) Point() geom.Vec2 {
	return c.A.Position().Add(c.B.Position()).Scale(0.5)
}

// FromContact maps a physics contact onto the entities owning its bodies. It
// reports false when either body has no live entity.
func FromContact(reg *entity.Registry, c physics.Contact) (Collision, bool) {
	a, b := reg.EntityByBody(c.BodyA), reg.EntityByBody(c.BodyB)
	if a == nil || b == nil || a.Destroyed() || b.Destroyed() {
		return Collision{}, false
	}
	return Collision{A: a, B: b, Normal: c.Normal, Impulse: c.Impulse, Sensor: c.Sensor}, true
}

// Buffer accumulates one frame's inputs and collisions until cleanup clears it.
// DT and Elapsed are the current frame's step and clock, in seconds.
type Buffer struct {
	DT      float64
	Elapsed float64

	Input      Input
	Collisions []Collision
}

// AddCollision appends a collision unless either side is missing.
func (b *Buffer) AddCollision(c Collision) bool {
	if c.A == nil || c.B == nil {
		return false
	}
	b.Collisions = append(b.Collisions, c)
	return true
}

// Clear drops the input snapshot and collisions. The collision slice is not
// reused; handlers may still hold the old one.
func (b *Buffer) Clear() {
	b.Input = Input{}
	b.Collisions = nil
}
