// Package physics defines the narrow contract the runtime needs from a rigid-body
// host, plus Kinematic, a small reference host used by tooling and tests.
package physics

import "github.com/hassoncs/clover-sub000/internal/core/geom"

// BodyHandle is an opaque body reference owned by the host. Zero means none.
type BodyHandle uint32

// ColliderHandle is an opaque fixture reference. Zero means none.
type ColliderHandle uint32

type BodyType string

const (
	Static    BodyType = "static"
	Dynamic   BodyType = "dynamic"
	Kinematic BodyType = "kinematic"
)

type ShapeKind string

const (
	Circle  ShapeKind = "circle"
	Box     ShapeKind = "box"
	Polygon ShapeKind = "polygon"
)

type BodyDef struct {
	Type           BodyType
	Position       geom.Vec2
	Angle          float64
	LinearDamping  float64
	AngularDamping float64
	FixedRotation  bool
	Bullet         bool
	EntityID       string // user data: the owning entity
}

type Shape struct {
	Kind       ShapeKind
	Radius     float64
	HalfWidth  float64
	HalfHeight float64
	Vertices   []geom.Vec2
}

type FixtureDef struct {
	Shape       Shape
	Density     float64
	Friction    float64
	Restitution float64
	IsSensor    bool
}

// Pose is a body's world position and rotation.
type Pose struct {
	Position geom.Vec2
	Angle    float64
}

// World is the physics collaborator. Calls on unknown handles are no-ops.
type World interface {
	CreateBody(def BodyDef) BodyHandle
	AddFixture(body BodyHandle, def FixtureDef) ColliderHandle
	DestroyBody(body BodyHandle)

	Pose(body BodyHandle) (Pose, bool)
	SetPose(body BodyHandle, pose Pose)
	Velocity(body BodyHandle) geom.Vec2
	SetVelocity(body BodyHandle, v geom.Vec2)
	AngularVelocity(body BodyHandle) float64
	SetAngularVelocity(body BodyHandle, w float64)

	ApplyImpulse(body BodyHandle, impulse geom.Vec2)
	ApplyForce(body BodyHandle, force geom.Vec2)
	ApplyTorque(body BodyHandle, torque float64)
}

// Stepper is implemented by hosts that let the runtime advance them.
type Stepper interface {
	Step(dt float64)
}

// AABBQuerier is implemented by hosts that can list the bodies whose fixtures
// overlap a world-space box.
type AABBQuerier interface {
	QueryAABB(box geom.Bounds) []BodyHandle
}

// Contact is a collision-begin or sensor-begin event between two bodies.
type Contact struct {
	BodyA   BodyHandle
	BodyB   BodyHandle
	Normal  geom.Vec2
	Impulse float64
	Sensor  bool
}

// ContactSource is implemented by hosts that buffer begin-contacts for the
// runtime to drain once per frame.
type ContactSource interface {
	DrainContacts() []Contact
}
