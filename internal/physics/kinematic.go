package physics

import (
	"math"
	"sort"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
)

type body struct {
	def       BodyDef
	pose      Pose
	vel       geom.Vec2
	angVel    float64
	force     geom.Vec2
	torque    float64
	fixtures  []FixtureDef
	colliders []ColliderHandle
}

type pair struct{ a, b BodyHandle }

// KinematicWorld integrates velocities with unit mass and reports begin-contacts
// from bounding-box overlap, with a uniform grid as broadphase. It is
// deterministic: bodies are visited in handle order.
type KinematicWorld struct {
	gravity      geom.Vec2
	bodies       map[BodyHandle]*body
	nextBody     BodyHandle
	nextCollider ColliderHandle
	touching     map[pair]bool
	contacts     []Contact
	grid         *grid
}

var (
	_ World         = (*KinematicWorld)(nil)
	_ Stepper       = (*KinematicWorld)(nil)
	_ ContactSource = (*KinematicWorld)(nil)
)

func NewKinematic(gravity geom.Vec2) *KinematicWorld {
	return &KinematicWorld{
		gravity:  gravity,
		bodies:   make(map[BodyHandle]*body),
		touching: make(map[pair]bool),
		grid:     newGrid(),
	}
}

func (w *KinematicWorld) CreateBody(def BodyDef) BodyHandle {
	w.nextBody++
	w.bodies[w.nextBody] = &body{def: def, pose: Pose{Position: def.Position, Angle: def.Angle}}
	return w.nextBody
}

func (w *KinematicWorld) AddFixture(h BodyHandle, def FixtureDef) ColliderHandle {
	b, ok := w.bodies[h]
	if !ok {
		return 0
	}
	w.nextCollider++
	b.fixtures = append(b.fixtures, def)
	b.colliders = append(b.colliders, w.nextCollider)
	return w.nextCollider
}

func (w *KinematicWorld) DestroyBody(h BodyHandle) {
	delete(w.bodies, h)
	for p := range w.touching {
		if p.a == h || p.b == h {
			delete(w.touching, p)
		}
	}
}

// Len returns the number of live bodies.
func (w *KinematicWorld) Len() int { return len(w.bodies) }

// Def returns the definition a body was created with.
func (w *KinematicWorld) Def(h BodyHandle) (BodyDef, bool) {
	b, ok := w.bodies[h]
	if !ok {
		return BodyDef{}, false
	}
	return b.def, true
}

// Fixtures returns the fixtures attached to a body.
func (w *KinematicWorld) Fixtures(h BodyHandle) []FixtureDef {
	if b, ok := w.bodies[h]; ok {
		return b.fixtures
	}
	return nil
}

func (w *KinematicWorld) Pose(h BodyHandle) (Pose, bool) {
	b, ok := w.bodies[h]
	if !ok {
		return Pose{}, false
	}
	return b.pose, true
}

func (w *KinematicWorld) SetPose(h BodyHandle, p Pose) {
	if b, ok := w.bodies[h]; ok {
		b.pose = p
	}
}

func (w *KinematicWorld) Velocity(h BodyHandle) geom.Vec2 {
	if b, ok := w.bodies[h]; ok {
		return b.vel
	}
	return geom.Vec2{}
}

func (w *KinematicWorld) SetVelocity(h BodyHandle, v geom.Vec2) {
	if b, ok := w.bodies[h]; ok && b.def.Type != Static {
		b.vel = v
	}
}

func (w *KinematicWorld) AngularVelocity(h BodyHandle) float64 {
	if b, ok := w.bodies[h]; ok {
		return b.angVel
	}
	return 0
}

func (w *KinematicWorld) SetAngularVelocity(h BodyHandle, av float64) {
	if b, ok := w.bodies[h]; ok && b.def.Type != Static && !b.def.FixedRotation {
		b.angVel = av
	}
}

func (w *KinematicWorld) ApplyImpulse(h BodyHandle, impulse geom.Vec2) {
	if b, ok := w.bodies[h]; ok && b.def.Type == Dynamic {
		b.vel = b.vel.Add(impulse)
	}
}

func (w *KinematicWorld) ApplyForce(h BodyHandle, force geom.Vec2) {
	if b, ok := w.bodies[h]; ok && b.def.Type == Dynamic {
		b.force = b.force.Add(force)
	}
}

func (w *KinematicWorld) ApplyTorque(h BodyHandle, torque float64) {
	if b, ok := w.bodies[h]; ok && b.def.Type == Dynamic && !b.def.FixedRotation {
		b.torque += torque
	}
}

// Step integrates every non-static body, then records begin-contacts.
func (w *KinematicWorld) Step(dt float64) {
	handles := w.handles()
	for _, h := range handles {
		b := w.bodies[h]
		if b.def.Type == Static {
			continue
		}
		if b.def.Type == Dynamic {
			b.vel = b.vel.Add(b.force.Add(w.gravity).Scale(dt))
			b.angVel += b.torque * dt
		}
		if b.def.LinearDamping > 0 {
			b.vel = b.vel.Scale(1 / (1 + dt*b.def.LinearDamping))
		}
		if b.def.AngularDamping > 0 {
			b.angVel /= 1 + dt*b.def.AngularDamping
		}
		b.pose.Position = b.pose.Position.Add(b.vel.Scale(dt))
		if !b.def.FixedRotation {
			b.pose.Angle += b.angVel * dt
		}
		b.force = geom.Vec2{}
		b.torque = 0
	}
	w.detect(handles)
}

// QueueContact injects a begin-contact, as a host's contact listener would.
func (w *KinematicWorld) QueueContact(c Contact) {
	w.contacts = append(w.contacts, c)
}

func (w *KinematicWorld) DrainContacts() []Contact {
	out := w.contacts
	w.contacts = nil
	return out
}

// QueryAABB returns, in handle order, the bodies whose fixture bounds overlap box.
func (w *KinematicWorld) QueryAABB(box geom.Bounds) []BodyHandle {
	var out []BodyHandle
	for _, h := range w.handles() {
		if b, solid := w.bounds(w.bodies[h]); solid && overlap(b, box) {
			out = append(out, h)
		}
	}
	return out
}

func (w *KinematicWorld) handles() []BodyHandle {
	hs := make([]BodyHandle, 0, len(w.bodies))
	for h := range w.bodies {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// detect finds overlapping pairs through the broadphase grid and reports the
// ones that were not touching last step. Contacts come out in handle order.
func (w *KinematicWorld) detect(handles []BodyHandle) {
	w.grid.reset()
	boxes := make([]geom.Bounds, len(handles))
	for i, h := range handles {
		box, solid := w.bounds(w.bodies[h])
		if !solid {
			continue
		}
		boxes[i] = box
		w.grid.Add(i, box)
	}

	now := make(map[pair]bool, len(w.touching))
	for _, c := range w.grid.Candidates() {
		i, j := c[0], c[1]
		a, b := w.bodies[handles[i]], w.bodies[handles[j]]
		if a.def.Type == Static && b.def.Type == Static {
			continue
		}
		if !overlap(boxes[i], boxes[j]) {
			continue
		}
		p := pair{handles[i], handles[j]}
		now[p] = true
		if w.touching[p] {
			continue
		}
		rel := b.vel.Sub(a.vel)
		w.contacts = append(w.contacts, Contact{
			BodyA:   p.a,
			BodyB:   p.b,
			Normal:  b.pose.Position.Sub(a.pose.Position).Normalize(),
			Impulse: rel.Len(),
			Sensor:  isSensor(a) || isSensor(b),
		})
	}
	w.touching = now
}

func (w *KinematicWorld) bounds(b *body) (geom.Bounds, bool) {
	if len(b.fixtures) == 0 {
		return geom.Bounds{}, false
	}
	p := b.pose.Position
	box := geom.Bounds{MinX: math.Inf(1), MaxX: math.Inf(-1), MinY: math.Inf(1), MaxY: math.Inf(-1)}
	grow := func(x, y float64) {
		box.MinX = math.Min(box.MinX, x)
		box.MaxX = math.Max(box.MaxX, x)
		box.MinY = math.Min(box.MinY, y)
		box.MaxY = math.Max(box.MaxY, y)
	}
	for _, f := range b.fixtures {
		switch f.Shape.Kind {
		case Circle:
			grow(p.X-f.Shape.Radius, p.Y-f.Shape.Radius)
			grow(p.X+f.Shape.Radius, p.Y+f.Shape.Radius)
		case Box:
			if b.pose.Angle == 0 {
				grow(p.X-f.Shape.HalfWidth, p.Y-f.Shape.HalfHeight)
				grow(p.X+f.Shape.HalfWidth, p.Y+f.Shape.HalfHeight)
				continue
			}
			// rotated boxes use their bounding circle
			r := math.Hypot(f.Shape.HalfWidth, f.Shape.HalfHeight)
			grow(p.X-r, p.Y-r)
			grow(p.X+r, p.Y+r)
		case Polygon:
			for _, v := range f.Shape.Vertices {
				rv := v.Rotate(b.pose.Angle)
				grow(p.X+rv.X, p.Y+rv.Y)
			}
		}
	}
	return box, box.MinX <= box.MaxX
}

func overlap(a, b geom.Bounds) bool {
	return a.MinX < b.MaxX && b.MinX < a.MaxX && a.MinY < b.MaxY && b.MinY < a.MaxY
}

func isSensor(b *body) bool {
	for _, f := range b.fixtures {
		if f.IsSensor {
			return true
		}
	}
	return false
}
