package physics

import (
	"testing"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/stretchr/testify/require"
)

func TestKinematicIntegration(t *testing.T) {
	w := NewKinematic(geom.Vec2{Y: 10})

	ball := w.CreateBody(BodyDef{Type: Dynamic, Position: geom.Vec2{X: 1}, EntityID: "ball"})
	wall := w.CreateBody(BodyDef{Type: Static, Position: geom.Vec2{X: 5}})
	require.NotZero(t, ball)
	require.NotEqual(t, ball, wall)

	w.SetVelocity(ball, geom.Vec2{X: 2})
	w.SetVelocity(wall, geom.Vec2{X: 2})
	w.Step(0.5)

	p, ok := w.Pose(ball)
	require.True(t, ok)
	require.InDelta(t, 2.0, p.Position.X, 1e-9)
	require.InDelta(t, 2.5, p.Position.Y, 1e-9, "gravity applied before position update")

	p, _ = w.Pose(wall)
	require.Equal(t, geom.Vec2{X: 5}, p.Position, "static bodies never move")

	t.Run("impulse and force", func(t *testing.T) {
		w := NewKinematic(geom.Vec2{})
		h := w.CreateBody(BodyDef{Type: Dynamic})
		w.ApplyImpulse(h, geom.Vec2{X: 3})
		require.Equal(t, geom.Vec2{X: 3}, w.Velocity(h))
		w.ApplyForce(h, geom.Vec2{Y: 4})
		w.Step(1)
		require.Equal(t, geom.Vec2{X: 3, Y: 4}, w.Velocity(h))
		w.Step(1)
		require.Equal(t, geom.Vec2{X: 3, Y: 4}, w.Velocity(h), "forces are cleared after a step")
	})

	t.Run("unknown handles are no-ops", func(t *testing.T) {
		w := NewKinematic(geom.Vec2{})
		w.SetVelocity(99, geom.Vec2{X: 1})
		w.DestroyBody(99)
		_, ok := w.Pose(99)
		require.False(t, ok)
		require.Zero(t, w.AddFixture(99, FixtureDef{}))
	})
}

func TestKinematicContacts(t *testing.T) {
	w := NewKinematic(geom.Vec2{})
	a := w.CreateBody(BodyDef{Type: Dynamic, Position: geom.Vec2{X: 0}})
	w.AddFixture(a, FixtureDef{Shape: Shape{Kind: Circle, Radius: 0.5}})
	b := w.CreateBody(BodyDef{Type: Static, Position: geom.Vec2{X: 2}})
	w.AddFixture(b, FixtureDef{Shape: Shape{Kind: Box, HalfWidth: 0.5, HalfHeight: 0.5}, IsSensor: true})

	w.Step(0.1)
	require.Empty(t, w.DrainContacts())

	w.SetVelocity(a, geom.Vec2{X: 10})
	w.Step(0.15)
	contacts := w.DrainContacts()
	require.Len(t, contacts, 1)
	require.Equal(t, a, contacts[0].BodyA)
	require.Equal(t, b, contacts[0].BodyB)
	require.True(t, contacts[0].Sensor)

	w.SetVelocity(a, geom.Vec2{})
	w.Step(0.1)
	require.Empty(t, w.DrainContacts(), "only the beginning of a contact is reported")

	w.QueueContact(Contact{BodyA: 7, BodyB: 8})
	require.Len(t, w.DrainContacts(), 1)
	require.Empty(t, w.DrainContacts())
}

func TestGrid(t *testing.T) {
	g := newGrid()
	g.Add(0, geom.Bounds{MinX: 0, MaxX: 1, MinY: 0, MaxY: 1})
	g.Add(1, geom.Bounds{MinX: 3.5, MaxX: 4.5, MinY: 0, MaxY: 1}) // spans two cells
	g.Add(2, geom.Bounds{MinX: 4.2, MaxX: 5, MinY: 0, MaxY: 1})
	g.Add(3, geom.Bounds{MinX: -50, MaxX: -49, MinY: 0, MaxY: 1})
	require.Equal(t, [][2]int{{0, 1}, {1, 2}}, g.Candidates())

	g.reset()
	require.Empty(t, g.Candidates())

	t.Run("negative coordinates", func(t *testing.T) {
		require.Equal(t, int32(-1), toCell(-0.1))
		require.Equal(t, int32(0), toCell(0))
		require.Equal(t, int32(1), toCell(cellSize))
	})
}

func TestBroadphaseContacts(t *testing.T) {
	w := NewKinematic(geom.Vec2{})
	ground := w.CreateBody(BodyDef{Type: Static, Position: geom.Vec2{Y: 10}})
	w.AddFixture(ground, FixtureDef{Shape: Shape{Kind: Box, HalfWidth: 40, HalfHeight: 0.5}})

	var balls []BodyHandle
	for i := range 5 {
		h := w.CreateBody(BodyDef{Type: Dynamic, Position: geom.Vec2{X: float64(i*15 - 30), Y: 0}})
		w.AddFixture(h, FixtureDef{Shape: Shape{Kind: Circle, Radius: 0.5}})
		balls = append(balls, h)
	}

	w.Step(0.5)
	require.Empty(t, w.DrainContacts(), "nothing overlaps")

	for _, h := range balls {
		w.SetPose(h, Pose{Position: geom.Vec2{X: poseOf(t, w, h).X, Y: 9.8}})
	}
	w.Step(0.5)
	contacts := w.DrainContacts()
	require.Len(t, contacts, len(balls), "a long ground reaches every ball")
	for i, c := range contacts {
		require.Equal(t, ground, c.BodyA)
		require.Equal(t, balls[i], c.BodyB, "contacts come out in handle order")
	}

	w.SetPose(balls[0], Pose{Position: geom.Vec2{X: -30}})
	w.Step(0.5)
	require.Empty(t, w.DrainContacts())
	w.SetPose(balls[0], Pose{Position: geom.Vec2{X: -30, Y: 9.8}})
	w.Step(0.5)
	require.Len(t, w.DrainContacts(), 1, "separation re-arms the pair")
}

func TestQueryAABB(t *testing.T) {
	w := NewKinematic(geom.Vec2{})
	near := w.CreateBody(BodyDef{Type: Dynamic, Position: geom.Vec2{X: 1, Y: 1}})
	w.AddFixture(near, FixtureDef{Shape: Shape{Kind: Circle, Radius: 0.5}})
	far := w.CreateBody(BodyDef{Type: Static, Position: geom.Vec2{X: 30}})
	w.AddFixture(far, FixtureDef{Shape: Shape{Kind: Circle, Radius: 0.5}})
	straddle := w.CreateBody(BodyDef{Type: Static, Position: geom.Vec2{X: 5.5, Y: 2}})
	w.AddFixture(straddle, FixtureDef{Shape: Shape{Kind: Box, HalfWidth: 1, HalfHeight: 1}})
	w.CreateBody(BodyDef{Type: Static, Position: geom.Vec2{X: 2, Y: 2}}) // no fixtures

	box := geom.Bounds{MinX: 0, MaxX: 5, MinY: 0, MaxY: 5}
	require.Equal(t, []BodyHandle{near, straddle}, w.QueryAABB(box))

	w.SetVelocity(near, geom.Vec2{X: 100})
	w.Step(1)
	require.Equal(t, []BodyHandle{straddle}, w.QueryAABB(box))
	require.Empty(t, w.QueryAABB(geom.Bounds{MinX: -10, MaxX: -5, MinY: -10, MaxY: -5}))
}

func poseOf(t *testing.T, w *KinematicWorld, h BodyHandle) geom.Vec2 {
	t.Helper()
	p, ok := w.Pose(h)
	require.True(t, ok)
	return p.Position
}
