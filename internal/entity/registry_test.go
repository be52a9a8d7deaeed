package entity

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/hassoncs/clover-sub000/internal/conditional"
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func at(x, y float64) *geom.Transform {
	t := geom.Identity
	t.X, t.Y = x, y
	return &t
}

func newTestRegistry(t *testing.T) (*Registry, *physics.KinematicWorld, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	phys := physics.NewKinematic(geom.Vec2{})
	return NewRegistry(phys, nil, zap.New(core)), phys, logs
}

func TestCreate(t *testing.T) {
	r, phys, logs := newTestRegistry(t)
	layer := 4
	r.RegisterTemplate("coin", &scene.Template{
		ID:        "coin",
		Tags:      []string{"coin", "pickup"},
		Layer:     &layer,
		Physics:   &scene.Physics{BodyType: "static", Shape: "circle", Radius: 0.5, IsSensor: true},
		Behaviors: []scene.Behavior{scene.NewBehavior(&scene.RotateParams{Speed: scene.Lit(1)})},
	})

	t.Run("template merge", func(t *testing.T) {
		e := r.Create(scene.EntityDef{ID: "c1", Name: "Coin", Template: "coin", Transform: at(3, 4), Tags: []string{"gold", "coin"}})
		require.NotNil(t, e)
		require.Equal(t, []string{"coin", "pickup", "gold"}, e.Tags(), "template tags first, no duplicates")
		require.Equal(t, 4, e.Layer)
		require.Len(t, e.Behaviors, 1)
		require.Equal(t, scene.KindRotate, e.Behaviors[0].Def.Kind)

		require.NotZero(t, e.Body)
		require.Same(t, e, r.EntityByBody(e.Body))
		def, ok := phys.Def(e.Body)
		require.True(t, ok)
		require.Equal(t, physics.Static, def.Type)
		require.Equal(t, geom.Vec2{X: 3, Y: 4}, def.Position)
		require.Equal(t, "c1", def.EntityID)
		require.True(t, phys.Fixtures(e.Body)[0].IsSensor)
	})

	t.Run("definition overrides template", func(t *testing.T) {
		e := r.Create(scene.EntityDef{ID: "c2", Name: "Coin", Template: "coin", Transform: at(0, 0),
			Behaviors: []scene.Behavior{}, Physics: &scene.Physics{BodyType: "dynamic", Shape: "box", Width: 2, Height: 1}})
		require.Empty(t, e.Behaviors)
		require.Equal(t, physics.Shape{Kind: physics.Box, HalfWidth: 1, HalfHeight: 0.5}, phys.Fixtures(e.Body)[0].Shape)
	})

	t.Run("missing template falls back to the definition", func(t *testing.T) {
		e := r.Create(scene.EntityDef{ID: "ghost", Name: "Ghost", Template: "nope", Tags: []string{"ghost"}})
		require.NotNil(t, e)
		require.Equal(t, []string{"ghost"}, e.Tags())
		require.Equal(t, 1, logs.FilterMessage("template not found, using definition as-is").Len())
	})

	t.Run("duplicate id", func(t *testing.T) {
		require.Nil(t, r.Create(scene.EntityDef{ID: "c1", Name: "again"}))
		require.Equal(t, 1, logs.FilterMessage("entity id already exists").Len())
	})

	t.Run("unknown shape and kind degrade", func(t *testing.T) {
		e := r.Create(scene.EntityDef{ID: "odd", Name: "Odd",
			Physics:   &scene.Physics{Shape: "capsule"},
			Behaviors: []scene.Behavior{{Kind: "teleport", Enabled: true}}})
		require.NotNil(t, e)
		require.NotZero(t, e.Body)
		require.Empty(t, phys.Fixtures(e.Body))
		require.Empty(t, e.Behaviors)
		require.Equal(t, 1, logs.FilterMessage("unknown physics shape, fixture skipped").Len())
		require.Equal(t, 1, logs.FilterMessage("unknown behavior kind, skipped").Len())
	})
}

func TestPooledIDs(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	a := r.Spawn("bullet", geom.Vec2{X: 1})
	require.Equal(t, "pooled_0_1", a.ID)
	handle := a.Handle

	require.True(t, r.Destroy(a.ID, false))
	require.True(t, a.Destroyed())
	require.Nil(t, r.Resolve(handle))
	require.False(t, r.Destroy(a.ID, false), "second destroy is a no-op")

	b := r.Spawn("bullet", geom.Vec2{})
	require.Equal(t, "pooled_0_2", b.ID, "slot reused with a bumped generation")
	require.Nil(t, r.Resolve(handle), "old handle stays stale")
	require.Same(t, b, r.Resolve(b.Handle))
}

func TestTags(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	e := r.Create(scene.EntityDef{ID: "e", Name: "E"})

	require.True(t, r.AddTag("e", "enemy"))
	require.False(t, r.AddTag("e", "enemy"), "already present")
	require.True(t, r.HasTag("e", "enemy"))
	require.Equal(t, []string{"enemy"}, e.Tags())
	require.Equal(t, []*Entity{e}, r.EntitiesByTag("enemy"))

	require.True(t, r.RemoveTag("e", "enemy"))
	require.False(t, r.RemoveTag("e", "enemy"))
	require.False(t, r.HasTag("e", "enemy"))
	require.Empty(t, r.EntitiesByTag("enemy"))
	require.Empty(t, r.EntitiesByTag("never-seen"))

	require.False(t, r.AddTag("missing", "x"))
	require.False(t, r.RemoveTag("missing", "x"))

	t.Run("results follow creation order", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			r.Create(scene.EntityDef{ID: fmt.Sprintf("n%02d", i), Name: "n", Tags: []string{"n"}})
		}
		// re-adding in reverse must not change the order
		for i := 19; i >= 0; i-- {
			id := fmt.Sprintf("n%02d", i)
			r.RemoveTag(id, "n")
			r.AddTag(id, "n")
		}
		got := r.EntitiesByTag("n")
		require.Len(t, got, 20)
		for i, e := range got {
			require.Equal(t, fmt.Sprintf("n%02d", i), e.ID)
		}
		require.Equal(t, 20, r.CountByTag("n"))
	})

	t.Run("destroy clears every bucket", func(t *testing.T) {
		r.Create(scene.EntityDef{ID: "multi", Name: "m", Tags: []string{"a", "b", "c"}})
		r.Destroy("multi", false)
		for _, tag := range []string{"a", "b", "c"} {
			require.Zero(t, r.CountByTag(tag))
		}
	})
}

func TestTagQueryPerformance(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	for i := 0; i < 1000; i++ {
		r.Create(scene.EntityDef{Name: "e", Tags: []string{"crowd"}})
	}
	start := time.Now()
	got := r.EntitiesByTag("crowd")
	require.Less(t, time.Since(start), time.Millisecond)
	require.Len(t, got, 1000)

	r2, _, _ := newTestRegistry(t)
	for i := 0; i < 100; i++ {
		tags := make([]string, 10)
		for j := range tags {
			tags[j] = fmt.Sprintf("t%d", (i+j)%10)
		}
		r2.Create(scene.EntityDef{Name: "e", Tags: tags})
	}
	start = time.Now()
	for j := 0; j < 10; j++ {
		require.Len(t, r2.EntitiesByTag(fmt.Sprintf("t%d", j)), 100)
	}
	require.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestHierarchy(t *testing.T) {
	r, phys, logs := newTestRegistry(t)

	parent := r.Create(scene.EntityDef{ID: "p", Name: "P", Transform: &geom.Transform{X: 10, Y: 5, Angle: math.Pi / 2, ScaleX: 2, ScaleY: 1}})
	child := r.Create(scene.EntityDef{ID: "c", Name: "C", Transform: at(3, 7), Physics: &scene.Physics{Shape: "circle", Radius: 1}})

	t.Run("attach preserves world position", func(t *testing.T) {
		before := child.World
		require.True(t, r.AttachChild("p", "c", nil))
		require.Equal(t, "p", child.Parent())
		require.InDelta(t, before.X, child.World.X, 1e-9)
		require.InDelta(t, before.Y, child.World.Y, 1e-9)
		require.True(t, geom.ApproxEqual(child.World, geom.Combine(parent.World, child.Local), 1e-9))
	})

	t.Run("explicit local transform", func(t *testing.T) {
		other := r.Create(scene.EntityDef{ID: "o", Name: "O"})
		require.True(t, r.AttachChild("p", "o", at(1, 0)))
		// quarter turn with x scale 2: (1,0) -> (0,2)
		require.InDelta(t, 10.0, other.World.X, 1e-9)
		require.InDelta(t, 7.0, other.World.Y, 1e-9)
		require.True(t, r.Detach("o"))
		require.InDelta(t, 7.0, other.World.Y, 1e-9)
		require.Equal(t, other.World, other.Local)
	})

	t.Run("moving the parent moves the child and its body", func(t *testing.T) {
		local := parent.Local
		local.X += 1
		require.True(t, r.SetTransform("p", local))
		require.True(t, geom.ApproxEqual(child.World, geom.Combine(parent.World, child.Local), 1e-9))
		pose, _ := phys.Pose(child.Body)
		require.InDelta(t, child.World.X, pose.Position.X, 1e-9)
	})

	t.Run("cycle guard", func(t *testing.T) {
		r.Create(scene.EntityDef{ID: "g", Name: "G"})
		require.True(t, r.Reparent("g", "c"))
		require.False(t, r.Reparent("p", "g"), "p is an ancestor of g")
		require.False(t, r.Reparent("p", "p"))
		require.Equal(t, "", parent.Parent())
		require.Equal(t, 2, logs.FilterMessage("attach: would create a cycle").Len())
		require.False(t, r.AttachChild("p", "missing", nil))
	})

	t.Run("queries", func(t *testing.T) {
		require.Equal(t, []*Entity{child}, r.Children("p"))
		require.Equal(t, []string{"c", "g"}, ids(r.Descendants("p")))
		require.Equal(t, []string{"c", "p"}, ids(r.Ancestors("g")))
		require.Same(t, parent, r.Root("g"))
		require.Same(t, parent, r.Parent("c"))
		require.Nil(t, r.Parent("p"))
	})

	t.Run("reparent to none", func(t *testing.T) {
		before := r.Get("g").World
		require.True(t, r.Reparent("g", ""))
		require.Equal(t, "", r.Get("g").Parent())
		require.True(t, geom.ApproxEqual(before, r.Get("g").World, 1e-9))
	})
}

func ids(es []*Entity) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestDestroy(t *testing.T) {
	build := func(t *testing.T) (*Registry, *physics.KinematicWorld) {
		r, phys, _ := newTestRegistry(t)
		r.Create(scene.EntityDef{ID: "root", Name: "Root", Transform: &geom.Transform{X: 5, Angle: 0.3, ScaleX: 1, ScaleY: 1},
			Tags: []string{"tree"},
			Children: []scene.ChildDef{{
				Name: "arm", LocalTransform: at(2, 0), Tags: []string{"tree", "limb"},
				Physics:  &scene.Physics{Shape: "circle", Radius: 0.2},
				Children: []scene.ChildDef{{Name: "hand", LocalTransform: at(1, 0), Tags: []string{"tree", "limb"}}},
			}},
		})
		return r, phys
	}

	t.Run("recursive", func(t *testing.T) {
		r, phys := build(t)
		require.Equal(t, 3, r.Len())
		require.NotNil(t, r.Get("root_arm_hand"))
		require.Equal(t, 1, phys.Len())

		require.True(t, r.Destroy("root", true))
		require.Zero(t, r.Len())
		require.Zero(t, r.CountByTag("tree"))
		require.Zero(t, r.CountByTag("limb"))
		require.Zero(t, phys.Len())
	})

	t.Run("non-recursive keeps descendants in place", func(t *testing.T) {
		r, _ := build(t)
		arm := r.Get("root_arm")
		hand := r.Get("root_arm_hand")
		armWorld, handWorld := arm.World, hand.World

		require.True(t, r.Destroy("root", false))
		require.Equal(t, 2, r.Len())
		require.Equal(t, "", arm.Parent())
		require.Equal(t, "root_arm", hand.Parent())
		require.True(t, geom.ApproxEqual(armWorld, arm.World, 1e-9))
		require.True(t, geom.ApproxEqual(handWorld, hand.World, 1e-9))
		require.Equal(t, 2, r.CountByTag("tree"))
	})

	t.Run("child is removed from its parent", func(t *testing.T) {
		r, _ := build(t)
		require.True(t, r.Destroy("root_arm_hand", false))
		require.Empty(t, r.Get("root_arm").ChildIDs())
	})
}

func TestSlots(t *testing.T) {
	r, _, logs := newTestRegistry(t)
	layer := 9
	r.RegisterTemplate("car", &scene.Template{
		ID:       "car",
		Slots:    map[string]scene.Slot{"front": {X: 2, Y: 0.5, Layer: &layer}},
		Children: []scene.ChildDef{{Name: "wheel", Slot: "front"}, {Name: "spare", Slot: "trunk"}},
	})
	car := r.Create(scene.EntityDef{ID: "car", Name: "Car", Template: "car", Transform: at(10, 0)})
	require.Equal(t, []string{"car_wheel", "car_spare"}, car.ChildIDs())

	wheel := r.Get("car_wheel")
	require.Equal(t, 9, wheel.Layer)
	require.InDelta(t, 12.0, wheel.World.X, 1e-9)
	require.InDelta(t, 0.5, wheel.World.Y, 1e-9)
	require.Equal(t, 1, logs.FilterMessage("child slot not found").Len())
}

func TestTemplateCycles(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		r, _, logs := newTestRegistry(t)
		r.RegisterTemplate("a", &scene.Template{ID: "a", Children: []scene.ChildDef{{Name: "x", Template: "a"}}})

		e := r.Create(scene.EntityDef{ID: "e", Name: "E", Template: "a", Transform: at(0, 0)})
		require.NotNil(t, e)
		require.Equal(t, 1, r.Len())
		require.Empty(t, e.ChildIDs())
		require.Equal(t, 1, logs.FilterMessage("template includes itself, child skipped").Len())
	})

	t.Run("through a chain", func(t *testing.T) {
		r, _, logs := newTestRegistry(t)
		r.RegisterTemplate("a", &scene.Template{ID: "a", Children: []scene.ChildDef{{Name: "x", Template: "b"}}})
		r.RegisterTemplate("b", &scene.Template{ID: "b", Children: []scene.ChildDef{{Name: "y", Template: "a"}}})

		e := r.Spawn("a", geom.Vec2{})
		require.NotNil(t, e)
		require.Equal(t, 2, r.Len())
		require.NotNil(t, r.Get(e.ID+"_x"))
		require.Nil(t, r.Get(e.ID+"_x_y"))
		require.Equal(t, 1, logs.FilterMessage("template includes itself, child skipped").Len())
	})

	t.Run("siblings may share a template", func(t *testing.T) {
		r, _, logs := newTestRegistry(t)
		r.RegisterTemplate("leaf", &scene.Template{ID: "leaf"})
		r.RegisterTemplate("pair", &scene.Template{ID: "pair", Children: []scene.ChildDef{
			{Name: "l", Template: "leaf"},
			{Name: "r", Template: "leaf"},
		}})

		r.Create(scene.EntityDef{ID: "p", Name: "P", Template: "pair", Transform: at(0, 0)})
		require.Equal(t, 3, r.Len())
		require.Equal(t, []string{"p_l", "p_r"}, r.Get("p").ChildIDs())
		require.Zero(t, logs.FilterMessage("template includes itself, child skipped").Len())
	})
}

func TestEntitiesInBounds(t *testing.T) {
	box := geom.Bounds{MinX: 0, MaxX: 10, MinY: 0, MaxY: 10}
	populate := func(r *Registry) {
		r.Create(scene.EntityDef{ID: "ball", Name: "Ball", Transform: at(5, 5), Physics: &scene.Physics{Shape: "circle", Radius: 1}})
		r.Create(scene.EntityDef{ID: "marker", Name: "Marker", Transform: at(1, 1)})
		r.Create(scene.EntityDef{ID: "far", Name: "Far", Transform: at(20, 20), Physics: &scene.Physics{Shape: "circle", Radius: 1}})
		r.Create(scene.EntityDef{ID: "edge", Name: "Edge", Transform: at(10.5, 5),
			Physics: &scene.Physics{BodyType: "static", Shape: "box", Width: 2, Height: 2}})
	}
	ids := func(es []*Entity) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}

	t.Run("bodies match by fixture overlap", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		populate(r)
		require.Equal(t, []string{"ball", "marker", "edge"}, ids(r.EntitiesInBounds(box)))
	})

	t.Run("without physics positions decide", func(t *testing.T) {
		r := NewRegistry(nil, nil, nil)
		populate(r)
		require.Equal(t, []string{"ball", "marker"}, ids(r.EntitiesInBounds(box)))
	})

	t.Run("destroyed entities drop out", func(t *testing.T) {
		r, _, _ := newTestRegistry(t)
		populate(r)
		r.Destroy("ball", false)
		require.Equal(t, []string{"marker", "edge"}, ids(r.EntitiesInBounds(box)))
	})
}

func TestSyncFromPhysics(t *testing.T) {
	r, phys, _ := newTestRegistry(t)
	ball := r.Create(scene.EntityDef{ID: "ball", Name: "Ball", Transform: at(0, 0),
		Physics: &scene.Physics{Shape: "circle", Radius: 1, InitialVelocity: &geom.Vec2{X: 4}},
		Children: []scene.ChildDef{{Name: "label", LocalTransform: at(0, -1)}}})
	label := r.Get("ball_label")

	phys.Step(0.5)
	r.SyncFromPhysics()
	require.InDelta(t, 2.0, ball.World.X, 1e-9)
	require.Equal(t, ball.World, ball.Local)
	require.InDelta(t, 2.0, label.World.X, 1e-9, "children follow a synced parent")
	require.InDelta(t, -1.0, label.World.Y, 1e-9)

	r.SetActive("ball", false, false)
	phys.Step(0.5)
	r.SyncFromPhysics()
	require.InDelta(t, 2.0, ball.World.X, 1e-9, "inactive entities are not synced")
}

func TestConditionalTransitions(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	e := r.Create(scene.EntityDef{ID: "npc", Name: "NPC", Tags: []string{"idle"},
		ConditionalBehaviors: []scene.ConditionalGroup{
			{When: scene.Predicate{HasTag: "idle"}, Priority: 1},
			{When: scene.Predicate{HasTag: "angry"}, Priority: 5},
		}})

	tr, ok := e.Pending()
	require.True(t, ok, "initial group is activated through the lifecycle pass")
	require.Equal(t, conditional.Transition{From: conditional.None, To: 0}, tr)
	require.Nil(t, e.LiveGroup(), "nothing is live before activation")

	e.TakePending()
	require.Same(t, e.Groups[0], e.LiveGroup())

	require.True(t, r.AddTag("npc", "angry"))
	tr, ok = e.Pending()
	require.True(t, ok)
	require.Equal(t, conditional.Transition{From: 0, To: 1}, tr)
	require.Equal(t, 1, e.ActiveGroup)
	require.Same(t, e.Groups[0], e.LiveGroup(), "old group stays live until the swap")

	require.True(t, r.RemoveTag("npc", "angry"))
	_, ok = e.Pending()
	require.False(t, ok, "add then remove in one frame cancels out")
	require.Equal(t, 0, e.ActiveGroup)

	require.True(t, r.RemoveTag("npc", "idle"))
	require.True(t, r.AddTag("npc", "angry"))
	tr, _ = e.Pending()
	require.Equal(t, conditional.Transition{From: 0, To: 1}, tr, "intermediate none is folded away")
}

func TestVisibility(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	top, bottom := 5, 1
	r.Create(scene.EntityDef{ID: "a", Name: "A", Layer: &top, Children: []scene.ChildDef{{Name: "kid"}}})
	r.Create(scene.EntityDef{ID: "b", Name: "B", Layer: &bottom})
	r.Create(scene.EntityDef{ID: "c", Name: "C", Layer: &bottom})

	require.Equal(t, []string{"a_kid", "b", "c", "a"}, ids(r.VisibleSorted()))

	require.True(t, r.SetVisible("a", false, true))
	require.Equal(t, []string{"b", "c"}, ids(r.VisibleSorted()))
	require.False(t, r.SetVisible("zzz", true, false))

	require.True(t, r.SetActive("b", false, false))
	require.Equal(t, []string{"a", "a_kid", "c"}, ids(r.Active()))

	r.Clear()
	require.Zero(t, r.Len())
	require.Nil(t, r.Get("a"))
}
