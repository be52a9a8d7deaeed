package behavior

import (
	"math"
	"testing"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/hassoncs/clover-sub000/internal/scripting"
	"github.com/stretchr/testify/require"
)

func ball() *scene.Physics {
	return &scene.Physics{BodyType: "dynamic", Shape: "circle", Radius: 0.5}
}

func placed(x, y float64) *geom.Transform {
	t := geom.Identity
	t.X, t.Y = x, y
	return &t
}

// spawnWith creates an entity carrying one behavior and returns both.
func (f *fixture) spawnWith(id string, x, y float64, phys *scene.Physics, params any, tags ...string) (*entity.Entity, *entity.RuntimeBehavior) {
	e := f.reg.Create(scene.EntityDef{ID: id, Name: id, Transform: placed(x, y), Physics: phys, Tags: tags,
		Behaviors: []scene.Behavior{scene.NewBehavior(params)}})
	return e, e.Behaviors[0]
}

func (f *fixture) run(e *entity.Entity, b *entity.RuntimeBehavior) {
	f.sched.ExecuteSingle(e, b, f.frame)
}

func requireVec(t *testing.T, want, got geom.Vec2) {
	t.Helper()
	require.InDelta(t, want.X, got.X, 1e-9, "x")
	require.InDelta(t, want.Y, got.Y, 1e-9, "y")
}

func TestMove(t *testing.T) {
	t.Run("horizontal keeps vertical velocity", func(t *testing.T) {
		f := newFixture(t)
		phys := ball()
		phys.InitialVelocity = &geom.Vec2{Y: 2}
		e, b := f.spawnWith("m", 0, 0, phys, &scene.MoveParams{Direction: "right", Speed: scene.Lit(3)})
		f.run(e, b)
		requireVec(t, geom.Vec2{X: 3, Y: 2}, f.phys.Velocity(e.Body))
	})

	t.Run("toward and away from the player", func(t *testing.T) {
		f := newFixture(t)
		f.reg.Create(scene.EntityDef{ID: "hero", Name: "Hero", Transform: placed(4, 0), Tags: []string{"player"}})
		e, b := f.spawnWith("m", 0, 0, ball(), &scene.MoveParams{Direction: "toward_target", Speed: scene.Lit(2)})
		f.run(e, b)
		requireVec(t, geom.Vec2{X: 2}, f.phys.Velocity(e.Body))

		b.Def.Params.(*scene.MoveParams).Direction = "away_from_target"
		f.run(e, b)
		requireVec(t, geom.Vec2{X: -2}, f.phys.Velocity(e.Body))
	})

	t.Run("force mode", func(t *testing.T) {
		f := newFixture(t)
		e, b := f.spawnWith("m", 0, 0, ball(), &scene.MoveParams{Direction: "down", Speed: scene.Lit(4), MovementType: "force"})
		f.run(e, b)
		require.True(t, f.phys.Velocity(e.Body).IsZero())
		f.phys.Step(1)
		requireVec(t, geom.Vec2{Y: 4}, f.phys.Velocity(e.Body))
	})

	t.Run("patrol turns at the edges", func(t *testing.T) {
		f := newFixture(t)
		params := &scene.MoveParams{Direction: "right", Speed: scene.Lit(1), Patrol: &geom.Bounds{MinX: 0, MaxX: 10}}
		right, rb := f.spawnWith("edge", 10, 0, ball(), params)
		f.run(right, rb)
		requireVec(t, geom.Vec2{X: -1}, f.phys.Velocity(right.Body))

		left, lb := f.spawnWith("start", -1, 0, ball(), params)
		f.run(left, lb)
		requireVec(t, geom.Vec2{X: 1}, f.phys.Velocity(left.Body))
	})

	t.Run("expression speed", func(t *testing.T) {
		f := newFixture(t)
		eng := scripting.NewEngine(nil, 16)
		defer eng.Close()
		f.frame.Resolver = eng
		f.frame.Score = 3
		e, b := f.spawnWith("m", 0, 0, ball(), &scene.MoveParams{Direction: "left", Speed: scene.Expr("score * 2")})
		f.run(e, b)
		requireVec(t, geom.Vec2{X: -6}, f.phys.Velocity(e.Body))
	})

	t.Run("no body is a no-op", func(t *testing.T) {
		f := newFixture(t)
		e, b := f.spawnWith("m", 0, 0, nil, &scene.MoveParams{Direction: "left", Speed: scene.Lit(1)})
		require.NotPanics(t, func() { f.run(e, b) })
		require.Zero(t, f.sched.Panics())
	})
}

func TestFollow(t *testing.T) {
	f := newFixture(t)
	f.reg.Create(scene.EntityDef{ID: "hero", Name: "Hero", Transform: placed(3, 4), Tags: []string{"player"}})
	e, b := f.spawnWith("dog", 0, 0, ball(), &scene.FollowParams{Speed: scene.Lit(10)})

	f.run(e, b)
	requireVec(t, geom.Vec2{X: 6, Y: 8}, f.phys.Velocity(e.Body))

	tooFar := 4.0
	b.Def.Params.(*scene.FollowParams).MaxDistance = &tooFar
	f.run(e, b)
	require.True(t, f.phys.Velocity(e.Body).IsZero(), "out of range stops")
}

func TestBounce(t *testing.T) {
	f := newFixture(t)
	params := &scene.BounceParams{Bounds: geom.Bounds{MaxX: 10, MaxY: 10}}

	phys := ball()
	phys.InitialVelocity = &geom.Vec2{X: 2, Y: 1}
	out, ob := f.spawnWith("out", 11, 5, phys, params)
	f.run(out, ob)
	requireVec(t, geom.Vec2{X: -2, Y: 1}, f.phys.Velocity(out.Body))

	in, ib := f.spawnWith("in", 5, 5, phys, params)
	f.run(in, ib)
	requireVec(t, geom.Vec2{X: 2, Y: 1}, f.phys.Velocity(in.Body))
}

func TestOscillate(t *testing.T) {
	f := newFixture(t)
	phys := ball()
	phys.InitialVelocity = &geom.Vec2{Y: 7}
	e, b := f.spawnWith("o", 0, 0, phys, &scene.OscillateParams{Axis: "x", Amplitude: scene.Lit(2), Frequency: scene.Lit(1)})
	f.run(e, b)
	requireVec(t, geom.Vec2{X: 4 * math.Pi, Y: 7}, f.phys.Velocity(e.Body))

	f.frame.Elapsed = 0.25
	f.run(e, b)
	require.InDelta(t, 0, f.phys.Velocity(e.Body).X, 1e-9, "quarter period crosses zero")
}

func TestFields(t *testing.T) {
	t.Run("gravity zone with linear falloff", func(t *testing.T) {
		f := newFixture(t)
		zone, zb := f.spawnWith("zone", 0, 0, nil,
			&scene.GravityZoneParams{Gravity: geom.Vec2{Y: -10}, Radius: 10, AffectsTags: []string{"rock"}, Falloff: "linear"})
		rock, _ := f.spawnWith("rock", 5, 0, ball(), &scene.RotateParams{}, "rock")
		leaf, _ := f.spawnWith("leaf", 5, 0, ball(), &scene.RotateParams{})
		far, _ := f.spawnWith("far", 20, 0, ball(), &scene.RotateParams{}, "rock")

		f.run(zone, zb)
		f.phys.Step(1)
		requireVec(t, geom.Vec2{Y: -5}, f.phys.Velocity(rock.Body))
		require.True(t, f.phys.Velocity(leaf.Body).IsZero())
		require.True(t, f.phys.Velocity(far.Body).IsZero())
	})

	t.Run("magnet attracts and repels", func(t *testing.T) {
		f := newFixture(t)
		params := &scene.MagneticParams{Strength: scene.Lit(8), Radius: 5, AttractsTags: []string{"metal"}}
		magnet, mb := f.spawnWith("magnet", 0, 0, nil, params)
		nail, _ := f.spawnWith("nail", 2, 0, ball(), &scene.RotateParams{}, "metal")

		f.run(magnet, mb)
		f.phys.Step(1)
		requireVec(t, geom.Vec2{X: -2}, f.phys.Velocity(nail.Body))

		params.Repels = true
		f.phys.SetVelocity(nail.Body, geom.Vec2{})
		f.run(magnet, mb)
		f.phys.Step(1)
		requireVec(t, geom.Vec2{X: 2}, f.phys.Velocity(nail.Body))
	})
}

func TestControl(t *testing.T) {
	t.Run("tap to jump honours the cooldown", func(t *testing.T) {
		f := newFixture(t)
		e, b := f.spawnWith("p", 0, 0, ball(), &scene.ControlParams{ControlType: "tap_to_jump"})
		f.frame.Input = frame.Input{Tap: &frame.Tap{}}

		f.run(e, b)
		requireVec(t, geom.Vec2{Y: -10}, f.phys.Velocity(e.Body))

		f.frame.Elapsed = 0.05
		f.run(e, b)
		requireVec(t, geom.Vec2{Y: -10}, f.phys.Velocity(e.Body))

		f.frame.Elapsed = 0.2
		f.run(e, b)
		requireVec(t, geom.Vec2{Y: -20}, f.phys.Velocity(e.Body))
	})

	t.Run("drag to aim", func(t *testing.T) {
		f := newFixture(t)
		force := scene.Lit(3)
		e, b := f.spawnWith("p", 0, 0, ball(), &scene.ControlParams{ControlType: "drag_to_aim", Force: &force})
		f.frame.Input = frame.Input{DragEnd: &frame.DragEnd{Velocity: geom.Vec2{X: 1, Y: 2}}}
		f.run(e, b)
		requireVec(t, geom.Vec2{X: -3, Y: -6}, f.phys.Velocity(e.Body))
	})

	t.Run("tilt respects max speed", func(t *testing.T) {
		f := newFixture(t)
		phys := ball()
		phys.InitialVelocity = &geom.Vec2{X: 11}
		e, b := f.spawnWith("p", 0, 0, phys, &scene.ControlParams{ControlType: "tilt_to_move"})
		f.frame.Input = frame.Input{Tilt: &geom.Vec2{X: 1, Y: 1}}
		f.run(e, b)
		f.phys.Step(1)
		requireVec(t, geom.Vec2{X: 11, Y: 5}, f.phys.Velocity(e.Body))
	})

	t.Run("buttons", func(t *testing.T) {
		f := newFixture(t)
		e, b := f.spawnWith("p", 0, 0, ball(), &scene.ControlParams{ControlType: "buttons"})
		f.frame.Input = frame.Input{Buttons: map[string]bool{"right": true, "jump": true}}
		f.run(e, b)
		f.phys.Step(1)
		requireVec(t, geom.Vec2{X: 5, Y: -10}, f.phys.Velocity(e.Body))
	})
}

func TestTimer(t *testing.T) {
	t.Run("repeat", func(t *testing.T) {
		f := newFixture(t)
		f.spawnWith("t", 0, 0, nil, &scene.TimerParams{Duration: scene.Lit(1), Action: "trigger_event", EventName: "tick", Repeat: true})
		for i := 0; i < 9; i++ {
			f.step(0.25)
		}
		require.Equal(t, []string{"tick", "tick"}, f.host.events)
	})

	t.Run("one shot destroy", func(t *testing.T) {
		f := newFixture(t)
		e, b := f.spawnWith("t", 0, 0, nil, &scene.TimerParams{Duration: scene.Lit(0.5), Action: "destroy"})
		f.step(0.25)
		f.step(0.25)
		require.False(t, e.Destroyed())
		f.step(0.25)
		require.True(t, e.Destroyed())
		require.Empty(t, b.State, "state bag is cleared on destroy")
	})

	t.Run("enable another behavior", func(t *testing.T) {
		f := newFixture(t)
		idx := 1
		sleeping := scene.NewBehavior(&scene.RotateParams{Speed: scene.Lit(90)})
		sleeping.Enabled = false
		e := f.reg.Create(scene.EntityDef{ID: "t", Name: "T", Behaviors: []scene.Behavior{
			scene.NewBehavior(&scene.TimerParams{Duration: scene.Lit(0.25), Action: "enable_behavior", BehaviorIndex: &idx}),
			sleeping,
		}})
		f.step(0.25)
		require.False(t, e.Behaviors[1].Enabled)
		f.step(0.25)
		require.True(t, e.Behaviors[1].Enabled)
		require.False(t, e.Behaviors[0].Enabled)
	})

	t.Run("spawn at self", func(t *testing.T) {
		f := newFixture(t)
		f.reg.RegisterTemplate("egg", &scene.Template{ID: "egg", Tags: []string{"egg"}})
		f.spawnWith("t", 2, 3, nil, &scene.TimerParams{Action: "spawn", SpawnTemplate: "egg"})
		f.step(0.25)
		require.Equal(t, []string{"egg"}, f.host.spawned)
		require.Equal(t, geom.Vec2{X: 2, Y: 3}, f.reg.EntitiesByTag("egg")[0].Position())
	})
}

func TestSpawnOnEvent(t *testing.T) {
	t.Run("start fires once", func(t *testing.T) {
		f := newFixture(t)
		f.spawnWith("s", 0, 0, nil, &scene.SpawnOnEventParams{Event: "start", EntityTemplate: "egg"})
		f.step(0.25)
		f.step(0.25)
		require.Equal(t, []string{"egg"}, f.host.spawned)
	})

	t.Run("timer with a spawn cap", func(t *testing.T) {
		f := newFixture(t)
		interval, max := 0.5, 2
		f.spawnWith("s", 0, 0, nil, &scene.SpawnOnEventParams{Event: "timer", EntityTemplate: "egg", Interval: &interval, MaxSpawns: &max})
		for i := 0; i < 8; i++ {
			f.step(0.25)
		}
		require.Len(t, f.host.spawned, 2)
	})

	t.Run("tap positions and velocity", func(t *testing.T) {
		f := newFixture(t)
		f.reg.RegisterTemplate("shot", &scene.Template{ID: "shot", Physics: ball(), Tags: []string{"shot"}})
		e, b := f.spawnWith("gun", 0, 0, nil, &scene.SpawnOnEventParams{
			Event: "tap", EntityTemplate: "shot", SpawnPosition: "at_touch",
			InitialVelocity: &scene.Vec2Value{X: scene.Lit(1), Y: scene.Lit(2)},
		})

		f.run(e, b)
		require.Empty(t, f.host.spawned, "no tap, no spawn")

		f.frame.Input = frame.Input{Tap: &frame.Tap{World: geom.Vec2{X: 7, Y: 8}}}
		f.run(e, b)
		shot := f.reg.EntitiesByTag("shot")
		require.Len(t, shot, 1)
		require.Equal(t, geom.Vec2{X: 7, Y: 8}, shot[0].Position())
		requireVec(t, geom.Vec2{X: 1, Y: 2}, f.phys.Velocity(shot[0].Body))

		b.Def.Params.(*scene.SpawnOnEventParams).SpawnPosition = "random_in_bounds"
		b.Def.Params.(*scene.SpawnOnEventParams).Bounds = &geom.Bounds{MaxX: 10, MinY: 2, MaxY: 4}
		f.run(e, b)
		require.Equal(t, geom.Vec2{X: 5, Y: 3}, f.reg.EntitiesByTag("shot")[1].Position())
	})

	t.Run("collision with tag filter", func(t *testing.T) {
		f := newFixture(t)
		e, b := f.spawnWith("pad", 0, 0, nil, &scene.SpawnOnEventParams{Event: "collision", EntityTemplate: "egg", WithTags: []string{"ball"}})
		rock, _ := f.spawnWith("rock", 0, 0, nil, &scene.RotateParams{}, "rock")
		bl, _ := f.spawnWith("ball", 0, 0, nil, &scene.RotateParams{}, "ball")

		f.frame.Collisions = []frame.Collision{{A: rock, B: e}}
		f.run(e, b)
		require.Empty(t, f.host.spawned)

		f.frame.Collisions = append(f.frame.Collisions, frame.Collision{A: e, B: bl})
		f.run(e, b)
		require.Equal(t, []string{"egg"}, f.host.spawned)
	})
}

func TestCollisionBehaviors(t *testing.T) {
	t.Run("destroy on collision", func(t *testing.T) {
		f := newFixture(t)
		min := 5.0
		brick, bb := f.spawnWith("brick", 0, 0, nil, &scene.DestroyOnCollisionParams{WithTags: []string{"ball"}, Effect: "sparks", MinImpactVelocity: &min})
		bl, _ := f.spawnWith("ball", 1, 0, nil, &scene.RotateParams{}, "ball")

		f.frame.Collisions = []frame.Collision{{A: bl, B: brick, Impulse: 3}}
		f.run(brick, bb)
		require.False(t, brick.Destroyed(), "too soft")

		f.frame.Collisions[0].Impulse = 6
		f.run(brick, bb)
		require.True(t, brick.Destroyed())
		require.False(t, bl.Destroyed())
		require.Equal(t, []string{"sparks"}, f.host.effects)
	})

	t.Run("destroy other", func(t *testing.T) {
		f := newFixture(t)
		mine, mb := f.spawnWith("mine", 0, 0, nil, &scene.DestroyOnCollisionParams{WithTags: []string{"ship"}, DestroyOther: true})
		ship, _ := f.spawnWith("ship", 0, 0, nil, &scene.RotateParams{}, "ship")
		f.frame.Collisions = []frame.Collision{{A: mine, B: ship}}
		f.step(0.016)
		require.True(t, mine.Destroyed())
		require.True(t, ship.Destroyed())
		require.Equal(t, []string{"mine", "ship"}, f.host.destroyed)
	})

	t.Run("score once per other entity", func(t *testing.T) {
		f := newFixture(t)
		p, pb := f.spawnWith("p", 0, 0, nil, &scene.ScoreOnCollisionParams{WithTags: []string{"coin"}, Points: scene.Lit(10), Once: true})
		c1, _ := f.spawnWith("c1", 0, 0, nil, &scene.RotateParams{}, "coin")
		c2, _ := f.spawnWith("c2", 0, 0, nil, &scene.RotateParams{}, "coin")
		wall, _ := f.spawnWith("wall", 0, 0, nil, &scene.RotateParams{}, "wall")

		f.frame.Collisions = []frame.Collision{{A: p, B: c1}, {A: wall, B: p}}
		f.run(p, pb)
		f.frame.Collisions = []frame.Collision{{A: c1, B: p}, {A: p, B: c2}}
		f.run(p, pb)
		require.Equal(t, 20, f.host.score)

		pb.Def.Params.(*scene.ScoreOnCollisionParams).Once = false
		f.run(p, pb)
		require.Equal(t, 40, f.host.score)
	})
}

func TestRotate(t *testing.T) {
	f := newFixture(t)
	f.frame.DT = 0.5

	cw, cb := f.spawnWith("cw", 0, 0, nil, &scene.RotateParams{Speed: scene.Lit(90)})
	f.run(cw, cb)
	require.InDelta(t, math.Pi/4, cw.World.Angle, 1e-9)

	ccw, ccb := f.spawnWith("ccw", 0, 0, nil, &scene.RotateParams{Speed: scene.Lit(90), Direction: "counterclockwise"})
	f.run(ccw, ccb)
	require.InDelta(t, -math.Pi/4, ccw.World.Angle, 1e-9)

	spinner, sb := f.spawnWith("spin", 0, 0, &scene.Physics{BodyType: "kinematic", Shape: "box", Width: 1, Height: 1},
		&scene.RotateParams{Speed: scene.Lit(180), AffectsPhysics: true})
	f.run(spinner, sb)
	require.InDelta(t, math.Pi, f.phys.AngularVelocity(spinner.Body), 1e-9)
	require.Zero(t, spinner.World.Angle, "physics owns the angle")

	stopSpin(newContext(f.frame, spinner), sb)
	require.Zero(t, f.phys.AngularVelocity(spinner.Body))
}

func TestAnimate(t *testing.T) {
	frames := []string{"a", "b", "c"}

	t.Run("one shot", func(t *testing.T) {
		f := newFixture(t)
		_, b := f.spawnWith("anim", 0, 0, nil, &scene.AnimateParams{Frames: frames, FPS: 4})
		require.Equal(t, "a", CurrentFrame(b))
		var seen []string
		for i := 0; i < 4; i++ {
			f.step(0.25)
			seen = append(seen, CurrentFrame(b))
		}
		require.Equal(t, []string{"b", "c", "c", "c"}, seen)
		require.False(t, b.Enabled)
	})

	t.Run("loop", func(t *testing.T) {
		f := newFixture(t)
		_, b := f.spawnWith("anim", 0, 0, nil, &scene.AnimateParams{Frames: frames, FPS: 4, Loop: true})
		for i := 0; i < 3; i++ {
			f.step(0.25)
		}
		require.Equal(t, "a", CurrentFrame(b))
		require.True(t, b.Enabled)
	})

	t.Run("plays only while moving", func(t *testing.T) {
		f := newFixture(t)
		e, b := f.spawnWith("anim", 0, 0, ball(), &scene.AnimateParams{Frames: frames, FPS: 4, PlayOn: "moving"})
		f.step(0.25)
		require.Equal(t, "a", CurrentFrame(b))
		f.phys.SetVelocity(e.Body, geom.Vec2{X: 1})
		f.step(0.25)
		require.Equal(t, "b", CurrentFrame(b))
	})
}
