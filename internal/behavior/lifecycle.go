package behavior

import (
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/scene"
)

type timerState struct {
	lastFire float64
	started  bool
}

// executeTimer fires duration seconds after the timer first ran (or last fired).
// A non-repeating timer disables itself after firing.
func executeTimer(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.TimerParams)
	st := stateOf[timerState](b)
	if !st.started {
		st.lastFire, st.started = c.Elapsed, true
	}
	if c.Elapsed < st.lastFire+c.Number(p.Duration) {
		return
	}
	st.lastFire = c.Elapsed

	switch p.Action {
	case "destroy":
		c.destroy(c.Entity.ID)
	case "spawn":
		if p.SpawnTemplate != "" {
			c.spawn(p.SpawnTemplate, c.Entity.Position())
		}
	case "trigger_event":
		if p.EventName != "" {
			c.triggerEvent(p.EventName)
		}
	case "enable_behavior", "disable_behavior":
		if i := p.BehaviorIndex; i != nil && *i >= 0 && *i < len(c.Entity.Behaviors) {
			c.Entity.Behaviors[*i].Enabled = p.Action == "enable_behavior"
		}
	}
	if !p.Repeat {
		b.Enabled = false
	}
}

// activateTimer restarts the countdown when the timer's group becomes active.
func activateTimer(c *Context, b *entity.RuntimeBehavior) {
	st := stateOf[timerState](b)
	st.lastFire, st.started = c.Elapsed, true
}

type spawnState struct {
	count     int
	started   bool
	lastSpawn float64
}

func executeSpawnOnEvent(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.SpawnOnEventParams)
	st := stateOf[spawnState](b)
	if p.MaxSpawns != nil && st.count >= *p.MaxSpawns {
		return
	}

	fire := false
	switch p.Event {
	case "start":
		if !st.started {
			fire, st.started = true, true
		}
	case "tap":
		fire = c.Input.Tap != nil
	case "timer":
		if c.Elapsed >= st.lastSpawn+floatOr(p.Interval, 1) {
			fire, st.lastSpawn = true, c.Elapsed
		}
	case "collision":
		c.eachContact(func(other *entity.Entity, _ frame.Collision) bool {
			if len(p.WithTags) == 0 || other.HasAnyTag(p.WithTags) {
				fire = true
				return false
			}
			return true
		})
	}
	if !fire {
		return
	}

	pos := c.Entity.Position()
	switch p.SpawnPosition {
	case "at_touch":
		if c.Input.Tap != nil {
			pos = c.Input.Tap.World
		}
	case "offset":
		if p.Offset != nil {
			pos = pos.Add(*p.Offset)
		}
	case "random_in_bounds":
		if bb := p.Bounds; bb != nil {
			pos = geom.Vec2{
				X: bb.MinX + c.rand()*(bb.MaxX-bb.MinX),
				Y: bb.MinY + c.rand()*(bb.MaxY-bb.MinY),
			}
		}
	}

	spawned := c.spawn(p.EntityTemplate, pos)
	if spawned != nil && p.InitialVelocity != nil && spawned.Body != 0 && c.Physics != nil {
		c.Physics.SetVelocity(spawned.Body, c.Vec2(*p.InitialVelocity))
	}
	st.count++
}

func executeDestroyOnCollision(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.DestroyOnCollisionParams)
	c.eachContact(func(other *entity.Entity, col frame.Collision) bool {
		if !other.HasAnyTag(p.WithTags) {
			return true
		}
		if p.MinImpactVelocity != nil && col.Impulse < *p.MinImpactVelocity {
			return true
		}
		pos := c.Entity.Position()
		c.destroy(c.Entity.ID)
		c.effect(p.Effect, pos)
		if p.DestroyOther {
			c.destroy(other.ID)
		}
		return false
	})
}

type scoreState struct {
	scored map[string]bool
}

func executeScoreOnCollision(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.ScoreOnCollisionParams)
	st := stateOf[scoreState](b)
	if st.scored == nil {
		st.scored = make(map[string]bool)
	}
	c.eachContact(func(other *entity.Entity, _ frame.Collision) bool {
		if !other.HasAnyTag(p.WithTags) {
			return true
		}
		if p.Once && st.scored[other.ID] {
			return true
		}
		c.addScore(c.Number(p.Points))
		st.scored[other.ID] = true
		return true
	})
}
