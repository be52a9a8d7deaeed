package behavior

import (
	"math"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/hassoncs/clover-sub000/internal/scripting"
)

// Host receives the side effects handlers may request. The runtime routes
// them to the rule engine, the registry and the notification bus.
type Host interface {
	AddScore(points int)
	TriggerEvent(name string)
	SpawnEntity(template string, pos geom.Vec2) *entity.Entity
	DestroyEntity(id string)
	Effect(name string, pos geom.Vec2)
}

// Frame is the context shared by every handler call of one frame. Score, Lives
// and Vars are read-only snapshots of the rule engine's state.
type Frame struct {
	DT      float64
	Elapsed float64

	Input      frame.Input
	Collisions []frame.Collision

	Score int
	Lives int
	Vars  map[string]scene.Value

	Registry *entity.Registry
	Physics  physics.World
	Resolver scripting.Resolver
	Rand     func() float64
	Host     Host
}

// Context is a Frame seen from one entity.
type Context struct {
	*Frame
	Entity *entity.Entity

	eval *scripting.EvalContext
}

func newContext(f *Frame, e *entity.Entity) *Context {
	return &Context{Frame: f, Entity: e}
}

// Eval builds the expression context for this entity on first use.
func (c *Context) Eval() *scripting.EvalContext {
	if c.eval == nil {
		self := &scripting.Self{
			ID:       c.Entity.ID,
			Position: c.Entity.Position(),
			Angle:    c.Entity.World.Angle,
		}
		if body, ok := c.body(); ok {
			self.Velocity = c.Physics.Velocity(body)
		}
		c.eval = &scripting.EvalContext{
			Score: c.Score,
			Lives: c.Lives,
			Time:  c.Elapsed,
			DT:    c.DT,
			Self:  self,
			Vars:  c.Vars,
			Rand:  c.Rand,
		}
	}
	return c.eval
}

// Number resolves a literal-or-expression number.
func (c *Context) Number(n scene.Number) float64 {
	if !n.IsExpr() || c.Resolver == nil {
		return n.Value
	}
	return c.Resolver.Number(n, c.Eval())
}

// Vec2 resolves a literal-or-expression vector.
func (c *Context) Vec2(v scene.Vec2Value) geom.Vec2 {
	if c.Resolver == nil || (v.Expr == "" && !v.X.IsExpr() && !v.Y.IsExpr()) {
		return geom.Vec2{X: v.X.Value, Y: v.Y.Value}
	}
	return c.Resolver.Vec2(v, c.Eval())
}

func (c *Context) numberOr(n *scene.Number, def float64) float64 {
	if n == nil {
		return def
	}
	return c.Number(*n)
}

func (c *Context) body() (physics.BodyHandle, bool) {
	if c.Entity.Body == 0 || c.Physics == nil {
		return 0, false
	}
	return c.Entity.Body, true
}

// target returns the entity with id, or the first player when id is empty.
func (c *Context) target(id string) *entity.Entity {
	if id != "" {
		return c.Registry.Get(id)
	}
	if players := c.Registry.EntitiesByTag("player"); len(players) > 0 {
		return players[0]
	}
	return nil
}

// eachContact calls fn for every collision this entity took part in, with the
// other participant. Returning false stops the walk.
func (c *Context) eachContact(fn func(other *entity.Entity, col frame.Collision) bool) {
	for _, col := range c.Collisions {
		other, ok := col.Involves(c.Entity)
		if !ok {
			continue
		}
		if !fn(other, col) {
			return
		}
	}
}

func (c *Context) rand() float64 {
	if c.Rand == nil {
		return 0
	}
	return c.Rand()
}

func (c *Context) addScore(points float64) {
	if c.Host != nil {
		c.Host.AddScore(int(math.Round(points)))
	}
}

func (c *Context) triggerEvent(name string) {
	if c.Host != nil {
		c.Host.TriggerEvent(name)
	}
}

func (c *Context) spawn(template string, pos geom.Vec2) *entity.Entity {
	if c.Host == nil {
		return nil
	}
	return c.Host.SpawnEntity(template, pos)
}

func (c *Context) destroy(id string) {
	if c.Host != nil {
		c.Host.DestroyEntity(id)
	}
}

func (c *Context) effect(name string, pos geom.Vec2) {
	if c.Host != nil && name != "" {
		c.Host.Effect(name, pos)
	}
}

const stateKey = "state"

// stateOf returns the handler's typed state, creating it on first use. The
// registry clears the bag when the entity is destroyed.
func stateOf[T any](b *entity.RuntimeBehavior) *T {
	if s, ok := b.State[stateKey].(*T); ok {
		return s
	}
	if b.State == nil {
		b.State = make(map[string]any)
	}
	s := new(T)
	b.State[stateKey] = s
	return s
}

func resetState(b *entity.RuntimeBehavior) {
	delete(b.State, stateKey)
}
