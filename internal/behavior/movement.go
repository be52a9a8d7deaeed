package behavior

import (
	"math"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/scene"
)

const (
	minSteerDistance   = 0.01
	defaultMaxDistance = 1000
	minFieldDistanceSq = 0.1
)

type patrolState struct {
	dir float64
}

func executeMove(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.MoveParams)
	body, ok := c.body()
	if !ok {
		return
	}
	speed := c.Number(p.Speed)

	var v geom.Vec2
	switch p.Direction {
	case "left":
		v.X = -speed
	case "right":
		v.X = speed
	case "up":
		v.Y = -speed
	case "down":
		v.Y = speed
	case "toward_target", "away_from_target":
		if t := c.target(p.Target); t != nil && t != c.Entity {
			d := t.Position().Sub(c.Entity.Position())
			if d.Len() > minSteerDistance {
				v = d.Normalize().Scale(speed)
				if p.Direction == "away_from_target" {
					v = v.Scale(-1)
				}
			}
		}
	}

	if p.Patrol != nil {
		st := stateOf[patrolState](b)
		if st.dir == 0 {
			st.dir = 1
		}
		x := c.Entity.Position().X
		if x <= p.Patrol.MinX {
			st.dir = 1
		} else if x >= p.Patrol.MaxX {
			st.dir = -1
		}
		v.X = math.Abs(v.X) * st.dir
	}

	if p.MovementType == "force" {
		c.Physics.ApplyForce(body, v)
		return
	}
	cur := c.Physics.Velocity(body)
	switch p.Direction {
	case "left", "right":
		v.Y = cur.Y
	case "up", "down":
		v.X = cur.X
	}
	c.Physics.SetVelocity(body, v)
}

func executeFollow(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.FollowParams)
	body, ok := c.body()
	if !ok {
		return
	}
	t := c.target(p.Target)
	if t == nil || t == c.Entity {
		return
	}
	d := t.Position().Sub(c.Entity.Position())
	dist := d.Len()
	lo, hi := 0.0, float64(defaultMaxDistance)
	if p.MinDistance != nil {
		lo = *p.MinDistance
	}
	if p.MaxDistance != nil {
		hi = *p.MaxDistance
	}
	if dist > lo && dist < hi {
		c.Physics.SetVelocity(body, d.Scale(c.Number(p.Speed)/dist))
	} else {
		c.Physics.SetVelocity(body, geom.Vec2{})
	}
}

func executeBounce(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.BounceParams)
	body, ok := c.body()
	if !ok {
		return
	}
	pos := c.Entity.Position()
	v := c.Physics.Velocity(body)
	flipped := false
	if (pos.X < p.Bounds.MinX && v.X < 0) || (pos.X > p.Bounds.MaxX && v.X > 0) {
		v.X, flipped = -v.X, true
	}
	if (pos.Y < p.Bounds.MinY && v.Y < 0) || (pos.Y > p.Bounds.MaxY && v.Y > 0) {
		v.Y, flipped = -v.Y, true
	}
	if flipped {
		c.Physics.SetVelocity(body, v)
	}
}

// executeOscillate drives velocity with the derivative of a sine so the body
// stays under physics control; phase is in degrees.
func executeOscillate(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.OscillateParams)
	body, ok := c.body()
	if !ok {
		return
	}
	w := 2 * math.Pi * c.Number(p.Frequency)
	speed := c.Number(p.Amplitude) * w * math.Cos(w*c.Elapsed+p.Phase*math.Pi/180)

	v := c.Physics.Velocity(body)
	switch p.Axis {
	case "x":
		v.X = speed
	case "y":
		v.Y = speed
	case "both":
		v.X, v.Y = speed, speed
	}
	c.Physics.SetVelocity(body, v)
}

func executeGravityZone(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.GravityZoneParams)
	if c.Physics == nil {
		return
	}
	center := c.Entity.Position()
	for _, t := range c.Registry.Active() {
		if t == c.Entity || t.Body == 0 {
			continue
		}
		if len(p.AffectsTags) > 0 && !t.HasAnyTag(p.AffectsTags) {
			continue
		}
		dist := center.Dist(t.Position())
		if dist > p.Radius || dist < minSteerDistance {
			continue
		}
		force := p.Gravity
		switch p.Falloff {
		case "linear":
			force = force.Scale(1 - dist/p.Radius)
		case "quadratic":
			k := 1 - dist/p.Radius
			force = force.Scale(k * k)
		}
		c.Physics.ApplyForce(t.Body, force)
	}
}

func executeMagnetic(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.MagneticParams)
	if c.Physics == nil {
		return
	}
	strength := c.Number(p.Strength)
	if p.Repels {
		strength = -strength
	}
	center := c.Entity.Position()
	for _, t := range c.Registry.Active() {
		if t == c.Entity || t.Body == 0 {
			continue
		}
		if len(p.AttractsTags) > 0 && !t.HasAnyTag(p.AttractsTags) {
			continue
		}
		d := center.Sub(t.Position())
		dist := d.Len()
		if dist > p.Radius || dist < minSteerDistance {
			continue
		}
		mag := strength / math.Max(dist*dist, minFieldDistanceSq)
		c.Physics.ApplyForce(t.Body, d.Scale(mag/dist))
	}
}

// stop zeroes the velocity a movement behavior was driving.
func stop(c *Context, _ *entity.RuntimeBehavior) {
	if body, ok := c.body(); ok {
		c.Physics.SetVelocity(body, geom.Vec2{})
	}
}
