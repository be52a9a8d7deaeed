package behavior

import (
	"math"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/scene"
)

type controlState struct {
	cooldownEnd float64
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func executeControl(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.ControlParams)
	body, ok := c.body()
	if !ok {
		return
	}
	st := stateOf[controlState](b)
	if c.Elapsed < st.cooldownEnd {
		return
	}
	in := c.Input

	switch p.ControlType {
	case "tap_to_jump":
		if in.Tap != nil {
			c.Physics.ApplyImpulse(body, geom.Vec2{Y: -c.numberOr(p.Force, 10)})
			st.cooldownEnd = c.Elapsed + floatOr(p.Cooldown, 0.1)
		}

	case "drag_to_aim":
		if in.DragEnd != nil {
			c.Physics.ApplyImpulse(body, in.DragEnd.Velocity.Scale(-c.numberOr(p.Force, 10)))
			st.cooldownEnd = c.Elapsed + floatOr(p.Cooldown, 0.5)
		}

	case "tilt_to_move":
		if in.Tilt != nil {
			maxSpeed := floatOr(p.MaxSpeed, 10)
			f := in.Tilt.Scale(c.numberOr(p.Force, 5))
			v := c.Physics.Velocity(body)
			if math.Abs(v.X) > maxSpeed {
				f.X = 0
			}
			if math.Abs(v.Y) > maxSpeed {
				f.Y = 0
			}
			c.Physics.ApplyForce(body, f)
		}

	case "buttons":
		force := c.numberOr(p.Force, 5)
		var f geom.Vec2
		if in.Held("left") {
			f.X -= force
		}
		if in.Held("right") {
			f.X += force
		}
		if in.Held("up") {
			f.Y -= force
		}
		if in.Held("down") {
			f.Y += force
		}
		if in.Held("jump") {
			c.Physics.ApplyImpulse(body, geom.Vec2{Y: -c.numberOr(p.Force, 10)})
			st.cooldownEnd = c.Elapsed + floatOr(p.Cooldown, 0.2)
		}
		if !f.IsZero() {
			c.Physics.ApplyForce(body, f)
		}
	}
}
