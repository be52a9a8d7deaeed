package behavior

import (
	"math"

	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/scene"
)

// executeRotate spins at speed degrees per second, clockwise unless told otherwise.
// With affectsPhysics the body's angular velocity is driven; otherwise the
// transform is turned directly.
func executeRotate(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.RotateParams)
	rate := c.Number(p.Speed) * math.Pi / 180
	if p.Direction == "counterclockwise" {
		rate = -rate
	}
	if body, ok := c.body(); ok && p.AffectsPhysics {
		c.Physics.SetAngularVelocity(body, rate)
		return
	}
	local := c.Entity.Local
	local.Angle += rate * c.DT
	c.Registry.SetTransform(c.Entity.ID, local)
}

func stopSpin(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.RotateParams)
	if body, ok := c.body(); ok && p.AffectsPhysics {
		c.Physics.SetAngularVelocity(body, 0)
	}
}

type animState struct {
	index int
	last  float64
	frame string
}

// executeAnimate advances one frame every 1/fps seconds. playOn "moving" only
// advances while the body moves, "collision" only on frames with a contact.
func executeAnimate(c *Context, b *entity.RuntimeBehavior) {
	p := b.Def.Params.(*scene.AnimateParams)
	if len(p.Frames) == 0 || p.FPS <= 0 {
		return
	}
	switch p.PlayOn {
	case "moving":
		body, ok := c.body()
		if !ok || c.Physics.Velocity(body).IsZero() {
			return
		}
	case "collision":
		hit := false
		c.eachContact(func(*entity.Entity, frame.Collision) bool {
			hit = true
			return false
		})
		if !hit {
			return
		}
	}

	st := stateOf[animState](b)
	if c.Elapsed < st.last+1/p.FPS {
		return
	}
	next := st.index + 1
	if next >= len(p.Frames) {
		if p.Loop {
			next = 0
		} else {
			next = len(p.Frames) - 1
			b.Enabled = false
		}
	}
	st.index, st.last, st.frame = next, c.Elapsed, p.Frames[next]
}

// resetAnimation rewinds to the first frame when the behavior's group activates.
func resetAnimation(c *Context, b *entity.RuntimeBehavior) {
	resetState(b)
	stateOf[animState](b).last = c.Elapsed
}

// CurrentFrame returns the frame an animate behavior is showing.
func CurrentFrame(b *entity.RuntimeBehavior) string {
	p, ok := b.Def.Params.(*scene.AnimateParams)
	if !ok || len(p.Frames) == 0 {
		return ""
	}
	if st, ok := b.State[stateKey].(*animState); ok && st.frame != "" {
		return st.frame
	}
	return p.Frames[0]
}
