package rules

import (
	"math"

	"github.com/hassoncs/clover-sub000/internal/core/event"
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"go.uber.org/zap"
)

func emit[T any](e *Engine, ev T) {
	if e.bus != nil {
		event.Emit(e.bus, ev)
	}
}

func round(v float64) int { return int(math.Round(v)) }

// action executes one rule action.
func (e *Engine) action(a scene.Action, rc *ruleContext) {
	switch a.Type {
	case scene.ActionScore:
		v := e.number(a.Value.Number())
		switch a.Operation {
		case "subtract":
			e.setScore(e.score - round(v))
		case "set":
			e.setScore(round(v))
		case "multiply":
			e.setScore(round(float64(e.score) * v))
		default:
			e.setScore(e.score + round(v))
		}

	case scene.ActionLives:
		v := round(e.number(a.Value.Number()))
		switch a.Operation {
		case "subtract":
			e.setLives(e.lives - v)
		case "set":
			e.setLives(v)
		default:
			e.setLives(e.lives + v)
		}

	case scene.ActionSetVariable:
		e.setVariable(a)

	case scene.ActionList:
		e.listOp(a)

	case scene.ActionGameState:
		if a.Delay > 0 {
			e.delayed = append(e.delayed, delayedState{at: e.elapsed + a.Delay, state: a.State})
			return
		}
		e.applyState(a.State)

	case scene.ActionSpawn:
		n := max(a.Count, 1)
		for range n {
			pos := e.position(a.Position, rc)
			if a.Spread > 0 {
				pos = pos.Add(geom.Vec2{X: (e.rand() - 0.5) * a.Spread, Y: (e.rand() - 0.5) * a.Spread})
			}
			e.entities.SpawnEntity(a.Template, pos)
		}

	case scene.ActionDestroy:
		for _, t := range e.targets(a.Target, rc) {
			e.entities.DestroyEntity(t.ID)
		}

	case scene.ActionEvent:
		var data map[string]scene.Value
		if len(a.Data) > 0 {
			data = make(map[string]scene.Value, len(a.Data))
			for k, v := range a.Data {
				data[k] = e.value(v)
			}
		}
		e.TriggerEvent(a.EventName, data)

	case scene.ActionStartCooldown:
		e.cooldowns[a.CooldownID] = e.elapsed + e.number(a.Duration)

	case scene.ActionApplyImpulse, scene.ActionApplyForce, scene.ActionSetVelocity:
		e.physicsAction(a, rc)

	case scene.ActionModify:
		e.modify(a, rc)

	case scene.ActionCameraShake:
		emit(e, event.CameraShake{Intensity: a.Intensity, Duration: e.number(a.Duration)})

	case scene.ActionCameraZoom:
		emit(e, event.CameraZoom{Scale: a.Scale, Duration: e.number(a.Duration)})

	case scene.ActionSound:
		vol := a.Volume
		if vol == 0 {
			vol = 1
		}
		emit(e, event.SoundPlay{SoundID: a.SoundID, Volume: vol})

	case scene.ActionParticles:
		emit(e, event.ParticleEffect{Effect: a.Effect, Position: e.position(a.Position, rc)})

	default:
		e.log.Debug("unknown action type", zap.String("rule", rc.rule.ID), zap.String("type", string(a.Type)))
	}
}

// setVariable applies set, add, subtract, multiply or toggle. add concatenates
// when either side is a string; subtract and multiply only touch numbers. A
// missing variable reads as 0 for arithmetic.
func (e *Engine) setVariable(a scene.Action) {
	cur, ok := e.vars[a.Name]
	if !ok && a.Operation != "set" && a.Operation != "toggle" {
		cur = scene.NumberValue(0)
	}
	val := e.value(a.Value)

	switch a.Operation {
	case "add":
		switch {
		case cur.Kind == scene.KindNumber && val.Kind == scene.KindNumber:
			e.SetVariable(a.Name, scene.NumberValue(cur.Num+val.Num))
		case cur.Kind == scene.KindString || val.Kind == scene.KindString:
			e.SetVariable(a.Name, scene.StringValue(cur.String()+val.String()))
		}
	case "subtract":
		if cur.Kind == scene.KindNumber && val.Kind == scene.KindNumber {
			e.SetVariable(a.Name, scene.NumberValue(cur.Num-val.Num))
		}
	case "multiply":
		if cur.Kind == scene.KindNumber && val.Kind == scene.KindNumber {
			e.SetVariable(a.Name, scene.NumberValue(cur.Num*val.Num))
		}
	case "toggle":
		e.SetVariable(a.Name, scene.BoolValue(!cur.Truthy()))
	default:
		e.SetVariable(a.Name, val)
	}
}

// listOp applies push, pop_front, pop_back (or pop), shuffle or clear. Popped
// values go to the storeIn variable when one is named.
func (e *Engine) listOp(a scene.Action) {
	list := e.lists[a.ListName]
	switch a.Operation {
	case "push":
		e.lists[a.ListName] = append(list, e.value(a.Value))

	case "pop_front", "pop_back", "pop":
		if len(list) == 0 {
			return
		}
		var v scene.Value
		if a.Operation == "pop_front" {
			v, list = list[0], list[1:]
		} else {
			v, list = list[len(list)-1], list[:len(list)-1]
		}
		e.lists[a.ListName] = list
		if a.StoreIn != "" {
			e.SetVariable(a.StoreIn, v)
		}

	case "shuffle":
		// Fisher-Yates over the injected source so runs replay
		for i := len(list) - 1; i > 0; i-- {
			j := min(int(math.Floor(e.rand()*float64(i+1))), i)
			list[i], list[j] = list[j], list[i]
		}

	case "clear":
		delete(e.lists, a.ListName)
	}
}

// position resolves a spawn or effect position. Without a usable source it
// falls back to the fixed x/y.
func (e *Engine) position(p *scene.SpawnPosition, rc *ruleContext) geom.Vec2 {
	if p == nil {
		return geom.Vec2{}
	}
	fixed := geom.Vec2{X: p.X, Y: p.Y}
	switch p.Type {
	case "random":
		b := p.Bounds
		if b == nil {
			b = e.bounds
		}
		if b == nil {
			return fixed
		}
		return geom.Vec2{
			X: b.MinX + e.rand()*(b.MaxX-b.MinX),
			Y: b.MinY + e.rand()*(b.MaxY-b.MinY),
		}
	case "at_entity":
		if t := e.reg.Get(p.EntityID); t != nil {
			return t.Position()
		}
	case "at_collision":
		if len(rc.matched) > 0 {
			return rc.matched[0].Point()
		}
	}
	return fixed
}

// targets resolves an action target to live entities.
func (e *Engine) targets(t *scene.Target, rc *ruleContext) []*entity.Entity {
	if t == nil {
		return nil
	}
	switch t.Type {
	case "by_id":
		if ent := e.reg.Get(t.EntityID); ent != nil {
			return []*entity.Entity{ent}
		}
	case "by_tag":
		all := e.reg.EntitiesByTag(t.Tag)
		if t.Count > 0 && len(all) > t.Count {
			all = all[:t.Count]
		}
		return all
	case "collision_entities":
		seen := map[*entity.Entity]bool{}
		var out []*entity.Entity
		for _, c := range rc.matched {
			for _, ent := range [2]*entity.Entity{c.A, c.B} {
				if seen[ent] || ent.Destroyed() || (t.Tag != "" && !ent.HasTag(t.Tag)) {
					continue
				}
				seen[ent] = true
				out = append(out, ent)
			}
		}
		return out
	case "all":
		return e.reg.All()
	}
	return nil
}

// vector reads an action's x/y, or direction plus force. The flags report which
// components were given.
func (e *Engine) vector(a scene.Action) (v geom.Vec2, hasX, hasY bool) {
	if a.Direction != "" {
		f := e.numberOr(a.Force, 1)
		switch a.Direction {
		case "up":
			return geom.Vec2{Y: -f}, false, true
		case "down":
			return geom.Vec2{Y: f}, false, true
		case "left":
			return geom.Vec2{X: -f}, true, false
		case "right":
			return geom.Vec2{X: f}, true, false
		}
		return v, false, false
	}
	if a.X != nil {
		v.X, hasX = e.number(*a.X), true
	}
	if a.Y != nil {
		v.Y, hasY = e.number(*a.Y), true
	}
	return v, hasX, hasY
}

func (e *Engine) physicsAction(a scene.Action, rc *ruleContext) {
	if e.phys == nil {
		return
	}
	v, hasX, hasY := e.vector(a)
	if !hasX && !hasY {
		return
	}
	for _, t := range e.targets(a.Target, rc) {
		if t.Body == 0 {
			continue
		}
		switch a.Type {
		case scene.ActionApplyImpulse:
			e.phys.ApplyImpulse(t.Body, v)
		case scene.ActionApplyForce:
			e.phys.ApplyForce(t.Body, v)
		case scene.ActionSetVelocity:
			cur := e.phys.Velocity(t.Body)
			if hasX {
				cur.X = v.X
			}
			if hasY {
				cur.Y = v.Y
			}
			e.phys.SetVelocity(t.Body, cur)
		}
	}
}

// modify changes one local transform property: set (default), add or multiply.
func (e *Engine) modify(a scene.Action, rc *ruleContext) {
	v := e.number(a.Value.Number())
	for _, t := range e.targets(a.Target, rc) {
		local := t.Local
		var field *float64
		switch a.Property {
		case "x":
			field = &local.X
		case "y":
			field = &local.Y
		case "angle":
			field = &local.Angle
		case "scaleX":
			field = &local.ScaleX
		case "scaleY":
			field = &local.ScaleY
		default:
			e.log.Warn("modify: unknown property", zap.String("rule", rc.rule.ID), zap.String("property", a.Property))
			return
		}
		switch a.Operation {
		case "add":
			*field += v
		case "multiply":
			*field *= v
		default:
			*field = v
		}
		e.reg.SetTransform(t.ID, local)
	}
}
