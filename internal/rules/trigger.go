package rules

import (
	"math"

	"github.com/hassoncs/clover-sub000/internal/scene"
	"go.uber.org/zap"
)

// trigger reports whether t fires this frame. Collision triggers record the
// matching pairs on rc for the rule's actions.
func (e *Engine) trigger(t scene.Trigger, rc *ruleContext) bool {
	switch t.Type {
	case scene.TriggerCollision:
		for _, c := range e.collisions {
			if c.Matches(t.EntityATag, t.EntityBTag) {
				rc.matched = append(rc.matched, c)
			}
		}
		return len(rc.matched) > 0

	case scene.TriggerTimer:
		return e.timerCrossed(t.Time, t.Repeat)

	case scene.TriggerScore:
		return compare(float64(e.score), t.Threshold, t.Comparison)

	case scene.TriggerEntityCount:
		return compare(float64(e.reg.CountByTag(t.Tag)), float64(t.Count), t.Comparison)

	case scene.TriggerEvent:
		_, ok := e.events[t.EventName]
		return ok

	case scene.TriggerFrame:
		return true

	case scene.TriggerGameStart:
		return e.input.Start

	case scene.TriggerTap:
		tap := e.input.Tap
		if tap == nil {
			return false
		}
		if t.Tag == "" {
			return true
		}
		return tap.Target != "" && e.reg.HasTag(tap.Target, t.Tag)

	case scene.TriggerButton:
		if t.State == "held" {
			return e.input.Held(t.Button)
		}
		return e.input.JustPressed(t.Button)
	}
	e.log.Debug("unknown trigger type", zap.String("rule", rc.rule.ID), zap.String("type", string(t.Type)))
	return false
}

// timerCrossed reports whether the window (elapsed-dt, elapsed] crosses at, or
// with repeat, any multiple of at. A one-shot at or below zero fires on the
// first update that advances the clock; a repeating one never fires.
func (e *Engine) timerCrossed(at float64, repeat bool) bool {
	prev := e.elapsed - e.dt
	if at <= 0 {
		return !repeat && prev <= 0 && e.elapsed > prev
	}
	if !repeat {
		return prev < at && e.elapsed >= at
	}
	return math.Floor(e.elapsed/at) > math.Floor(prev/at)
}

// compare applies a trigger comparison; the default is gte.
func compare(v, threshold float64, cmp string) bool {
	switch cmp {
	case "lte":
		return v <= threshold
	case "eq":
		return v == threshold
	case "zero":
		return v == 0
	case "gt":
		return v > threshold
	case "lt":
		return v < threshold
	}
	return v >= threshold
}
