package rules

import (
	"github.com/hassoncs/clover-sub000/internal/scene"
)

// condition evaluates one rule condition. Unknown types pass.
func (e *Engine) condition(c scene.Condition) bool {
	switch c.Type {
	case scene.CondScore:
		return within(float64(e.score), c.Min, c.Max)

	case scene.CondTime:
		return within(e.elapsed, c.Min, c.Max)

	case scene.CondEntityExists:
		if c.EntityID != "" {
			return e.reg.Get(c.EntityID) != nil
		}
		return e.reg.CountByTag(firstNonEmpty(c.EntityTag, c.Tag)) > 0

	case scene.CondEntityCount:
		return within(float64(e.reg.CountByTag(firstNonEmpty(c.Tag, c.EntityTag))), c.Min, c.Max)

	case scene.CondRandom:
		return e.rand() < c.Probability

	case scene.CondVariable:
		cur, ok := e.vars[c.Name]
		if !ok {
			return false
		}
		return compareValues(cur, e.value(c.Value), c.Comparison)

	case scene.CondCooldownReady:
		end, ok := e.cooldowns[c.CooldownID]
		return !ok || e.elapsed >= end

	case scene.CondListContains:
		want := e.value(c.Value)
		for _, v := range e.lists[c.ListName] {
			if v.Equal(want) {
				return true
			}
		}
		return false

	case scene.CondExpression:
		return e.resolver.Bool(c.Expr, e.evalContext())
	}
	return true
}

func within(v float64, lo, hi *float64) bool {
	if lo != nil && v < *lo {
		return false
	}
	if hi != nil && v > *hi {
		return false
	}
	return true
}

// compareValues compares a variable against an operand; the default is eq.
// Ordering comparisons are numeric.
func compareValues(cur, operand scene.Value, cmp string) bool {
	switch cmp {
	case "neq":
		return !cur.Equal(operand)
	case "gt":
		return cur.Float() > operand.Float()
	case "gte":
		return cur.Float() >= operand.Float()
	case "lt":
		return cur.Float() < operand.Float()
	case "lte":
		return cur.Float() <= operand.Float()
	}
	return cur.Equal(operand)
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
