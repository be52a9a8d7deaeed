package scripting

import (
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"go.uber.org/zap"
)

// EvalContext is what an expression can see: simulation counters, the evaluating
// entity and the variable store. Rand must be the simulation's seeded source.
type EvalContext struct {
	Score int
	Lives int
	Time  float64
	DT    float64
	Self  *Self
	Vars  map[string]scene.Value
	Rand  func() float64
}

// Self describes the entity an expression is evaluated for.
type Self struct {
	ID       string
	Position geom.Vec2
	Angle    float64
	Velocity geom.Vec2
}

// Resolver turns literal-or-expression values into concrete ones.
type Resolver interface {
	Number(n scene.Number, ctx *EvalContext) float64
	Vec2(v scene.Vec2Value, ctx *EvalContext) geom.Vec2
	Value(v scene.Value, ctx *EvalContext) scene.Value
	Bool(expr string, ctx *EvalContext) bool
}

// Literals resolves literal values only. Expressions evaluate to zero values;
// it backs runs with scripting disabled.
type Literals struct {
	log    *zap.Logger
	warned map[string]bool
}

func NewLiterals(log *zap.Logger) *Literals {
	if log == nil {
		log = zap.NewNop()
	}
	return &Literals{log: log, warned: make(map[string]bool)}
}

func (l *Literals) Number(n scene.Number, _ *EvalContext) float64 {
	if n.IsExpr() {
		l.skip(n.Expr)
		return 0
	}
	return n.Value
}

func (l *Literals) Vec2(v scene.Vec2Value, ctx *EvalContext) geom.Vec2 {
	if v.Expr != "" {
		l.skip(v.Expr)
		return geom.Vec2{}
	}
	return geom.Vec2{X: l.Number(v.X, ctx), Y: l.Number(v.Y, ctx)}
}

func (l *Literals) Value(v scene.Value, _ *EvalContext) scene.Value {
	if v.IsExpr() {
		l.skip(v.Expr)
		return scene.Value{}
	}
	return v
}

func (l *Literals) Bool(expr string, _ *EvalContext) bool {
	l.skip(expr)
	return false
}

func (l *Literals) skip(expr string) {
	if l.warned[expr] {
		return
	}
	l.warned[expr] = true
	l.log.Warn("expression ignored, scripting disabled", zap.String("expr", expr))
}
