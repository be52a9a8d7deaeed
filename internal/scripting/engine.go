package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM evaluating computed values.
// Single-goroutine access only (frame loop).
//
// An expression `e` compiles once to the chunk `return (e)` and is cached by
// source text. Before each call the globals score, lives, time, dt, self and
// vars are rebound from the EvalContext, and rand()/random(a, b) draw from
// the context's seeded source.
type Engine struct {
	vm       *lua.LState
	log      *zap.Logger
	cache    map[string]*lua.LFunction
	maxCache int
	failed   map[string]bool
	rand     func() float64
}

// NewEngine creates a sandboxed VM with the base, table, string and math libraries.
// maxCached bounds the compiled-expression cache; zero means unbounded.
func NewEngine(log *zap.Logger, maxCached int) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		vm.Push(vm.NewFunction(lib.fn))
		vm.Push(lua.LString(lib.name))
		vm.Call(1, 0)
	}
	// no file or module access from scene documents
	for _, name := range []string{"dofile", "loadfile", "require", "load", "loadstring"} {
		vm.SetGlobal(name, lua.LNil)
	}

	e := &Engine{
		vm:       vm,
		log:      log,
		cache:    make(map[string]*lua.LFunction),
		maxCache: maxCached,
		failed:   make(map[string]bool),
	}
	vm.SetGlobal("rand", vm.NewFunction(e.luaRand))
	vm.SetGlobal("random", vm.NewFunction(e.luaRandom))
	return e
}

// LoadDir runs every .lua file in dir, in name order, so scenes can call helper
// functions they define. A missing directory is not an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := e.vm.DoString(string(data)); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Compile checks that expr parses, caching the result.
func (e *Engine) Compile(expr string) error {
	_, err := e.compile(expr)
	return err
}

func (e *Engine) compile(expr string) (*lua.LFunction, error) {
	if fn, ok := e.cache[expr]; ok {
		return fn, nil
	}
	fn, err := e.vm.LoadString("return (" + expr + ")")
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	if e.maxCache > 0 && len(e.cache) >= e.maxCache {
		clear(e.cache)
	}
	e.cache[expr] = fn
	return fn, nil
}

// Eval evaluates expr and returns the raw Lua result.
func (e *Engine) Eval(expr string, ctx *EvalContext) (lua.LValue, error) {
	fn, err := e.compile(expr)
	if err != nil {
		return lua.LNil, err
	}
	e.bind(ctx)
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		return lua.LNil, fmt.Errorf("eval %q: %w", expr, err)
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result, nil
}

func (e *Engine) Number(n scene.Number, ctx *EvalContext) float64 {
	if !n.IsExpr() {
		return n.Value
	}
	v, err := e.Eval(n.Expr, ctx)
	if err != nil {
		e.fail(n.Expr, err)
		return 0
	}
	return toNumber(v)
}

func (e *Engine) Vec2(v scene.Vec2Value, ctx *EvalContext) geom.Vec2 {
	if v.Expr == "" {
		return geom.Vec2{X: e.Number(v.X, ctx), Y: e.Number(v.Y, ctx)}
	}
	res, err := e.Eval(v.Expr, ctx)
	if err != nil {
		e.fail(v.Expr, err)
		return geom.Vec2{}
	}
	t, ok := res.(*lua.LTable)
	if !ok {
		e.fail(v.Expr, fmt.Errorf("vector expression returned %s", res.Type()))
		return geom.Vec2{}
	}
	return geom.Vec2{X: toNumber(t.RawGetString("x")), Y: toNumber(t.RawGetString("y"))}
}

func (e *Engine) Value(v scene.Value, ctx *EvalContext) scene.Value {
	if !v.IsExpr() {
		return v
	}
	res, err := e.Eval(v.Expr, ctx)
	if err != nil {
		e.fail(v.Expr, err)
		return scene.Value{}
	}
	switch r := res.(type) {
	case lua.LNumber:
		return scene.NumberValue(float64(r))
	case lua.LString:
		return scene.StringValue(string(r))
	case lua.LBool:
		return scene.BoolValue(bool(r))
	}
	return scene.Value{}
}

func (e *Engine) Bool(expr string, ctx *EvalContext) bool {
	res, err := e.Eval(expr, ctx)
	if err != nil {
		e.fail(expr, err)
		return false
	}
	return lua.LVAsBool(res)
}

// Close releases the VM.
func (e *Engine) Close() {
	if e.vm != nil {
		e.vm.Close()
	}
}

func (e *Engine) bind(ctx *EvalContext) {
	if ctx == nil {
		ctx = &EvalContext{}
	}
	e.rand = ctx.Rand
	vm := e.vm
	vm.SetGlobal("score", lua.LNumber(ctx.Score))
	vm.SetGlobal("lives", lua.LNumber(ctx.Lives))
	vm.SetGlobal("time", lua.LNumber(ctx.Time))
	vm.SetGlobal("dt", lua.LNumber(ctx.DT))

	vars := vm.NewTable()
	for name, v := range ctx.Vars {
		vars.RawSetString(name, toLua(v))
	}
	vm.SetGlobal("vars", vars)

	if ctx.Self == nil {
		vm.SetGlobal("self", lua.LNil)
		return
	}
	self := vm.NewTable()
	self.RawSetString("id", lua.LString(ctx.Self.ID))
	self.RawSetString("x", lua.LNumber(ctx.Self.Position.X))
	self.RawSetString("y", lua.LNumber(ctx.Self.Position.Y))
	self.RawSetString("angle", lua.LNumber(ctx.Self.Angle))
	self.RawSetString("vx", lua.LNumber(ctx.Self.Velocity.X))
	self.RawSetString("vy", lua.LNumber(ctx.Self.Velocity.Y))
	vm.SetGlobal("self", self)
}

func (e *Engine) draw() float64 {
	if e.rand == nil {
		return 0
	}
	return e.rand()
}

func (e *Engine) luaRand(L *lua.LState) int {
	L.Push(lua.LNumber(e.draw()))
	return 1
}

func (e *Engine) luaRandom(L *lua.LState) int {
	lo := float64(L.CheckNumber(1))
	hi := float64(L.CheckNumber(2))
	L.Push(lua.LNumber(lo + e.draw()*(hi-lo)))
	return 1
}

// fail logs an expression failure once per expression source.
func (e *Engine) fail(expr string, err error) {
	if e.failed[expr] {
		return
	}
	e.failed[expr] = true
	e.log.Warn("expression failed, using zero value", zap.String("expr", expr), zap.Error(err))
}

func toLua(v scene.Value) lua.LValue {
	switch v.Kind {
	case scene.KindNumber:
		return lua.LNumber(v.Num)
	case scene.KindString:
		return lua.LString(v.Str)
	case scene.KindBool:
		return lua.LBool(v.Bool)
	}
	return lua.LNil
}

func toNumber(v lua.LValue) float64 {
	switch r := v.(type) {
	case lua.LNumber:
		return float64(r)
	case lua.LBool:
		if r {
			return 1
		}
		return 0
	case lua.LString:
		f, err := strconv.ParseFloat(string(r), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}
