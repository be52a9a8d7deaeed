// Package rules evaluates a scene's rules once per frame and owns the game-level
// state they act on: score, lives, elapsed time, variables, lists and cooldowns.
package rules

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/hassoncs/clover-sub000/internal/core/event"
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/observe"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/hassoncs/clover-sub000/internal/scripting"
	"go.uber.org/zap"
)

// GameState is the top-level simulation state.
type GameState string

const (
	Ready   GameState = "ready"
	Playing GameState = "playing"
	Paused  GameState = "paused"
	Won     GameState = "won"
	Lost    GameState = "lost"
)

// Entities creates and removes entities on behalf of actions. The runtime
// routes both through the same path behaviors use.
type Entities interface {
	SpawnEntity(template string, pos geom.Vec2) *entity.Entity
	DestroyEntity(id string)
}

// Deps are the engine's collaborators. Only Registry is required.
type Deps struct {
	Registry *entity.Registry
	Entities Entities
	Physics  physics.World
	Resolver scripting.Resolver
	Bus      *event.Bus
	Rand     func() float64
	Metrics  *observe.Metrics
	Log      *zap.Logger
}

type delayedState struct {
	at    float64
	state string
}

// Engine is the rule engine. It is not safe for concurrent use.
type Engine struct {
	reg      *entity.Registry
	entities Entities
	phys     physics.World
	resolver scripting.Resolver
	bus      *event.Bus
	rand     func() float64
	metrics  *observe.Metrics
	log      *zap.Logger

	rules        []scene.Rule
	win          *scene.WinCondition
	lose         *scene.LoseCondition
	bounds       *geom.Bounds
	initialLives int
	initialVars  map[string]scene.Value

	state     GameState
	score     int
	lives     int
	elapsed   float64
	vars      map[string]scene.Value
	lists     map[string][]scene.Value
	cooldowns map[string]float64
	fired     map[string]bool
	events    map[string]map[string]scene.Value
	delayed   []delayedState
	resets    int
	panics    int64

	// per-Update inputs
	dt         float64
	input      frame.Input
	collisions []frame.Collision
}

func NewEngine(d Deps) *Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Resolver == nil {
		d.Resolver = scripting.NewLiterals(d.Log)
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewPCG(1, 2)).Float64
	}
	if d.Entities == nil {
		d.Entities = registryEntities{d.Registry}
	}
	return &Engine{
		reg:          d.Registry,
		entities:     d.Entities,
		phys:         d.Physics,
		resolver:     d.Resolver,
		bus:          d.Bus,
		rand:         d.Rand,
		metrics:      d.Metrics,
		log:          d.Log,
		state:        Ready,
		initialLives: scene.DefaultLives,
		lives:        scene.DefaultLives,
		initialVars:  map[string]scene.Value{},
		vars:         map[string]scene.Value{},
		lists:        map[string][]scene.Value{},
		cooldowns:    map[string]float64{},
		fired:        map[string]bool{},
		events:       map[string]map[string]scene.Value{},
	}
}

type registryEntities struct{ reg *entity.Registry }

func (r registryEntities) SpawnEntity(template string, pos geom.Vec2) *entity.Entity {
	return r.reg.Spawn(template, pos)
}

func (r registryEntities) DestroyEntity(id string) { r.reg.Destroy(id, true) }

// Load installs the scene's rules, win/lose conditions, lives and variables and
// resets to ready.
func (e *Engine) Load(s *scene.Scene) {
	e.LoadRules(s.Rules)
	e.SetWinCondition(s.WinCondition)
	e.SetLoseCondition(s.LoseCondition)
	e.SetInitialLives(s.Lives(scene.DefaultLives))
	e.SetInitialVariables(s.Variables)
	e.bounds = s.World.Bounds
	e.Reset()
}

func (e *Engine) LoadRules(rules []scene.Rule)           { e.rules = rules }
func (e *Engine) SetWinCondition(c *scene.WinCondition)   { e.win = c }
func (e *Engine) SetLoseCondition(c *scene.LoseCondition) { e.lose = c }

// SetWorldBounds sets the area entity_exits_screen measures against.
func (e *Engine) SetWorldBounds(b *geom.Bounds) { e.bounds = b }

// SetInitialLives sets the starting lives and the current lives.
func (e *Engine) SetInitialLives(n int) {
	e.initialLives = n
	e.setLives(n)
}

// SetInitialVariables replaces the variable store and the values Reset restores.
func (e *Engine) SetInitialVariables(vars map[string]scene.Value) {
	e.initialVars = maps.Clone(vars)
	if e.initialVars == nil {
		e.initialVars = map[string]scene.Value{}
	}
	e.vars = maps.Clone(e.initialVars)
}

// ---------- state machine ----------

func (e *Engine) State() GameState { return e.state }

// Start moves ready to playing.
func (e *Engine) Start() bool {
	if e.state != Ready {
		return false
	}
	e.setState(Playing)
	return true
}

func (e *Engine) Pause() bool {
	if e.state != Playing {
		return false
	}
	e.setState(Paused)
	return true
}

func (e *Engine) Resume() bool {
	if e.state != Paused {
		return false
	}
	e.setState(Playing)
	return true
}

// Reset restores score, lives, elapsed time and variables to their initial
// values, clears lists, cooldowns, fire-once marks and pending events, and
// returns to ready. It is the only way out of won and lost.
func (e *Engine) Reset() {
	e.setScore(0)
	e.setLives(e.initialLives)
	e.elapsed = 0
	e.vars = maps.Clone(e.initialVars)
	clear(e.lists)
	clear(e.cooldowns)
	clear(e.fired)
	clear(e.events)
	e.delayed = nil
	e.resets++
	e.setState(Ready)
}

func (e *Engine) setState(s GameState) {
	if s == e.state {
		return
	}
	from := e.state
	e.state = s
	e.log.Debug("game state", zap.String("from", string(from)), zap.String("to", string(s)))
	if e.bus != nil {
		event.Emit(e.bus, event.StateChanged{From: string(from), To: string(s)})
	}
}

// applyState performs a game_state action: win, lose, pause or restart.
func (e *Engine) applyState(state string) {
	switch state {
	case "win":
		e.setState(Won)
	case "lose":
		e.setState(Lost)
	case "pause":
		e.setState(Paused)
	case "restart":
		e.Reset()
		e.setState(Playing)
	default:
		e.log.Warn("unknown game state action", zap.String("state", state))
	}
}

// ---------- accessors ----------

func (e *Engine) Score() int       { return e.score }
func (e *Engine) Lives() int       { return e.lives }
func (e *Engine) Elapsed() float64 { return e.elapsed }
func (e *Engine) SetScore(n int)   { e.setScore(n) }
func (e *Engine) AddScore(n int)   { e.setScore(e.score + n) }
func (e *Engine) SetLives(n int)   { e.setLives(n) }
func (e *Engine) AddLives(n int)   { e.setLives(e.lives + n) }

// Panics counts rules that panicked and were skipped.
func (e *Engine) Panics() int64 { return e.panics }

// Resets counts every reset, including restarts raised by rules.
func (e *Engine) Resets() int { return e.resets }

// HasFired reports whether a fireOnce rule has fired since the last reset.
func (e *Engine) HasFired(id string) bool { return e.fired[id] }

// FiredRules returns the sorted ids of fireOnce rules that have fired.
func (e *Engine) FiredRules() []string {
	var out []string
	for id, ok := range e.fired {
		if ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (e *Engine) setScore(n int) {
	if n == e.score {
		return
	}
	e.score = n
	if e.bus != nil {
		event.Emit(e.bus, event.ScoreChanged{Score: n})
	}
}

func (e *Engine) setLives(n int) {
	if n == e.lives {
		return
	}
	e.lives = n
	if e.bus != nil {
		event.Emit(e.bus, event.LivesChanged{Lives: n})
	}
}

// Variables returns a copy of the variable store.
func (e *Engine) Variables() map[string]scene.Value { return maps.Clone(e.vars) }

// VariablesView returns the live store for read-only use within one frame.
func (e *Engine) VariablesView() map[string]scene.Value { return e.vars }

func (e *Engine) Variable(name string) (scene.Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

func (e *Engine) SetVariable(name string, v scene.Value) {
	e.vars[name] = v
	if e.bus != nil {
		event.Emit(e.bus, event.VariableChanged{Name: name, Value: v})
	}
}

// List returns a copy of the named list.
func (e *Engine) List(name string) []scene.Value {
	return append([]scene.Value(nil), e.lists[name]...)
}

// ListNames returns the sorted names of non-empty lists.
func (e *Engine) ListNames() []string {
	var out []string
	for name, l := range e.lists {
		if len(l) > 0 {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func (e *Engine) SetList(name string, vals []scene.Value) {
	e.lists[name] = append([]scene.Value(nil), vals...)
}

// Cooldown returns when the named cooldown ends, in elapsed seconds.
func (e *Engine) Cooldown(id string) (float64, bool) {
	end, ok := e.cooldowns[id]
	return end, ok
}

// CooldownIDs returns the sorted ids of every started cooldown.
func (e *Engine) CooldownIDs() []string {
	return slices.Sorted(maps.Keys(e.cooldowns))
}

// TriggerEvent queues a named event. Rules evaluated later in the same Update
// see it; it is cleared when that Update ends.
func (e *Engine) TriggerEvent(name string, data map[string]scene.Value) {
	e.events[name] = data
	if e.bus != nil {
		event.Emit(e.bus, event.GameEvent{Name: name, Data: data})
	}
}

// ---------- frame ----------

// Update runs one frame: advance time, check win then lose, then evaluate every
// rule in declaration order. It is a no-op unless playing. Pending events are
// cleared on return either way.
func (e *Engine) Update(dt float64, in frame.Input, collisions []frame.Collision) {
	defer clear(e.events)
	if e.state != Playing {
		return
	}
	e.dt, e.input, e.collisions = dt, in, collisions
	defer func() { e.input, e.collisions = frame.Input{}, nil }()

	e.elapsed += dt
	if !e.runDelayed() {
		return
	}

	if e.checkWin() {
		e.setState(Won)
		return
	}
	if e.checkLose() {
		e.setState(Lost)
		return
	}

	gen := e.resets
	for i := range e.rules {
		e.evaluate(&e.rules[i])
		if e.state != Playing || e.resets != gen {
			return
		}
	}
}

// runDelayed applies game_state actions whose delay has elapsed, in the order
// they were queued. It reports whether the engine is still playing.
func (e *Engine) runDelayed() bool {
	if len(e.delayed) == 0 {
		return true
	}
	gen := e.resets
	due := e.delayed[:0:0]
	rest := e.delayed[:0:0]
	for _, d := range e.delayed {
		if e.elapsed >= d.at {
			due = append(due, d)
		} else {
			rest = append(rest, d)
		}
	}
	e.delayed = rest
	for _, d := range due {
		e.applyState(d.state)
		if e.state != Playing || e.resets != gen {
			return false
		}
	}
	return true
}

// evaluate runs one rule. A panicking rule is logged and skipped; the frame goes on.
func (e *Engine) evaluate(r *scene.Rule) {
	defer func() {
		if p := recover(); p != nil {
			e.panics++
			e.metrics.RecordPanics(context.Background(), "rules", 1)
			e.log.Error("rule panicked", zap.String("rule", r.ID), zap.Any("panic", p))
		}
	}()

	if !r.IsEnabled() {
		return
	}
	if r.FireOnce && e.fired[r.ID] {
		return
	}
	if end, ok := e.cooldowns[r.ID]; ok && e.elapsed < end {
		return
	}
	rc := &ruleContext{rule: r}
	if !e.trigger(r.Trigger, rc) {
		return
	}
	for _, c := range r.Conditions {
		if !e.condition(c) {
			return
		}
	}
	gen := e.resets
	for _, a := range r.Actions {
		e.action(a, rc)
		if e.resets != gen {
			// restart wiped the state this rule was acting on
			return
		}
	}
	if r.FireOnce {
		e.fired[r.ID] = true
	}
	if r.Cooldown > 0 {
		e.cooldowns[r.ID] = e.elapsed + r.Cooldown
	}
	e.metrics.RecordRuleFired(context.Background(), r.ID)
}

// ruleContext carries what a rule's trigger matched to its actions.
type ruleContext struct {
	rule    *scene.Rule
	matched []frame.Collision
}

func (e *Engine) evalContext() *scripting.EvalContext {
	return &scripting.EvalContext{
		Score: e.score,
		Lives: e.lives,
		Time:  e.elapsed,
		DT:    e.dt,
		Vars:  e.vars,
		Rand:  e.rand,
	}
}

func (e *Engine) number(n scene.Number) float64 {
	if !n.IsExpr() {
		return n.Value
	}
	return e.resolver.Number(n, e.evalContext())
}

func (e *Engine) numberOr(n *scene.Number, def float64) float64 {
	if n == nil {
		return def
	}
	return e.number(*n)
}

func (e *Engine) value(v scene.Value) scene.Value {
	if !v.IsExpr() {
		return v
	}
	return e.resolver.Value(v, e.evalContext())
}

func (s GameState) String() string { return string(s) }

func (e *Engine) String() string {
	return fmt.Sprintf("rules{state=%s score=%d lives=%d t=%.3f}", e.state, e.score, e.lives, e.elapsed)
}
