// Package runtime wires a loaded scene to the entity registry, behavior
// scheduler, rule engine and notification bus, and steps them one frame at a
// time through the phase runner.
package runtime

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/hassoncs/clover-sub000/internal/behavior"
	"github.com/hassoncs/clover-sub000/internal/config"
	"github.com/hassoncs/clover-sub000/internal/core/event"
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	coresys "github.com/hassoncs/clover-sub000/internal/core/system"
	"github.com/hassoncs/clover-sub000/internal/core/tags"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/observe"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"github.com/hassoncs/clover-sub000/internal/rules"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"github.com/hassoncs/clover-sub000/internal/scripting"
	"github.com/hassoncs/clover-sub000/internal/system"
	"go.uber.org/zap"
)

type Options struct {
	Log      *zap.Logger
	Seed     int64
	Resolver scripting.Resolver // nil: literals only
	Metrics  *observe.Metrics   // nil: no-op instruments

	// InitialLives applies when the scene leaves initialLives unset. Zero keeps
	// scene.DefaultLives.
	InitialLives int
	StartOnLoad  bool
}

// OptionsFromConfig maps the simulation and scripting sections onto Options.
// Lua helpers in scripting.scripts_dir are loaded into the expression engine.
// The returned resolver must be closed by the caller when it is a Lua engine;
// Runtime.Close does that.
func OptionsFromConfig(cfg *config.Config, log *zap.Logger) (Options, error) {
	opts := Options{
		Log:          log,
		Seed:         cfg.Simulation.Seed,
		InitialLives: cfg.Simulation.InitialLives,
		StartOnLoad:  cfg.Simulation.StartOnLoad,
	}
	if cfg.Scripting.Enabled {
		eng := scripting.NewEngine(log, cfg.Scripting.MaxCachedExpressions)
		if cfg.Scripting.ScriptsDir != "" {
			if err := eng.LoadDir(cfg.Scripting.ScriptsDir); err != nil {
				eng.Close()
				return Options{}, fmt.Errorf("load scripts: %w", err)
			}
		}
		opts.Resolver = eng
	}
	return opts, nil
}

// Runtime is one simulation instance. It is not safe for concurrent use;
// independent instances share nothing and may run in parallel.
type Runtime struct {
	id       string
	log      *zap.Logger
	scene    *scene.Scene
	phys     physics.World
	tags     *tags.Registry
	reg      *entity.Registry
	sched    *behavior.Scheduler
	rules    *rules.Engine
	bus      *event.Bus
	resolver scripting.Resolver
	metrics  *observe.Metrics
	rand     *rand.Rand
	runner   *coresys.Runner

	buf    frame.Buffer
	frames uint64
	resets int // rule engine resets already folded into buf.Elapsed
}

var (
	_ behavior.Host  = (*Runtime)(nil)
	_ rules.Entities = (*Runtime)(nil)
)

// Load validates s and builds a runtime over phys. A nil phys gets a kinematic
// host with the scene's gravity.
func Load(s *scene.Scene, phys physics.World, opts Options) (*Runtime, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("load scene %q: %w", s.Metadata.ID, err)
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	timed := opts.Metrics != nil
	if !timed {
		opts.Metrics = observe.Nop()
	}
	id := uuid.NewString()
	log := opts.Log.With(zap.String("sim", id), zap.String("scene", s.Metadata.ID))
	if opts.Resolver == nil {
		opts.Resolver = scripting.NewLiterals(log)
	}
	if phys == nil {
		phys = physics.NewKinematic(*s.World.Gravity)
	}

	seed := uint64(opts.Seed)
	r := &Runtime{
		id:       id,
		log:      log,
		scene:    s,
		phys:     phys,
		tags:     tags.NewRegistry(),
		sched:    behavior.NewScheduler(log),
		bus:      event.NewBus(),
		resolver: opts.Resolver,
		metrics:  opts.Metrics,
		rand:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		runner:   coresys.NewRunner(),
	}
	r.reg = entity.NewRegistry(phys, r.tags, log)
	r.rules = rules.NewEngine(rules.Deps{
		Registry: r.reg,
		Entities: r,
		Physics:  phys,
		Resolver: r.resolver,
		Bus:      r.bus,
		Rand:     r.rand.Float64,
		Metrics:  r.metrics,
		Log:      log,
	})
	r.rules.Load(s)
	if s.InitialLives == nil && opts.InitialLives > 0 {
		r.rules.SetInitialLives(opts.InitialLives)
	}
	r.resets = r.rules.Resets()
	for tid, t := range s.Templates {
		r.reg.RegisterTemplate(tid, t)
	}
	r.populate()

	// ---------- frame systems ----------
	r.runner.Register(system.NewPhysicsSystem(phys, r.reg, &r.buf, log))
	r.runner.Register(system.NewSyncSystem(r.reg))
	r.runner.Register(system.NewBehaviorSystem(r.sched, r.rules, &r.buf, behavior.Frame{
		Registry: r.reg,
		Physics:  phys,
		Resolver: r.resolver,
		Rand:     r.rand.Float64,
		Host:     r,
	}, r.metrics))
	r.runner.Register(system.NewRulesSystem(r.rules, &r.buf))
	r.runner.Register(system.NewOutputSystem(r.bus, r.reg, r.metrics))
	r.runner.Register(system.NewCleanupSystem(&r.buf))
	if timed {
		r.runner.Observe(func(p coresys.Phase, d time.Duration) {
			r.metrics.RecordPhase(context.Background(), p.String(), d.Seconds())
		})
	}

	log.Info("scene loaded",
		zap.String("title", s.Metadata.Title),
		zap.Int("entities", r.reg.Len()),
		zap.Int("rules", len(s.Rules)),
		zap.Int("systems", r.runner.Len()))

	if opts.StartOnLoad {
		r.Start()
	}
	return r, nil
}

func (r *Runtime) populate() {
	for _, def := range r.scene.Entities {
		r.reg.Create(def)
	}
	r.reg.UpdateAllWorldTransforms()
}

// Step advances one frame. Outside playing nothing moves: only the output and
// cleanup phases run, so pending notifications are delivered and the frame
// buffer is dropped.
func (r *Runtime) Step(dt time.Duration) {
	if r.rules.State() != rules.Playing {
		r.runner.TickPhase(coresys.PhaseOutput, dt)
		r.runner.TickPhase(coresys.PhaseCleanup, dt)
		return
	}
	start := time.Now()
	r.buf.DT = dt.Seconds()
	r.buf.Elapsed += r.buf.DT
	r.runner.Tick(dt)
	if n := r.rules.Resets(); n != r.resets {
		r.resets = n
		r.rewind()
	}
	r.frames++
	r.metrics.RecordFrame(context.Background(), time.Since(start).Seconds())
}

// rewind follows a restart raised by a rule: the frame clock goes back to the
// rule clock and behavior state is dropped, so behavior timers count from the
// restart. Entities are kept.
func (r *Runtime) rewind() {
	r.buf.Elapsed = r.rules.Elapsed()
	for _, e := range r.reg.All() {
		e.ResetBehaviorState()
	}
	r.log.Debug("clock rewound after restart", zap.Uint64("frame", r.frames))
}

// SetInput replaces the input snapshot the next Step sees. A pending start
// flag survives the replacement.
func (r *Runtime) SetInput(in frame.Input) {
	in.Start = in.Start || r.buf.Input.Start
	r.buf.Input = in
}

// ReportCollision records a begin-contact for the next Step. It reports false
// when either body has no live entity.
func (r *Runtime) ReportCollision(c physics.Contact) bool {
	col, ok := frame.FromContact(r.reg, c)
	if !ok {
		return false
	}
	return r.buf.AddCollision(col)
}

// CollideEntities records a collision between two entities by id.
func (r *Runtime) CollideEntities(a, b string) bool {
	return r.buf.AddCollision(frame.Collision{A: r.reg.Get(a), B: r.reg.Get(b)})
}

// ---------- game state ----------

// Start moves ready to playing; the next Step fires gameStart triggers.
func (r *Runtime) Start() bool {
	if !r.rules.Start() {
		return false
	}
	r.buf.Input.Start = true
	return true
}

func (r *Runtime) Pause() bool  { return r.rules.Pause() }
func (r *Runtime) Resume() bool { return r.rules.Resume() }

// Reset returns to ready with the scene's entities recreated and the clock at zero.
func (r *Runtime) Reset() {
	r.rules.Reset()
	r.reg.Clear()
	r.populate()
	r.buf = frame.Buffer{}
	r.resets = r.rules.Resets()
	r.log.Info("simulation reset", zap.Uint64("frames", r.frames))
}

// Close releases the expression resolver when it holds a VM.
func (r *Runtime) Close() {
	if c, ok := r.resolver.(interface{ Close() }); ok {
		c.Close()
	}
}

// ---------- behavior.Host / rules.Entities ----------

func (r *Runtime) AddScore(points int)      { r.rules.AddScore(points) }
func (r *Runtime) TriggerEvent(name string) { r.rules.TriggerEvent(name, nil) }

func (r *Runtime) SpawnEntity(template string, pos geom.Vec2) *entity.Entity {
	e := r.reg.Spawn(template, pos)
	if e != nil {
		event.Emit(r.bus, event.EntitySpawned{EntityID: e.ID, Template: template, Position: pos})
	}
	return e
}

func (r *Runtime) DestroyEntity(id string) {
	if r.reg.Destroy(id, true) {
		event.Emit(r.bus, event.EntityDestroyed{EntityID: id})
	}
}

func (r *Runtime) Effect(name string, pos geom.Vec2) {
	event.Emit(r.bus, event.ParticleEffect{Effect: name, Position: pos})
}

// ---------- accessors ----------

func (r *Runtime) ID() string                     { return r.id }
func (r *Runtime) Scene() *scene.Scene            { return r.scene }
func (r *Runtime) Registry() *entity.Registry     { return r.reg }
func (r *Runtime) Rules() *rules.Engine           { return r.rules }
func (r *Runtime) Scheduler() *behavior.Scheduler { return r.sched }
func (r *Runtime) Physics() physics.World         { return r.phys }
func (r *Runtime) Bus() *event.Bus                { return r.bus }
func (r *Runtime) State() rules.GameState         { return r.rules.State() }
func (r *Runtime) Score() int                     { return r.rules.Score() }
func (r *Runtime) Lives() int                     { return r.rules.Lives() }

// Frames returns the number of frames stepped while playing.
func (r *Runtime) Frames() uint64 { return r.frames }

// Elapsed is the runtime clock in seconds. It only advances while playing.
func (r *Runtime) Elapsed() float64 { return r.buf.Elapsed }
