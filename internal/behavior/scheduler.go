// Package behavior runs entity behaviors: the conditional-group lifecycle pass
// followed by the fixed phase passes, through a static handler table.
package behavior

import (
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/scene"
	"go.uber.org/zap"
)

// HandlerFunc runs one behavior instance for one entity.
type HandlerFunc func(c *Context, b *entity.RuntimeBehavior)

// Handler is the handler set of one behavior kind. Only Execute is required.
type Handler struct {
	Execute      HandlerFunc
	OnActivate   HandlerFunc
	OnDeactivate HandlerFunc
}

// Scheduler is not safe for concurrent use; the frame loop is its only caller.
type Scheduler struct {
	log      *zap.Logger
	handlers map[scene.Kind]Handler
	panics   uint64
}

// NewScheduler creates a scheduler with the built-in handler set registered.
func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		log:      log,
		handlers: make(map[scene.Kind]Handler, len(phases)),
	}
	registerBuiltins(s)
	return s
}

// Register installs or replaces the handler set of a kind.
func (s *Scheduler) Register(kind scene.Kind, h Handler) {
	s.handlers[kind] = h
}

func (s *Scheduler) Handler(kind scene.Kind) (Handler, bool) {
	h, ok := s.handlers[kind]
	return h, ok
}

// Panics returns the number of recovered handler panics so far.
func (s *Scheduler) Panics() uint64 { return s.panics }

// Step runs one frame over the given entities: the lifecycle pass, then every
// phase in order. Entities destroyed or deactivated mid-frame are skipped from
// that point on; entities created mid-frame are not in the slice and run next frame.
func (s *Scheduler) Step(entities []*entity.Entity, f *Frame) {
	s.Lifecycle(entities, f)
	for _, p := range Phases {
		s.RunPhase(p, entities, f)
	}
}

// Lifecycle consumes pending group transitions: OnDeactivate for the old group's
// behaviors, then OnActivate for the new group's.
func (s *Scheduler) Lifecycle(entities []*entity.Entity, f *Frame) {
	for _, e := range entities {
		if !live(e) {
			continue
		}
		tr, ok := e.TakePending()
		if !ok {
			continue
		}
		c := newContext(f, e)
		s.guard(e, "lifecycle", func() {
			if g := e.GroupAt(tr.From); g != nil {
				for _, b := range g.Behaviors {
					s.callback(c, b, false)
				}
			}
			if g := e.GroupAt(tr.To); g != nil {
				for _, b := range g.Behaviors {
					s.callback(c, b, true)
				}
			}
		})
	}
}

// RunPhase executes the behaviors of one phase: each entity's always-on behaviors
// in declaration order, then those of its live conditional group.
func (s *Scheduler) RunPhase(p Phase, entities []*entity.Entity, f *Frame) {
	for _, e := range entities {
		if !live(e) {
			continue
		}
		c := newContext(f, e)
		s.guard(e, p.String(), func() {
			for _, b := range e.Behaviors {
				s.execute(c, b, p)
			}
			if g := e.LiveGroup(); g != nil {
				for _, b := range g.Behaviors {
					s.execute(c, b, p)
				}
			}
		})
	}
}

// ExecuteSingle runs one behavior outside the phase loop.
func (s *Scheduler) ExecuteSingle(e *entity.Entity, b *entity.RuntimeBehavior, f *Frame) {
	if !b.Enabled || e.Destroyed() {
		return
	}
	h, ok := s.handlers[b.Def.Kind]
	if !ok || h.Execute == nil {
		return
	}
	s.guard(e, "single", func() { h.Execute(newContext(f, e), b) })
}

func (s *Scheduler) execute(c *Context, b *entity.RuntimeBehavior, p Phase) {
	if !b.Enabled || c.Entity.Destroyed() {
		return
	}
	if bp, ok := PhaseOf(b.Def.Kind); !ok || bp != p {
		return
	}
	if h, ok := s.handlers[b.Def.Kind]; ok && h.Execute != nil {
		h.Execute(c, b)
	}
}

func (s *Scheduler) callback(c *Context, b *entity.RuntimeBehavior, activate bool) {
	if !b.Enabled || c.Entity.Destroyed() {
		return
	}
	h, ok := s.handlers[b.Def.Kind]
	if !ok {
		return
	}
	fn := h.OnDeactivate
	if activate {
		fn = h.OnActivate
	}
	if fn != nil {
		fn(c, b)
	}
}

// guard isolates a panicking handler to the entity it ran for.
func (s *Scheduler) guard(e *entity.Entity, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.panics++
			s.log.Error("behavior handler panicked",
				zap.String("entity", e.ID),
				zap.String("stage", stage),
				zap.Any("panic", r))
		}
	}()
	fn()
}

func live(e *entity.Entity) bool {
	return e.Active && !e.Destroyed()
}
