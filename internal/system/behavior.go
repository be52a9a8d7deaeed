package system

import (
	"context"
	"time"

	"github.com/hassoncs/clover-sub000/internal/behavior"
	coresys "github.com/hassoncs/clover-sub000/internal/core/system"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/observe"
	"github.com/hassoncs/clover-sub000/internal/rules"
)

// BehaviorSystem runs the group lifecycle pass and the behavior phases over the
// active entities. Phase 2 (Behaviors).
type BehaviorSystem struct {
	sched   *behavior.Scheduler
	reg     *entity.Registry
	game    *rules.Engine
	buf     *frame.Buffer
	base    behavior.Frame
	metrics *observe.Metrics
	panics  uint64
}

// NewBehaviorSystem takes the frame fields that never change between ticks in
// base: Registry, Physics, Resolver, Rand and Host.
func NewBehaviorSystem(sched *behavior.Scheduler, game *rules.Engine, buf *frame.Buffer, base behavior.Frame, metrics *observe.Metrics) *BehaviorSystem {
	return &BehaviorSystem{
		sched:   sched,
		reg:     base.Registry,
		game:    game,
		buf:     buf,
		base:    base,
		metrics: metrics,
	}
}

func (s *BehaviorSystem) Phase() coresys.Phase { return coresys.PhaseBehaviors }

func (s *BehaviorSystem) Update(_ time.Duration) {
	f := s.base
	f.DT, f.Elapsed = s.buf.DT, s.buf.Elapsed
	f.Input, f.Collisions = s.buf.Input, s.buf.Collisions
	f.Score, f.Lives, f.Vars = s.game.Score(), s.game.Lives(), s.game.VariablesView()

	s.sched.Step(s.reg.Active(), &f)

	if n := s.sched.Panics(); n > s.panics {
		s.metrics.RecordPanics(context.Background(), "behaviors", int64(n-s.panics))
		s.panics = n
	}
}
