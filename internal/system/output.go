package system

import (
	"context"
	"time"

	"github.com/hassoncs/clover-sub000/internal/core/event"
	coresys "github.com/hassoncs/clover-sub000/internal/core/system"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/observe"
)

// OutputSystem delivers the frame's notifications and keeps the live-entity
// gauge current. Phase 4 (Output).
type OutputSystem struct {
	bus      *event.Bus
	reg      *entity.Registry
	metrics  *observe.Metrics
	entities int // last reported live count
}

func NewOutputSystem(bus *event.Bus, reg *entity.Registry, metrics *observe.Metrics) *OutputSystem {
	return &OutputSystem{bus: bus, reg: reg, metrics: metrics}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	ctx := context.Background()
	if n := s.bus.Flush(); n > 0 {
		s.metrics.RecordNotifications(ctx, n)
	}
	if d := s.reg.Len() - s.entities; d != 0 {
		s.metrics.AddEntities(ctx, d)
		s.entities += d
	}
}
