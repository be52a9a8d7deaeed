package system

import (
	"time"

	coresys "github.com/hassoncs/clover-sub000/internal/core/system"
	"github.com/hassoncs/clover-sub000/internal/entity"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/physics"
	"go.uber.org/zap"
)

// PhysicsSystem steps the physics host when it lets the runtime drive it, then
// drains its begin-contacts into the frame's collisions. Phase 0 (Physics).
type PhysicsSystem struct {
	world physics.World
	reg   *entity.Registry
	buf   *frame.Buffer
	log   *zap.Logger
}

func NewPhysicsSystem(world physics.World, reg *entity.Registry, buf *frame.Buffer, log *zap.Logger) *PhysicsSystem {
	return &PhysicsSystem{world: world, reg: reg, buf: buf, log: log}
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *PhysicsSystem) Update(_ time.Duration) {
	if st, ok := s.world.(physics.Stepper); ok {
		st.Step(s.buf.DT)
	}
	src, ok := s.world.(physics.ContactSource)
	if !ok {
		return
	}
	for _, c := range src.DrainContacts() {
		col, ok := frame.FromContact(s.reg, c)
		if !ok {
			s.log.Debug("contact without entity dropped",
				zap.Uint32("bodyA", uint32(c.BodyA)), zap.Uint32("bodyB", uint32(c.BodyB)))
			continue
		}
		s.buf.AddCollision(col)
	}
}

// SyncSystem copies body poses into entity transforms and recomputes the
// world transforms of everything else. Phase 1 (Sync).
type SyncSystem struct {
	reg *entity.Registry
}

func NewSyncSystem(reg *entity.Registry) *SyncSystem {
	return &SyncSystem{reg: reg}
}

func (s *SyncSystem) Phase() coresys.Phase { return coresys.PhaseSync }

func (s *SyncSystem) Update(_ time.Duration) {
	s.reg.SyncFromPhysics()
}
