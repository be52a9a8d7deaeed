package system

import (
	"time"

	coresys "github.com/hassoncs/clover-sub000/internal/core/system"
	"github.com/hassoncs/clover-sub000/internal/frame"
)

// CleanupSystem drops the frame's input snapshot and collisions at tick end.
// Phase 5 (Cleanup).
type CleanupSystem struct {
	buf *frame.Buffer
}

func NewCleanupSystem(buf *frame.Buffer) *CleanupSystem {
	return &CleanupSystem{buf: buf}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.buf.Clear()
}
