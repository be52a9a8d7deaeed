package system

import (
	"time"

	coresys "github.com/hassoncs/clover-sub000/internal/core/system"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"github.com/hassoncs/clover-sub000/internal/rules"
)

// RulesSystem evaluates triggers, conditions and actions, then win and lose.
// Phase 3 (Rules).
type RulesSystem struct {
	game *rules.Engine
	buf  *frame.Buffer
}

func NewRulesSystem(game *rules.Engine, buf *frame.Buffer) *RulesSystem {
	return &RulesSystem{game: game, buf: buf}
}

func (s *RulesSystem) Phase() coresys.Phase { return coresys.PhaseRules }

func (s *RulesSystem) Update(_ time.Duration) {
	s.game.Update(s.buf.DT, s.buf.Input, s.buf.Collisions)
}
