package system

import "time"

// Phase defines execution ordering within a single frame.
type Phase int

const (
	PhasePhysics   Phase = iota // 0: advance the physics host, drain contacts
	PhaseSync                   // 1: copy body poses into transforms
	PhaseBehaviors              // 2: group lifecycle, then phased behaviors
	PhaseRules                  // 3: triggers, conditions, actions, win/lose
	PhaseOutput                 // 4: flush notifications
	PhaseCleanup                // 5: clear per-frame input and collisions
)

func (p Phase) String() string {
	switch p {
	case PhasePhysics:
		return "physics"
	case PhaseSync:
		return "sync"
	case PhaseBehaviors:
		return "behaviors"
	case PhaseRules:
		return "rules"
	case PhaseOutput:
		return "output"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every frame system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
