package behavior

import "github.com/hassoncs/clover-sub000/internal/scene"

// Phase buckets behavior execution within a frame.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseTimer
	PhaseMovement
	PhaseVisual
	PhasePostPhysics
)

// Phases is the fixed execution order.
var Phases = [...]Phase{PhaseInput, PhaseTimer, PhaseMovement, PhaseVisual, PhasePostPhysics}

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseTimer:
		return "timer"
	case PhaseMovement:
		return "movement"
	case PhaseVisual:
		return "visual"
	case PhasePostPhysics:
		return "post_physics"
	}
	return "unknown"
}

var phases = map[scene.Kind]Phase{
	scene.KindControl:            PhaseInput,
	scene.KindTimer:              PhaseTimer,
	scene.KindMove:               PhaseMovement,
	scene.KindFollow:             PhaseMovement,
	scene.KindBounce:             PhaseMovement,
	scene.KindOscillate:          PhaseMovement,
	scene.KindGravityZone:        PhaseMovement,
	scene.KindMagnetic:           PhaseMovement,
	scene.KindRotate:             PhaseVisual,
	scene.KindAnimate:            PhaseVisual,
	scene.KindSpawnOnEvent:       PhasePostPhysics,
	scene.KindDestroyOnCollision: PhasePostPhysics,
	scene.KindScoreOnCollision:   PhasePostPhysics,
}

// PhaseOf returns the phase a kind is statically assigned to.
func PhaseOf(k scene.Kind) (Phase, bool) {
	p, ok := phases[k]
	return p, ok
}
