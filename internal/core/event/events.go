package event

import (
	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/scene"
)

// ---------- Simulation state ----------

// ScoreChanged fires whenever the rule engine writes the score.
type ScoreChanged struct {
	Score int
}

// LivesChanged fires whenever the rule engine writes lives.
type LivesChanged struct {
	Lives int
}

// StateChanged fires on every game-state transition.
type StateChanged struct {
	From string
	To   string
}

// VariableChanged fires when a rule writes a variable.
type VariableChanged struct {
	Name  string
	Value scene.Value
}

// GameEvent mirrors a named rule event for hosts that listen to them.
type GameEvent struct {
	Name string
	Data map[string]scene.Value
}

// ---------- Entities ----------

type EntitySpawned struct {
	EntityID string
	Template string
	Position geom.Vec2
}

type EntityDestroyed struct {
	EntityID string
}

// ---------- One-way collaborator requests ----------

type CameraShake struct {
	Intensity float64
	Duration  float64
}

type CameraZoom struct {
	Scale    float64
	Duration float64
}

type SoundPlay struct {
	SoundID string
	Volume  float64
}

// ParticleEffect asks the particle collaborator for a one-shot effect.
type ParticleEffect struct {
	Effect   string
	Position geom.Vec2
}
