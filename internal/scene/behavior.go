package scene

import (
	"fmt"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"gopkg.in/yaml.v3"
)

// Kind discriminates behavior definitions.
type Kind string

const (
	KindMove               Kind = "move"
	KindRotate             Kind = "rotate"
	KindFollow             Kind = "follow"
	KindBounce             Kind = "bounce"
	KindControl            Kind = "control"
	KindSpawnOnEvent       Kind = "spawn_on_event"
	KindDestroyOnCollision Kind = "destroy_on_collision"
	KindScoreOnCollision   Kind = "score_on_collision"
	KindTimer              Kind = "timer"
	KindAnimate            Kind = "animate"
	KindOscillate          Kind = "oscillate"
	KindGravityZone        Kind = "gravity_zone"
	KindMagnetic           Kind = "magnetic"
)

// Behavior is one typed behavior definition. Params holds a pointer to the
// kind-specific parameter struct, or nil when the kind is unknown.
type Behavior struct {
	Kind    Kind
	Enabled bool
	Params  any
}

// Known reports whether the definition decoded into a recognised kind.
func (b Behavior) Known() bool { return b.Params != nil }

func (b *Behavior) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Type    Kind  `yaml:"type"`
		Enabled *bool `yaml:"enabled"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	if head.Type == "" {
		return fmt.Errorf("line %d: behavior without type", node.Line)
	}
	b.Kind = head.Type
	b.Enabled = head.Enabled == nil || *head.Enabled
	b.Params = newParams(head.Type)
	if b.Params == nil {
		// unknown kinds survive decoding; the registry logs and skips them
		return nil
	}
	if err := node.Decode(b.Params); err != nil {
		return fmt.Errorf("%s behavior: %w", head.Type, err)
	}
	return nil
}

func newParams(k Kind) any {
	switch k {
	case KindMove:
		return &MoveParams{}
	case KindRotate:
		return &RotateParams{}
	case KindFollow:
		return &FollowParams{}
	case KindBounce:
		return &BounceParams{}
	case KindControl:
		return &ControlParams{}
	case KindSpawnOnEvent:
		return &SpawnOnEventParams{}
	case KindDestroyOnCollision:
		return &DestroyOnCollisionParams{}
	case KindScoreOnCollision:
		return &ScoreOnCollisionParams{}
	case KindTimer:
		return &TimerParams{}
	case KindAnimate:
		return &AnimateParams{}
	case KindOscillate:
		return &OscillateParams{}
	case KindGravityZone:
		return &GravityZoneParams{}
	case KindMagnetic:
		return &MagneticParams{}
	}
	return nil
}

// NewBehavior builds a definition in code, mostly for tests and tooling.
func NewBehavior(params any) Behavior {
	return Behavior{Kind: kindOf(params), Enabled: true, Params: params}
}

func kindOf(params any) Kind {
	switch params.(type) {
	case *MoveParams:
		return KindMove
	case *RotateParams:
		return KindRotate
	case *FollowParams:
		return KindFollow
	case *BounceParams:
		return KindBounce
	case *ControlParams:
		return KindControl
	case *SpawnOnEventParams:
		return KindSpawnOnEvent
	case *DestroyOnCollisionParams:
		return KindDestroyOnCollision
	case *ScoreOnCollisionParams:
		return KindScoreOnCollision
	case *TimerParams:
		return KindTimer
	case *AnimateParams:
		return KindAnimate
	case *OscillateParams:
		return KindOscillate
	case *GravityZoneParams:
		return KindGravityZone
	case *MagneticParams:
		return KindMagnetic
	}
	return ""
}

type MoveParams struct {
	Direction    string       `yaml:"direction"` // left, right, up, down, toward_target, away_from_target
	Speed        Number       `yaml:"speed"`
	Target       string       `yaml:"target"`
	MovementType string       `yaml:"movementType"` // velocity (default) or force
	Patrol       *geom.Bounds `yaml:"patrol"`
}

type RotateParams struct {
	Speed          Number `yaml:"speed"`
	Direction      string `yaml:"direction"` // clockwise or counterclockwise
	AffectsPhysics bool   `yaml:"affectsPhysics"`
}

type FollowParams struct {
	Target      string   `yaml:"target"`
	Speed       Number   `yaml:"speed"`
	MinDistance *float64 `yaml:"minDistance"`
	MaxDistance *float64 `yaml:"maxDistance"`
}

type BounceParams struct {
	Bounds geom.Bounds `yaml:"bounds"`
}

type ControlParams struct {
	ControlType string   `yaml:"controlType"` // tap_to_jump, drag_to_aim, tilt_to_move, buttons
	Force       *Number  `yaml:"force"`
	Cooldown    *float64 `yaml:"cooldown"`
	MaxSpeed    *float64 `yaml:"maxSpeed"`
}

type SpawnOnEventParams struct {
	Event           string       `yaml:"event"` // start, tap, timer, collision
	EntityTemplate  string       `yaml:"entityTemplate"`
	SpawnPosition   string       `yaml:"spawnPosition"` // at_self, at_touch, offset, random_in_bounds
	Offset          *geom.Vec2   `yaml:"offset"`
	Bounds          *geom.Bounds `yaml:"bounds"`
	Interval        *float64     `yaml:"interval"`
	MaxSpawns       *int         `yaml:"maxSpawns"`
	InitialVelocity *Vec2Value   `yaml:"initialVelocity"`
	WithTags        []string     `yaml:"withTags"`
}

type DestroyOnCollisionParams struct {
	WithTags          []string `yaml:"withTags"`
	Effect            string   `yaml:"effect"`
	DestroyOther      bool     `yaml:"destroyOther"`
	MinImpactVelocity *float64 `yaml:"minImpactVelocity"`
}

type ScoreOnCollisionParams struct {
	WithTags []string `yaml:"withTags"`
	Points   Number   `yaml:"points"`
	Once     bool     `yaml:"once"`
}

type TimerParams struct {
	Duration      Number `yaml:"duration"`
	Action        string `yaml:"action"` // destroy, spawn, trigger_event, enable_behavior, disable_behavior
	Repeat        bool   `yaml:"repeat"`
	SpawnTemplate string `yaml:"spawnTemplate"`
	BehaviorIndex *int   `yaml:"behaviorIndex"`
	EventName     string `yaml:"eventName"`
}

type AnimateParams struct {
	Frames []string `yaml:"frames"`
	FPS    float64  `yaml:"fps"`
	Loop   bool     `yaml:"loop"`
	PlayOn string   `yaml:"playOn"`
}

type OscillateParams struct {
	Axis      string  `yaml:"axis"` // x, y or both
	Amplitude Number  `yaml:"amplitude"`
	Frequency Number  `yaml:"frequency"`
	Phase     float64 `yaml:"phase"`
}

type GravityZoneParams struct {
	Gravity     geom.Vec2 `yaml:"gravity"`
	Radius      float64   `yaml:"radius"`
	AffectsTags []string  `yaml:"affectsTags"`
	Falloff     string    `yaml:"falloff"` // none, linear, quadratic
}

type MagneticParams struct {
	Strength     Number   `yaml:"strength"`
	Radius       float64  `yaml:"radius"`
	AttractsTags []string `yaml:"attractsTags"`
	Repels       bool     `yaml:"repels"`
}

// Predicate selects a conditional group from an entity's tags. All set clauses
// must hold; an empty predicate always matches.
type Predicate struct {
	HasTag     string   `yaml:"hasTag"`
	HasAnyTag  []string `yaml:"hasAnyTag"`
	HasAllTags []string `yaml:"hasAllTags"`
	LacksTag   string   `yaml:"lacksTag"`
}

// ConditionalGroup is a tag-predicated, priority-ranked behavior bundle.
type ConditionalGroup struct {
	When      Predicate  `yaml:"when"`
	Priority  int        `yaml:"priority"`
	Behaviors []Behavior `yaml:"behaviors"`
}
