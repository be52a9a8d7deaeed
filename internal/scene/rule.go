package scene

import "github.com/hassoncs/clover-sub000/internal/core/geom"

// Rule is a trigger, AND-combined conditions and ordered actions.
type Rule struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Enabled    *bool       `yaml:"enabled"`
	Trigger    Trigger     `yaml:"trigger"`
	Conditions []Condition `yaml:"conditions"`
	Actions    []Action    `yaml:"actions"`
	FireOnce   bool        `yaml:"fireOnce"`
	Cooldown   float64     `yaml:"cooldown"` // seconds
}

// IsEnabled defaults to true when the document omits the flag.
func (r Rule) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

type TriggerType string

const (
	TriggerCollision   TriggerType = "collision"
	TriggerTimer       TriggerType = "timer"
	TriggerScore       TriggerType = "score"
	TriggerEntityCount TriggerType = "entity_count"
	TriggerEvent       TriggerType = "event"
	TriggerFrame       TriggerType = "frame"
	TriggerGameStart   TriggerType = "gameStart"
	TriggerTap         TriggerType = "tap"
	TriggerButton      TriggerType = "button"
)

// Trigger carries the fields of every trigger type; Type selects which apply.
type Trigger struct {
	Type       TriggerType `yaml:"type"`
	EntityATag string      `yaml:"entityATag"` // collision
	EntityBTag string      `yaml:"entityBTag"`
	Time       float64     `yaml:"time"` // timer: threshold or interval (repeat)
	Repeat     bool        `yaml:"repeat"`
	Threshold  float64     `yaml:"threshold"`  // score
	Comparison string      `yaml:"comparison"` // gte, lte, eq, zero
	Tag        string      `yaml:"tag"`        // entity_count; tap target tag
	Count      int         `yaml:"count"`
	EventName  string      `yaml:"eventName"`
	Button     string      `yaml:"button"`
	State      string      `yaml:"state"` // button: pressed (default) or held
}

type ConditionType string

const (
	CondScore         ConditionType = "score"
	CondTime          ConditionType = "time"
	CondEntityExists  ConditionType = "entity_exists"
	CondEntityCount   ConditionType = "entity_count"
	CondRandom        ConditionType = "random"
	CondVariable      ConditionType = "variable"
	CondCooldownReady ConditionType = "cooldown_ready"
	CondListContains  ConditionType = "list_contains"
	CondExpression    ConditionType = "expression"
)

type Condition struct {
	Type        ConditionType `yaml:"type"`
	Min         *float64      `yaml:"min"`
	Max         *float64      `yaml:"max"`
	EntityID    string        `yaml:"entityId"`
	EntityTag   string        `yaml:"entityTag"`
	Tag         string        `yaml:"tag"`
	Probability float64       `yaml:"probability"`
	Name        string        `yaml:"name"`       // variable
	Comparison  string        `yaml:"comparison"` // eq, neq, gt, gte, lt, lte
	Value       Value         `yaml:"value"`
	CooldownID  string        `yaml:"cooldownId"`
	ListName    string        `yaml:"listName"`
	Expr        string        `yaml:"expr"`
}

type ActionType string

const (
	ActionScore         ActionType = "score"
	ActionLives         ActionType = "lives"
	ActionSetVariable   ActionType = "set_variable"
	ActionList          ActionType = "list"
	ActionGameState     ActionType = "game_state"
	ActionSpawn         ActionType = "spawn"
	ActionDestroy       ActionType = "destroy"
	ActionEvent         ActionType = "event"
	ActionStartCooldown ActionType = "start_cooldown"
	ActionApplyImpulse  ActionType = "apply_impulse"
	ActionApplyForce    ActionType = "apply_force"
	ActionSetVelocity   ActionType = "set_velocity"
	ActionModify        ActionType = "modify"
	ActionCameraShake   ActionType = "camera_shake"
	ActionCameraZoom    ActionType = "camera_zoom"
	ActionSound         ActionType = "sound"
	ActionParticles     ActionType = "particles"
)

// Action carries the fields of every action type; Type selects which apply.
type Action struct {
	Type      ActionType `yaml:"type"`
	Operation string     `yaml:"operation"`
	Value     Value      `yaml:"value"`

	Name     string `yaml:"name"`     // set_variable
	ListName string `yaml:"listName"` // list
	StoreIn  string `yaml:"storeIn"`  // list pop target variable

	State string  `yaml:"state"` // game_state: win, lose, pause, restart
	Delay float64 `yaml:"delay"`

	Template string         `yaml:"template"` // spawn
	Position *SpawnPosition `yaml:"position"`
	Count    int            `yaml:"count"`
	Spread   float64        `yaml:"spread"`

	Target *Target `yaml:"target"` // destroy, physics, modify

	EventName string           `yaml:"eventName"`
	Data      map[string]Value `yaml:"data"`

	CooldownID string `yaml:"cooldownId"`
	Duration   Number `yaml:"duration"`

	X         *Number `yaml:"x"`
	Y         *Number `yaml:"y"`
	Direction string  `yaml:"direction"` // up, down, left, right
	Force     *Number `yaml:"force"`

	Property string `yaml:"property"` // modify: x, y, angle, scaleX, scaleY

	Intensity float64 `yaml:"intensity"` // camera_shake
	Scale     float64 `yaml:"scale"`     // camera_zoom
	SoundID   string  `yaml:"soundId"`
	Volume    float64 `yaml:"volume"`
	Effect    string  `yaml:"effect"` // particles
}

type SpawnPosition struct {
	Type     string       `yaml:"type"` // fixed, random, at_entity, at_collision
	X        float64      `yaml:"x"`
	Y        float64      `yaml:"y"`
	Bounds   *geom.Bounds `yaml:"bounds"`
	EntityID string       `yaml:"entityId"`
}

type Target struct {
	Type     string `yaml:"type"` // by_id, by_tag, collision_entities, all
	EntityID string `yaml:"entityId"`
	Tag      string `yaml:"tag"`
	Count    int    `yaml:"count"`
}

type WinCondition struct {
	Type     string  `yaml:"type"` // score, destroy_all, collect_all, survive_time, reach_entity
	Score    float64 `yaml:"score"`
	Tag      string  `yaml:"tag"`
	Time     float64 `yaml:"time"`
	EntityID string  `yaml:"entityId"`
}

type LoseCondition struct {
	Type     string  `yaml:"type"` // entity_destroyed, entity_exits_screen, time_up, score_below, lives_zero
	Tag      string  `yaml:"tag"`
	Time     float64 `yaml:"time"`
	EntityID string  `yaml:"entityId"`
	Score    float64 `yaml:"score"`
}
