package scene

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"gopkg.in/yaml.v3"
)

// DefaultLives applies when a scene does not set initialLives.
const DefaultLives = 3

// Scene is the immutable declarative document a simulation is built from.
type Scene struct {
	Metadata      Metadata             `yaml:"metadata"`
	World         World                `yaml:"world"`
	Templates     map[string]*Template `yaml:"templates"`
	Entities      []EntityDef          `yaml:"entities"`
	Rules         []Rule               `yaml:"rules"`
	WinCondition  *WinCondition        `yaml:"winCondition"`
	LoseCondition *LoseCondition       `yaml:"loseCondition"`
	InitialLives  *int                 `yaml:"initialLives"`
	Variables     map[string]Value     `yaml:"variables"`
}

type Metadata struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

type World struct {
	Gravity        *geom.Vec2   `yaml:"gravity"`
	PixelsPerMeter float64      `yaml:"pixelsPerMeter"`
	Bounds         *geom.Bounds `yaml:"bounds"`
}

// Physics describes the body and single fixture the physics host creates.
type Physics struct {
	BodyType               string      `yaml:"bodyType"` // static, dynamic, kinematic
	Shape                  string      `yaml:"shape"`    // circle, box, polygon
	Radius                 float64     `yaml:"radius"`
	Width                  float64     `yaml:"width"`
	Height                 float64     `yaml:"height"`
	Vertices               []geom.Vec2 `yaml:"vertices"`
	Density                float64     `yaml:"density"`
	Friction               float64     `yaml:"friction"`
	Restitution            float64     `yaml:"restitution"`
	IsSensor               bool        `yaml:"isSensor"`
	LinearDamping          float64     `yaml:"linearDamping"`
	AngularDamping         float64     `yaml:"angularDamping"`
	FixedRotation          bool        `yaml:"fixedRotation"`
	Bullet                 bool        `yaml:"bullet"`
	InitialVelocity        *geom.Vec2  `yaml:"initialVelocity"`
	InitialAngularVelocity *float64    `yaml:"initialAngularVelocity"`
}

// Slot is a named attachment point a template offers its children.
type Slot struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Layer *int    `yaml:"layer"`
}

type Template struct {
	ID                   string             `yaml:"id"`
	Physics              *Physics           `yaml:"physics"`
	Behaviors            []Behavior         `yaml:"behaviors"`
	ConditionalBehaviors []ConditionalGroup `yaml:"conditionalBehaviors"`
	Tags                 []string           `yaml:"tags"`
	Layer                *int               `yaml:"layer"`
	Children             []ChildDef         `yaml:"children"`
	Slots                map[string]Slot    `yaml:"slots"`
}

type EntityDef struct {
	ID                   string             `yaml:"id"`
	Name                 string             `yaml:"name"`
	Template             string             `yaml:"template"`
	Transform            *geom.Transform    `yaml:"transform"`
	Physics              *Physics           `yaml:"physics"`
	Behaviors            []Behavior         `yaml:"behaviors"`
	ConditionalBehaviors []ConditionalGroup `yaml:"conditionalBehaviors"`
	Tags                 []string           `yaml:"tags"`
	Layer                *int               `yaml:"layer"`
	Visible              *bool              `yaml:"visible"`
	Active               *bool              `yaml:"active"`
	Children             []ChildDef         `yaml:"children"`
}

// ChildDef declares a child instantiated together with its parent. Its transform
// is local to the parent. A named Slot supplies the position when LocalTransform is absent.
type ChildDef struct {
	ID                   string             `yaml:"id"`
	Name                 string             `yaml:"name"`
	Template             string             `yaml:"template"`
	LocalTransform       *geom.Transform    `yaml:"localTransform"`
	Slot                 string             `yaml:"slot"`
	Physics              *Physics           `yaml:"physics"`
	Behaviors            []Behavior         `yaml:"behaviors"`
	ConditionalBehaviors []ConditionalGroup `yaml:"conditionalBehaviors"`
	Tags                 []string           `yaml:"tags"`
	Layer                *int               `yaml:"layer"`
	Visible              *bool              `yaml:"visible"`
	Children             []ChildDef         `yaml:"children"`
}

// Lives returns the starting lives, falling back to def when unset.
func (s *Scene) Lives(def int) int {
	if s.InitialLives != nil {
		return *s.InitialLives
	}
	return def
}

// Parse decodes a scene document. It does not validate.
func Parse(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return &s, nil
}

// Load reads and decodes the scene at path.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return s, nil
}

// ValidationError names one structural problem in a scene document.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate rejects documents missing required metadata, world or entity shape.
// Every problem is reported; the result is an errors.Join of *ValidationError.
func (s *Scene) Validate() error {
	var errs []error
	add := func(field, msg string) {
		errs = append(errs, &ValidationError{Field: field, Message: msg})
	}

	if s.Metadata.ID == "" {
		add("metadata.id", "required")
	}
	if s.Metadata.Title == "" {
		add("metadata.title", "required")
	}
	if s.Metadata.Version == "" {
		add("metadata.version", "required")
	}
	if s.World.Gravity == nil {
		add("world.gravity", "required")
	}
	if s.World.Bounds != nil && (s.World.Bounds.MinX > s.World.Bounds.MaxX || s.World.Bounds.MinY > s.World.Bounds.MaxY) {
		add("world.bounds", "min exceeds max")
	}
	if s.InitialLives != nil && *s.InitialLives < 0 {
		add("initialLives", "must not be negative")
	}

	for _, id := range s.templateCycles() {
		add("templates."+id+".children", "template includes itself")
	}

	seen := make(map[string]int, len(s.Entities))
	for i, e := range s.Entities {
		field := fmt.Sprintf("entities[%d]", i)
		if e.ID == "" {
			add(field+".id", "required")
		} else if prev, dup := seen[e.ID]; dup {
			add(field+".id", fmt.Sprintf("duplicate of entities[%d]", prev))
		} else {
			seen[e.ID] = i
		}
		if e.Name == "" {
			add(field+".name", "required")
		}
		if e.Transform == nil {
			add(field+".transform", "required")
		}
	}

	rules := make(map[string]int, len(s.Rules))
	for i, r := range s.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if r.ID == "" {
			add(field+".id", "required")
		} else if prev, dup := rules[r.ID]; dup {
			add(field+".id", fmt.Sprintf("duplicate of rules[%d]", prev))
		} else {
			rules[r.ID] = i
		}
		if r.Trigger.Type == "" {
			add(field+".trigger.type", "required")
		}
		if r.Trigger.Type == TriggerTimer && r.Trigger.Repeat && r.Trigger.Time <= 0 {
			add(field+".trigger.time", "must be positive for a repeating timer")
		}
		if r.Cooldown < 0 {
			add(field+".cooldown", "must not be negative")
		}
	}

	return errors.Join(errs...)
}

// templateCycles returns, sorted, the templates that reach themselves through
// their declared children.
func (s *Scene) templateCycles() []string {
	refs := make(map[string][]string, len(s.Templates))
	for id, t := range s.Templates {
		if t != nil {
			refs[id] = childTemplates(t.Children, nil)
		}
	}
	var out []string
	for id := range refs {
		visited := map[string]bool{}
		queue := slices.Clone(refs[id])
		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if next == id {
				out = append(out, id)
				break
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, refs[next]...)
		}
	}
	slices.Sort(out)
	return out
}

func childTemplates(children []ChildDef, out []string) []string {
	for _, c := range children {
		if c.Template != "" {
			out = append(out, c.Template)
		}
		out = childTemplates(c.Children, out)
	}
	return out
}
