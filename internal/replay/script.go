// Package replay drives a runtime from a recorded input script and fingerprints
// the simulation state after every frame.
package replay

import (
	"fmt"
	"os"
	"time"

	"github.com/hassoncs/clover-sub000/internal/core/geom"
	"github.com/hassoncs/clover-sub000/internal/frame"
	"gopkg.in/yaml.v3"
)

// DefaultDT is the step used when neither the frame nor the script sets one.
const DefaultDT = time.Second / 60

// Script is a recorded input sequence.
type Script struct {
	Name   string  `yaml:"name"`
	DT     float64 `yaml:"dt"` // seconds, default for frames that omit it
	Frames []Frame `yaml:"frames"`
}

// Frame is the input fed to one Step. Repeat > 1 feeds the same input to that
// many consecutive steps.
type Frame struct {
	DT         float64       `yaml:"dt"`
	Repeat     int           `yaml:"repeat"`
	Tap        *Tap          `yaml:"tap"`
	Drag       *geom.Vec2    `yaml:"drag"` // release velocity
	Tilt       *geom.Vec2    `yaml:"tilt"`
	Buttons    []string      `yaml:"buttons"` // held
	Pressed    []string      `yaml:"pressed"`
	Collisions [][2]string   `yaml:"collisions"` // entity id pairs
	Events     []string      `yaml:"events"`
	Actions    []ControlStep `yaml:"actions"`
}

type Tap struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Target string  `yaml:"target"`
}

// ControlStep changes the game state before the frame runs.
type ControlStep string

const (
	Pause  ControlStep = "pause"
	Resume ControlStep = "resume"
	Reset  ControlStep = "reset"
	Start  ControlStep = "start"
)

// Parse decodes a script and checks it.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode replay script: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay script %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("replay script %s: %w", path, err)
	}
	return s, nil
}

func (s *Script) validate() error {
	if s.DT < 0 {
		return fmt.Errorf("dt must not be negative, got %g", s.DT)
	}
	for i, f := range s.Frames {
		if f.DT < 0 {
			return fmt.Errorf("frames[%d]: dt must not be negative, got %g", i, f.DT)
		}
		if f.Repeat < 0 {
			return fmt.Errorf("frames[%d]: repeat must not be negative, got %d", i, f.Repeat)
		}
		for _, a := range f.Actions {
			switch a {
			case Pause, Resume, Reset, Start:
			default:
				return fmt.Errorf("frames[%d]: unknown action %q", i, a)
			}
		}
	}
	return nil
}

// Len returns the number of steps the script produces.
func (s *Script) Len() int {
	n := 0
	for _, f := range s.Frames {
		n += max(f.Repeat, 1)
	}
	return n
}

func (s *Script) step(f Frame) time.Duration {
	dt := f.DT
	if dt == 0 {
		dt = s.DT
	}
	if dt == 0 {
		return DefaultDT
	}
	return time.Duration(dt * float64(time.Second))
}

func (f Frame) input() frame.Input {
	var in frame.Input
	if f.Tap != nil {
		in.Tap = &frame.Tap{World: geom.Vec2{X: f.Tap.X, Y: f.Tap.Y}, Target: f.Tap.Target}
	}
	if f.Drag != nil {
		in.DragEnd = &frame.DragEnd{Velocity: *f.Drag}
	}
	in.Tilt = f.Tilt
	in.Buttons = set(f.Buttons)
	in.Pressed = set(f.Pressed)
	return in
}

func set(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
