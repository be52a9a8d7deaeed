package replay

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/hassoncs/clover-sub000/internal/rules"
	"github.com/hassoncs/clover-sub000/internal/runtime"
	"github.com/hassoncs/clover-sub000/internal/scene"
)

// Run feeds script to r one frame at a time and returns the state digest taken
// after each step. A ready runtime is started first. Collisions naming an
// unknown entity fail the run at that frame.
func Run(r *runtime.Runtime, s *Script) ([]uint64, error) {
	if r.State() == rules.Ready {
		r.Start()
	}
	out := make([]uint64, 0, s.Len())
	for _, f := range s.Frames {
		dt := s.step(f)
		for range max(f.Repeat, 1) {
			if err := apply(r, f); err != nil {
				return out, fmt.Errorf("frame %d: %w", len(out), err)
			}
			r.Step(dt)
			out = append(out, Digest(r))
		}
	}
	return out, nil
}

func apply(r *runtime.Runtime, f Frame) error {
	for _, a := range f.Actions {
		switch a {
		case Pause:
			r.Pause()
		case Resume:
			r.Resume()
		case Reset:
			r.Reset()
		case Start:
			r.Start()
		}
	}
	r.SetInput(f.input())
	for _, pair := range f.Collisions {
		if !r.CollideEntities(pair[0], pair[1]) {
			return fmt.Errorf("collision %s/%s: unknown entity", pair[0], pair[1])
		}
	}
	for _, name := range f.Events {
		r.TriggerEvent(name)
	}
	return nil
}

// Digest hashes the canonical state of r: game state, score, lives, clock,
// variables, lists, cooldowns and fired rules by name, then every live entity
// in creation order with its transform, flags and tags.
func Digest(r *runtime.Runtime) uint64 {
	d := xxhash.New()
	var buf []byte
	str := func(s string) {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}
	num := func(v float64) {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	flag := func(b bool) {
		if b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	game := r.Rules()
	str(string(game.State()))
	num(float64(game.Score()))
	num(float64(game.Lives()))
	num(game.Elapsed())

	vars := game.VariablesView()
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	slices.Sort(names)
	value := func(v scene.Value) {
		str(v.Kind.String())
		str(v.String())
	}
	for _, n := range names {
		str(n)
		value(vars[n])
	}
	buf = append(buf, 0xfe)

	for _, n := range game.ListNames() {
		list := game.List(n)
		str(n)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(list)))
		for _, v := range list {
			value(v)
		}
	}
	buf = append(buf, 0xfe)

	for _, id := range game.CooldownIDs() {
		end, _ := game.Cooldown(id)
		str(id)
		num(end)
	}
	buf = append(buf, 0xfe)

	for _, id := range game.FiredRules() {
		str(id)
	}
	buf = append(buf, 0xfe)

	for _, e := range r.Registry().All() {
		str(e.ID)
		num(e.World.X)
		num(e.World.Y)
		num(e.World.Angle)
		num(e.World.ScaleX)
		num(e.World.ScaleY)
		flag(e.Active)
		flag(e.Visible)
		tags := slices.Clone(e.Tags())
		slices.Sort(tags)
		for _, t := range tags {
			str(t)
		}
		buf = append(buf, 0xff)
	}
	_, _ = d.Write(buf)
	return d.Sum64()
}

// Diverges returns the index of the first frame at which a and b differ, or -1
// when they are identical.
func Diverges(a, b []uint64) int {
	for i := range min(len(a), len(b)) {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return min(len(a), len(b))
	}
	return -1
}
