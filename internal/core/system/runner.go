package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each frame. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	observe func(Phase, time.Duration)
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Observe installs fn to receive the wall time each phase took. Phases with no
// systems are not reported.
func (r *Runner) Observe(fn func(Phase, time.Duration)) {
	r.observe = fn
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for i := 0; i < len(r.systems); {
		j := i + 1
		for j < len(r.systems) && r.systems[j].Phase() == r.systems[i].Phase() {
			j++
		}
		r.run(r.systems[i:j], dt)
		i = j
	}
}

// TickPhase runs only the systems of one phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	lo := sort.Search(len(r.systems), func(i int) bool { return r.systems[i].Phase() >= phase })
	hi := lo
	for hi < len(r.systems) && r.systems[hi].Phase() == phase {
		hi++
	}
	r.run(r.systems[lo:hi], dt)
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

// run updates one phase's systems.
func (r *Runner) run(group []System, dt time.Duration) {
	if len(group) == 0 {
		return
	}
	var start time.Time
	if r.observe != nil {
		start = time.Now()
	}
	for _, s := range group {
		s.Update(dt)
	}
	if r.observe != nil {
		r.observe(group[0].Phase(), time.Since(start))
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
