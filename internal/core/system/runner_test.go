package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	phase Phase
	name  string
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }

func (r recorder) Update(time.Duration) { *r.log = append(*r.log, r.name) }

func TestRunner(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(recorder{PhaseCleanup, "cleanup", &log})
	r.Register(recorder{PhaseRules, "rules", &log})
	r.Register(recorder{PhasePhysics, "physics", &log})
	r.Register(recorder{PhaseRules, "rules-2", &log})
	r.Register(recorder{PhaseSync, "sync", &log})

	t.Run("tick orders by phase then registration", func(t *testing.T) {
		r.Tick(time.Second / 60)
		require.Equal(t, []string{"physics", "sync", "rules", "rules-2", "cleanup"}, log)
	})

	t.Run("tick phase", func(t *testing.T) {
		log = log[:0]
		r.TickPhase(PhaseRules, 0)
		require.Equal(t, []string{"rules", "rules-2"}, log)
	})

	t.Run("tick phase with no systems", func(t *testing.T) {
		log = log[:0]
		r.TickPhase(PhaseOutput, 0)
		require.Empty(t, log)
	})

	t.Run("observe reports each populated phase once", func(t *testing.T) {
		var seen []Phase
		r.Observe(func(p Phase, d time.Duration) {
			require.GreaterOrEqual(t, d, time.Duration(0))
			seen = append(seen, p)
		})
		r.Tick(0)
		require.Equal(t, []Phase{PhasePhysics, PhaseSync, PhaseRules, PhaseCleanup}, seen)
		r.Observe(nil)
	})

	require.Equal(t, 5, r.Len())
	require.Equal(t, "behaviors", PhaseBehaviors.String())
}
