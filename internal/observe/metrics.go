// Package observe holds the OpenTelemetry instruments the simulation records.
//
// Tests should build [Metrics] with [New] over an sdk MeterProvider backed by a
// ManualReader. A nil *Metrics is valid and records nothing.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for every simulation metric.
const meterName = "github.com/hassoncs/clover-sub000"

// Metrics holds the instruments. All fields are safe for concurrent use.
type Metrics struct {
	// FrameDuration tracks wall time spent in one Step.
	FrameDuration metric.Float64Histogram

	// PhaseDuration tracks wall time per frame phase. Use with attribute:
	//   attribute.String("phase", ...)
	PhaseDuration metric.Float64Histogram

	// Frames counts completed steps.
	Frames metric.Int64Counter

	// RulesFired counts rules whose actions ran. Use with attribute:
	//   attribute.String("rule", ...)
	RulesFired metric.Int64Counter

	// Panics counts recovered handler or rule panics. Use with attribute:
	//   attribute.String("component", "behaviors"|"rules")
	Panics metric.Int64Counter

	// Notifications counts events delivered by the notification bus.
	Notifications metric.Int64Counter

	// Entities tracks the number of live entities.
	Entities metric.Int64UpDownCounter
}

var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1,
}

// New creates the instruments on mp.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FrameDuration, err = m.Float64Histogram("sim.frame.duration",
		metric.WithDescription("Wall time of one simulation step."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PhaseDuration, err = m.Float64Histogram("sim.phase.duration",
		metric.WithDescription("Wall time of one frame phase, by phase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("sim.frames",
		metric.WithDescription("Completed simulation steps."),
	); err != nil {
		return nil, err
	}
	if met.RulesFired, err = m.Int64Counter("sim.rules.fired",
		metric.WithDescription("Rules whose actions ran, by rule id."),
	); err != nil {
		return nil, err
	}
	if met.Panics, err = m.Int64Counter("sim.panics",
		metric.WithDescription("Recovered handler and rule panics by component."),
	); err != nil {
		return nil, err
	}
	if met.Notifications, err = m.Int64Counter("sim.notifications",
		metric.WithDescription("Notifications delivered to collaborators."),
	); err != nil {
		return nil, err
	}
	if met.Entities, err = m.Int64UpDownCounter("sim.entities",
		metric.WithDescription("Live entities."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Nop returns instruments that discard everything.
func Nop() *Metrics {
	m, _ := New(noop.NewMeterProvider())
	return m
}

// RecordFrame records one completed step.
func (m *Metrics) RecordFrame(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.Frames.Add(ctx, 1)
	m.FrameDuration.Record(ctx, seconds)
}

func (m *Metrics) RecordPhase(ctx context.Context, phase string, seconds float64) {
	if m == nil {
		return
	}
	m.PhaseDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("phase", phase)))
}

func (m *Metrics) RecordRuleFired(ctx context.Context, ruleID string) {
	if m == nil {
		return
	}
	m.RulesFired.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", ruleID)))
}

func (m *Metrics) RecordPanics(ctx context.Context, component string, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.Panics.Add(ctx, n, metric.WithAttributes(attribute.String("component", component)))
}

func (m *Metrics) RecordNotifications(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Notifications.Add(ctx, int64(n))
}

// AddEntities moves the live-entity gauge by delta.
func (m *Metrics) AddEntities(ctx context.Context, delta int) {
	if m == nil || delta == 0 {
		return
	}
	m.Entities.Add(ctx, int64(delta))
}
