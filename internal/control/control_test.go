package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultThresholds = Thresholds{MinimumEngageC: 10, EngageDeltaC: 10, DisengageDeltaC: 0}

func TestEngine_SequenceFromDefaults(t *testing.T) {
	e := NewEngine(defaultThresholds)
	assert.Equal(t, Disengaged, e.State())

	steps := []struct {
		collector, storage float64
		want               State
		reason             Reason
	}{
		{5, 0, Disengaged, ReasonSafetyFloor},
		{20, 5, Engaged, ReasonEngage},
		{22, 15, Engaged, ReasonHold},
		{22, 23, Disengaged, ReasonDisengage},
	}
	for i, s := range steps {
		d := e.Evaluate(s.collector, s.storage)
		e.Commit(d)
		assert.Equal(t, s.want, e.State(), "step %d", i)
		assert.Equal(t, s.reason, d.Reason, "step %d", i)
	}
}

func TestDecide_SafetyFloorTakesPrecedence(t *testing.T) {
	configs := []Thresholds{
		defaultThresholds,
		{MinimumEngageC: 40, EngageDeltaC: 2, DisengageDeltaC: 1},
		{MinimumEngageC: 0, EngageDeltaC: 0, DisengageDeltaC: 0},
		{MinimumEngageC: -5, EngageDeltaC: 30, DisengageDeltaC: -10},
	}
	for _, th := range configs {
		for _, prior := range []State{Disengaged, Engaged} {
			for _, below := range []float64{0.001, 1, 15} {
				collector := th.MinimumEngageC - below
				for _, extra := range []float64{0, 5, 100} {
					storage := collector - th.EngageDeltaC - extra
					d := Decide(collector, storage, prior, th)
					assert.Equal(t, Disengaged, d.Next, "th=%+v prior=%v collector=%v", th, prior, collector)
					assert.Equal(t, ReasonSafetyFloor, d.Reason)
				}
			}
		}
	}
}

func TestDecide_HysteresisHoldsBetweenThresholds(t *testing.T) {
	th := Thresholds{MinimumEngageC: 10, EngageDeltaC: 8, DisengageDeltaC: 3}
	collector := 50.0

	// Disengaged: any delta below the engage delta never engages, repeated.
	for _, delta := range []float64{-5, 0, 3, 5, 7.999} {
		s := Disengaged
		for i := 0; i < 5; i++ {
			s = Decide(collector, collector-delta, s, th).Next
		}
		assert.Equal(t, Disengaged, s, "delta=%v", delta)
	}

	// Engaged: any delta above the disengage delta never disengages, repeated.
	for _, delta := range []float64{3.001, 5, 8, 20} {
		s := Engaged
		for i := 0; i < 5; i++ {
			s = Decide(collector, collector-delta, s, th).Next
		}
		assert.Equal(t, Engaged, s, "delta=%v", delta)
	}
}

func TestDecide_BoundariesAreInclusive(t *testing.T) {
	th := Thresholds{MinimumEngageC: 10, EngageDeltaC: 8, DisengageDeltaC: 3}

	assert.Equal(t, Engaged, Decide(30, 22, Disengaged, th).Next)
	assert.Equal(t, Disengaged, Decide(30, 27, Engaged, th).Next)
	// exactly at the floor is allowed
	assert.Equal(t, Engaged, Decide(10, 2, Disengaged, th).Next)
}

func TestDecide_DeltaIsCollectorMinusStorage(t *testing.T) {
	d := Decide(42, 30, Disengaged, defaultThresholds)
	assert.Equal(t, 12.0, d.DeltaC)
	assert.True(t, d.Changed())
}

func TestEngine_EvaluateDoesNotCommit(t *testing.T) {
	e := NewEngine(defaultThresholds)

	d := e.Evaluate(40, 10)

	assert.Equal(t, Engaged, d.Next)
	assert.Equal(t, Disengaged, e.State())
}

func TestEngine_FailSafe(t *testing.T) {
	e := NewEngine(defaultThresholds)
	e.Commit(e.Evaluate(40, 10))
	assert.Equal(t, Engaged, e.State())

	d := e.FailSafe()

	assert.Equal(t, Engaged, d.Prior)
	assert.Equal(t, Disengaged, d.Next)
	assert.Equal(t, ReasonSensorFault, d.Reason)
}

func TestState_Helpers(t *testing.T) {
	assert.Equal(t, "ENGAGED", Engaged.String())
	assert.Equal(t, "DISENGAGED", Disengaged.String())
	assert.Equal(t, "State(7)", State(7).String())
	assert.True(t, Engaged.Active())
	assert.False(t, Disengaged.Active())
	assert.Equal(t, Engaged, FromRelay(true))
	assert.Equal(t, Disengaged, FromRelay(false))
}
