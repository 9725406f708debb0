// Package control decides whether the collector pump relay should be energized.
//
// The decision is a two-threshold hysteresis on the collector/storage
// temperature differential with an absolute floor on the collector temperature
// that overrides everything else.
package control

import "fmt"

// State of the relay as seen by the controller.
type State int

const (
	// Disengaged is the initial and fail-safe state: relay open, pump off.
	Disengaged State = iota
	// Engaged means the relay is closed and the pump circulates.
	Engaged
)

func (s State) String() string {
	switch s {
	case Disengaged:
		return "DISENGAGED"
	case Engaged:
		return "ENGAGED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Active reports whether the relay should be closed.
func (s State) Active() bool { return s == Engaged }

// FromRelay maps a relay level to a State.
func FromRelay(closed bool) State {
	if closed {
		return Engaged
	}
	return Disengaged
}

// Thresholds are the tunable limits of the state machine, all in °C.
// DisengageDeltaC is expected to be <= EngageDeltaC; the configuration store
// clamps it at load time.
type Thresholds struct {
	MinimumEngageC  float64 `json:"minimum_engage_c"`
	EngageDeltaC    float64 `json:"engage_delta_c"`
	DisengageDeltaC float64 `json:"disengage_delta_c"`
}

// Reason explains a Decision.
type Reason string

const (
	ReasonSafetyFloor Reason = "SAFETY_FLOOR"
	ReasonEngage      Reason = "ENGAGE"
	ReasonDisengage   Reason = "DISENGAGE"
	ReasonHold        Reason = "HOLD"
	ReasonSensorFault Reason = "SENSOR_FAULT"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Prior  State   `json:"prior"`
	Next   State   `json:"next"`
	Reason Reason  `json:"reason"`
	DeltaC float64 `json:"delta_c"` // collector - storage
}

// Changed reports whether the relay has to move.
func (d Decision) Changed() bool { return d.Prior != d.Next }

// Decide is the pure transition function. Rules in priority order:
//  1. collector below the minimum engage temperature forces Disengaged;
//  2. Disengaged and delta >= engage delta moves to Engaged;
//  3. Engaged and delta <= disengage delta moves to Disengaged;
//  4. otherwise the state is unchanged.
func Decide(collectorC, storageC float64, prior State, th Thresholds) Decision {
	d := Decision{Prior: prior, Next: prior, Reason: ReasonHold, DeltaC: collectorC - storageC}

	switch {
	case collectorC < th.MinimumEngageC:
		d.Next = Disengaged
		d.Reason = ReasonSafetyFloor
	case prior == Disengaged && d.DeltaC >= th.EngageDeltaC:
		d.Next = Engaged
		d.Reason = ReasonEngage
	case prior == Engaged && d.DeltaC <= th.DisengageDeltaC:
		d.Next = Disengaged
		d.Reason = ReasonDisengage
	}
	return d
}

// Engine owns the relay state across cycles. It only changes through Commit,
// which the caller invokes after the relay was actually switched.
type Engine struct {
	state      State
	thresholds Thresholds
}

// NewEngine starts Disengaged.
func NewEngine(th Thresholds) *Engine {
	return &Engine{state: Disengaged, thresholds: th}
}

// State is the committed relay state.
func (e *Engine) State() State { return e.state }

// Thresholds returns the limits in use.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// Evaluate computes the next state without committing it.
func (e *Engine) Evaluate(collectorC, storageC float64) Decision {
	return Decide(collectorC, storageC, e.state, e.thresholds)
}

// FailSafe returns a decision that opens the relay regardless of readings.
func (e *Engine) FailSafe() Decision {
	return Decision{Prior: e.state, Next: Disengaged, Reason: ReasonSensorFault}
}

// Commit records a decision once its relay command has been applied.
func (e *Engine) Commit(d Decision) {
	e.state = d.Next
}
