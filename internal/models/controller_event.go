package models

import "time"

// Event types written to the controller event log.
const (
	EventStart       = "START"
	EventStop        = "STOP"
	EventEngage      = "ENGAGE"
	EventDisengage   = "DISENGAGE"
	EventConfigLoad  = "CONFIG_LOAD"
	EventSensorFault = "SENSOR_FAULT"
	EventError       = "ERROR"
)

// ControllerEvent is a single log entry.
type ControllerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | ENGAGE | DISENGAGE | CONFIG_LOAD | SENSOR_FAULT | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
