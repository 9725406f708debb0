package models

import "time"

// ControllerState is the latest snapshot of the collector controller.
type ControllerState struct {
	ID             int       `json:"id"`
	CollectorTempC float64   `json:"collector_temp_c"` // °C
	StorageTempC   float64   `json:"storage_temp_c"`   // °C
	CollectorRaw   float64   `json:"collector_raw"`    // oversampled ADC mean [0..1023]
	StorageRaw     float64   `json:"storage_raw"`      // oversampled ADC mean [0..1023]
	RelayActive    bool      `json:"relay_active"`     // pump/valve energized
	Reason         string    `json:"reason,omitempty"` // SAFETY_FLOOR | ENGAGE | DISENGAGE | HOLD | SENSOR_FAULT
	Faults         []string  `json:"faults,omitempty"` // e.g. ["COLLECTOR_SENSOR_RAIL"]
	Cycle          int64     `json:"cycle"`            // polling cycles since boot
	UpdatedAt      time.Time `json:"updated_at"`
}
