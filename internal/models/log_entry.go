package models

import (
	"time"

	"solar_collector/internal/thermistor"
)

// LogEntry is one polling cycle as stored in the wrapping telemetry log.
type LogEntry struct {
	Slot           int       `json:"slot"`
	Time           time.Time `json:"time"`
	StorageRaw     float64   `json:"storage_raw"`
	CollectorRaw   float64   `json:"collector_raw"`
	StorageTempC   float64   `json:"storage_temp_c"`
	CollectorTempC float64   `json:"collector_temp_c"`
	Active         bool      `json:"active"`
	Fault          bool      `json:"fault"`
}

// Temperatures returns the converted readings, nil for a channel whose raw
// value has no temperature. Both are nil on a fault cycle.
func (e LogEntry) Temperatures() (storage, collector *float64) {
	if e.Fault {
		return nil, nil
	}
	return temp(e.StorageRaw, e.StorageTempC), temp(e.CollectorRaw, e.CollectorTempC)
}

func temp(raw, c float64) *float64 {
	if !thermistor.InRange(raw) {
		return nil
	}
	return &c
}
