package service

import (
	"time"

	"solar_collector/internal/config"
)

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "STOP", "ENGAGE", "DISENGAGE", "CONFIG_LOAD", "SENSOR_FAULT", "ERROR"
}

// SettingsView is the effective configuration and the outcome of its load.
type SettingsView struct {
	Namespace string             `json:"namespace"`
	Params    []config.ParamView `json:"params"`
	LastLoad  config.LoadResult  `json:"last_load"`
}

// TelemetryPoint is one ring entry with temperatures recomputed from the raw
// values. Temperatures are nil when the raw value sits on an ADC rail.
type TelemetryPoint struct {
	Slot         int       `json:"slot"`
	Time         time.Time `json:"time"`
	StorageRaw   float64   `json:"storage_raw"`
	CollectorRaw float64   `json:"collector_raw"`
	StorageC     *float64  `json:"storage_c"`
	StorageF     *float64  `json:"storage_f"`
	CollectorC   *float64  `json:"collector_c"`
	CollectorF   *float64  `json:"collector_f"`
	Active       bool      `json:"active"`
}
