package service

import (
	"context"
	"errors"

	"solar_collector/internal/config"
	"solar_collector/internal/repository"
	"solar_collector/internal/thermistor"
)

var errTelemetryUnavailable = errors.New("telemetry log is not stored in a queryable backend")

type TelemetryService struct {
	repo  repository.TelemetryRepo
	store *config.Store
}

func NewTelemetryService(repo repository.TelemetryRepo, store *config.Store) *TelemetryService {
	return &TelemetryService{repo: repo, store: store}
}

// Entries returns the ring ordered by time, converting raw readings with the
// calibration currently in effect.
func (s *TelemetryService) Entries(ctx context.Context) ([]TelemetryPoint, error) {
	if s.repo == nil || s.store == nil {
		return nil, errTelemetryUnavailable
	}
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	model := thermistor.NewModel(s.store.Calibration())
	out := make([]TelemetryPoint, 0, len(entries))
	for _, e := range entries {
		p := TelemetryPoint{
			Slot:         e.Slot,
			Time:         toUTC(e.Time),
			StorageRaw:   e.StorageRaw,
			CollectorRaw: e.CollectorRaw,
			Active:       e.Active,
		}
		p.StorageC, p.StorageF = convert(model, e.StorageRaw)
		p.CollectorC, p.CollectorF = convert(model, e.CollectorRaw)
		out = append(out, p)
	}
	return out, nil
}

func convert(m thermistor.Model, raw float64) (c, f *float64) {
	if !thermistor.InRange(raw) {
		return nil, nil
	}
	r := m.ToReading(raw)
	tc, tf := r.TemperatureC, r.TemperatureF()
	return &tc, &tf
}
