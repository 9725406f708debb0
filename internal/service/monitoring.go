package service

import (
	"context"
	"time"

	"solar_collector/internal/models"
	"solar_collector/internal/repository"
)

type MonitoringService struct {
	stateRepo repository.StateRepo
}

func NewMonitoringService(stateRepo repository.StateRepo) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo}
}

// GetState returns the latest persisted controller state.
// If no cycle has completed yet, returns a disengaged baseline snapshot.
func (s *MonitoringService) GetState(ctx context.Context) (models.ControllerState, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.ControllerState{}, err
	}
	if state.ID == 0 {
		return s.baselineState(), nil
	}
	state.UpdatedAt = toUTC(state.UpdatedAt)
	return state, nil
}

// baselineState returns the snapshot reported before the first cycle.
func (s *MonitoringService) baselineState() models.ControllerState {
	return models.ControllerState{
		ID:          1, // DB schema enforces single-row state with id=1
		RelayActive: false,
		UpdatedAt:   time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
