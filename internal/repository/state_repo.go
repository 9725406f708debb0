package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"solar_collector/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	controllerStateRowID = 1

	insertOrUpdateStateSQL = `
		INSERT INTO controller_state (id, collector_c, storage_c, collector_raw, storage_raw, relay_active, reason, faults, cycle, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			collector_c=excluded.collector_c,
			storage_c=excluded.storage_c,
			collector_raw=excluded.collector_raw,
			storage_raw=excluded.storage_raw,
			relay_active=excluded.relay_active,
			reason=excluded.reason,
			faults=excluded.faults,
			cycle=excluded.cycle,
			updated_at=excluded.updated_at
	`

	selectStateSQL = `
		SELECT id, collector_c, storage_c, collector_raw, storage_raw, relay_active, reason, faults, cycle, updated_at
		FROM controller_state WHERE id=?
	`
)

// marshalFaults converts the slice to a JSON string.
func marshalFaults(codes []string) (string, error) {
	b, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalFaults parses a JSON string into a slice.
func unmarshalFaults(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(s), &codes); err != nil {
		return nil, err
	}
	return codes, nil
}

// Save updates or inserts the controller_state row (id always 1).
func (r *StateSQLite) Save(ctx context.Context, state models.ControllerState) error {
	faultsJSON, err := marshalFaults(state.Faults)
	if err != nil {
		return err
	}

	tsUTC := state.UpdatedAt
	if tsUTC.IsZero() {
		tsUTC = time.Now().UTC()
	} else {
		tsUTC = tsUTC.UTC()
	}

	_, err = r.db.ExecContext(ctx, insertOrUpdateStateSQL,
		controllerStateRowID,
		state.CollectorTempC,
		state.StorageTempC,
		state.CollectorRaw,
		state.StorageRaw,
		state.RelayActive,
		state.Reason,
		faultsJSON,
		state.Cycle,
		tsUTC,
	)
	return err
}

// Load fetches the single controller_state row (id=1). A zero state means the
// controller has not completed a cycle yet.
func (r *StateSQLite) Load(ctx context.Context) (models.ControllerState, error) {
	row := r.db.QueryRowContext(ctx, selectStateSQL, controllerStateRowID)

	var s models.ControllerState
	var reason sql.NullString
	var faultsJSON sql.NullString
	if err := row.Scan(
		&s.ID,
		&s.CollectorTempC,
		&s.StorageTempC,
		&s.CollectorRaw,
		&s.StorageRaw,
		&s.RelayActive,
		&reason,
		&faultsJSON,
		&s.Cycle,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ControllerState{}, nil
		}
		return models.ControllerState{}, err
	}

	faults, err := unmarshalFaults(faultsJSON.String)
	if err != nil {
		return models.ControllerState{}, err
	}
	s.Reason = reason.String
	s.Faults = faults
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}
