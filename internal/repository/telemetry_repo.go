package repository

import (
	"context"
	"database/sql"
	"fmt"

	"solar_collector/internal/models"
	"solar_collector/internal/telemetry"
)

// TelemetrySQL stores the telemetry ring, one row per slot.
type TelemetrySQL struct {
	db *sql.DB
}

func NewTelemetrySQL(db *sql.DB) *TelemetrySQL {
	return &TelemetrySQL{db: db}
}

var (
	_ TelemetryRepo     = (*TelemetrySQL)(nil)
	_ telemetry.Backend = (*TelemetrySQL)(nil)
)

const (
	replaceLogEntrySQL = `
		REPLACE INTO telemetry_log (slot, recorded_at, storage_raw, collector_raw, storage_c, collector_c, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	replaceScalarSQL = `REPLACE INTO telemetry_scalars (name, slot, value) VALUES (?, ?, ?)`
	listLogSQL       = `SELECT slot, recorded_at, storage_raw, collector_raw, storage_c, collector_c, active FROM telemetry_log ORDER BY recorded_at ASC`
)

// WriteEntry replaces the row at slot. Temperatures are NULL on fault cycles.
func (r *TelemetrySQL) WriteEntry(ctx context.Context, slot int, e models.LogEntry) error {
	storageC, collectorC := e.Temperatures()
	_, err := r.db.ExecContext(ctx, replaceLogEntrySQL,
		slot,
		e.Time.UTC(),
		e.StorageRaw,
		e.CollectorRaw,
		nullFloat(storageC),
		nullFloat(collectorC),
		e.Active,
	)
	if err != nil {
		return fmt.Errorf("write log slot %d: %w", slot, err)
	}
	return nil
}

// WriteScalar replaces name at slot.
func (r *TelemetrySQL) WriteScalar(ctx context.Context, name string, slot int, value float64) error {
	if _, err := r.db.ExecContext(ctx, replaceScalarSQL, name, slot, value); err != nil {
		return fmt.Errorf("write %s slot %d: %w", name, slot, err)
	}
	return nil
}

// List returns the ring ordered by time. A row with a NULL temperature comes
// back with Fault set.
func (r *TelemetrySQL) List(ctx context.Context) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, listLogSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.LogEntry, 0, 64)
	for rows.Next() {
		var (
			e                    models.LogEntry
			storageC, collectorC sql.NullFloat64
		)
		if err := rows.Scan(&e.Slot, &e.Time, &e.StorageRaw, &e.CollectorRaw, &storageC, &collectorC, &e.Active); err != nil {
			return nil, err
		}
		e.Time = e.Time.UTC()
		e.StorageTempC, e.CollectorTempC = storageC.Float64, collectorC.Float64
		e.Fault = !storageC.Valid || !collectorC.Valid
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
