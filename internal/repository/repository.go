package repository

import (
	"context"
	"database/sql"
	"time"

	"solar_collector/internal/models"
)

// Operators holds the accounts allowed to use the API.
type Operators interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.Operator, error)
	Count() (int, error)
}

type StateRepo interface {
	Save(ctx context.Context, s models.ControllerState) error
	Load(ctx context.Context) (models.ControllerState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.ControllerEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error)
}

// TelemetryRepo is the SQL-backed telemetry ring.
type TelemetryRepo interface {
	WriteEntry(ctx context.Context, slot int, e models.LogEntry) error
	WriteScalar(ctx context.Context, name string, slot int, value float64) error
	List(ctx context.Context) ([]models.LogEntry, error)
}

// RemoteConfigRepo is the SQL-backed remote parameter table.
type RemoteConfigRepo interface {
	Get(ctx context.Context, namespace, name string) (string, error)
	Set(ctx context.Context, namespace, name, value string) error
	List(ctx context.Context, namespace string) (map[string]string, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Operators Operators
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Operators: NewOperatorSQLite(db),
	}
}
