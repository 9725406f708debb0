package service

import (
	"context"
	"time"

	"solar_collector/internal/config"
	"solar_collector/internal/models"
	"solar_collector/internal/repository"
)

type Authorization interface {
	Register(invitedBy int, username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes the latest controller snapshot.
type Monitoring interface {
	GetState(ctx context.Context) (models.ControllerState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ControllerEvent, error)
}

// Configuration exposes the effective configuration parameters.
type Configuration interface {
	Settings() SettingsView
}

// TelemetryLog exposes the contents of the telemetry ring.
type TelemetryLog interface {
	Entries(ctx context.Context) ([]TelemetryPoint, error)
}

// Controller runs the polling loop. Stop via context cancellation in main().
type Controller interface {
	Run(ctx context.Context) error
	RunCycle(ctx context.Context) (models.ControllerState, error)
}

type Service struct {
	Monitoring
	EventLog
	Configuration
	TelemetryLog
	Controller
	Authorization
}

// Options carries the parts of the service that are not backed by the local DB.
type Options struct {
	Store      *config.Store
	Telemetry  repository.TelemetryRepo
	Controller Controller
	Auth       AuthConfig
}

// NewService wires repository layer into concrete services.
func NewService(repos *repository.Repository, opts Options) *Service {
	return &Service{
		Monitoring:    NewMonitoringService(repos.StateRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Configuration: NewSettingsService(opts.Store),
		TelemetryLog:  NewTelemetryService(opts.Telemetry, opts.Store),
		Controller:    opts.Controller,
		Authorization: NewAuthService(repos.Operators, opts.Auth),
	}
}

// AuthConfig holds the JWT settings.
type AuthConfig struct {
	SigningKey string
	TokenTTL   time.Duration
}
