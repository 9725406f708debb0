package db

import (
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// InitDB opens/creates the local SQLite DB file and ensures every table exists.
func InitDB(path string) (*sql.DB, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db, localSchema()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// Open connects to the database holding remote configuration and the
// telemetry ring. Only the remote tables are created.
func Open(driver, dsn string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = openSQLite(dsn)
	case DriverMySQL:
		db, err = openMySQL(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db, remoteSchema()); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Conservative pool settings for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	return db, nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	return db, nil
}

const schemaControllerState = `
CREATE TABLE IF NOT EXISTS controller_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    collector_c REAL NOT NULL,
    storage_c REAL NOT NULL,
    collector_raw REAL NOT NULL,
    storage_raw REAL NOT NULL,
    relay_active BOOLEAN NOT NULL,
    reason TEXT,
    faults TEXT,
    cycle INTEGER NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaControllerEvents = `
CREATE TABLE IF NOT EXISTS controller_events (
    id TEXT PRIMARY KEY,
    occurred_at TIMESTAMP NOT NULL,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    meta TEXT
);
`

const schemaOperators = `
CREATE TABLE IF NOT EXISTS operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

// The remote tables are written in the subset of SQL shared by SQLite and MySQL.
const schemaRemoteConfig = `
CREATE TABLE IF NOT EXISTS remote_config (
    namespace VARCHAR(64) NOT NULL,
    name VARCHAR(64) NOT NULL,
    value VARCHAR(255) NOT NULL,
    PRIMARY KEY (namespace, name)
);
`

const schemaTelemetryLog = `
CREATE TABLE IF NOT EXISTS telemetry_log (
    slot INTEGER NOT NULL PRIMARY KEY,
    recorded_at TIMESTAMP NOT NULL,
    storage_raw DOUBLE NOT NULL,
    collector_raw DOUBLE NOT NULL,
    storage_c DOUBLE NULL,
    collector_c DOUBLE NULL,
    active BOOLEAN NOT NULL
);
`

const schemaTelemetryScalars = `
CREATE TABLE IF NOT EXISTS telemetry_scalars (
    name VARCHAR(64) NOT NULL,
    slot INTEGER NOT NULL,
    value DOUBLE NOT NULL,
    PRIMARY KEY (name, slot)
);
`

func remoteSchema() []string {
	return []string{schemaRemoteConfig, schemaTelemetryLog, schemaTelemetryScalars}
}

func localSchema() []string {
	return append([]string{schemaControllerState, schemaControllerEvents, schemaOperators}, remoteSchema()...)
}

func ensureSchema(db *sql.DB, stmts []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
