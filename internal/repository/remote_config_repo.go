package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"solar_collector/internal/config"
)

// RemoteConfigSQL serves parameters from the remote_config table. It works on
// both SQLite and MySQL.
type RemoteConfigSQL struct {
	db *sql.DB
}

func NewRemoteConfigSQL(db *sql.DB) *RemoteConfigSQL {
	return &RemoteConfigSQL{db: db}
}

var (
	_ RemoteConfigRepo = (*RemoteConfigSQL)(nil)
	_ config.Source    = (*RemoteConfigSQL)(nil)
)

const (
	selectRemoteConfigSQL  = `SELECT value FROM remote_config WHERE namespace = ? AND name = ?`
	replaceRemoteConfigSQL = `REPLACE INTO remote_config (namespace, name, value) VALUES (?, ?, ?)`
	listRemoteConfigSQL    = `SELECT name, value FROM remote_config WHERE namespace = ? ORDER BY name`
)

// Get returns the stored text of namespace/name or config.ErrNotFound.
func (r *RemoteConfigSQL) Get(ctx context.Context, namespace, name string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, selectRemoteConfigSQL, namespace, name).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", config.ErrNotFound
		}
		return "", fmt.Errorf("select %s/%s: %w", namespace, name, err)
	}
	return v, nil
}

// Set inserts or replaces namespace/name.
func (r *RemoteConfigSQL) Set(ctx context.Context, namespace, name, value string) error {
	if _, err := r.db.ExecContext(ctx, replaceRemoteConfigSQL, namespace, name, value); err != nil {
		return fmt.Errorf("replace %s/%s: %w", namespace, name, err)
	}
	return nil
}

// List returns every parameter stored under namespace.
func (r *RemoteConfigSQL) List(ctx context.Context, namespace string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, listRemoteConfigSQL, namespace)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", namespace, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
