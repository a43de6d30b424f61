package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/onnwee/golocal/internal/tracing"
)

// PostgresStore implements Store on the preferences table
// (see migrations/000001_create_preferences.up.sql).
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// preferenceRow maps one row of the preferences table.
type preferenceRow struct {
	DeviceID string `db:"device_id"`
	Key      string `db:"key"`
	Value    string `db:"value"`
}

const (
	selectPreference = `SELECT value FROM preferences WHERE device_id = $1 AND key = $2`

	// One statement per write; concurrent toggles are serialized by the caller.
	upsertPreference = `INSERT INTO preferences (device_id, key, value, updated_at)
	                    VALUES (:device_id, :key, :value, NOW())
	                    ON CONFLICT (device_id, key)
	                    DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
)

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, owner string, key Key) (value string, found bool, err error) {
	if owner == "" {
		return "", false, ErrEmptyOwner
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "preferences", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	err = s.db.GetContext(ctx, &value, selectPreference, owner, string(key))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, owner string, key Key, value string) (err error) {
	if owner == "" {
		return ErrEmptyOwner
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "preferences", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	row := preferenceRow{DeviceID: owner, Key: string(key), Value: value}
	if _, err = s.db.NamedExecContext(ctx, upsertPreference, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to upsert preference", "key", key, "error", err)
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}
