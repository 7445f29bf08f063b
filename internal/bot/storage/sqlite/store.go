// Package sqlite provides SQLite-backed persistence for users, the execution
// ledger, and telemetry events.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage/sqlite/migrations"
	"github.com/iammerus/twilio-whatsapp-fun/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store implements storage.Store over a single SQLite file.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the bot SQLite store at the provided path and applies bundled
// migrations, so callers never coordinate schema evolution themselves.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_pragma=foreign_keys(ON)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetUser returns the user with the given internal id.
func (s *Store) GetUser(ctx context.Context, userID string) (storage.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, address, display_name, locale, created_at
FROM users
WHERE id = ?
`, userID)
	return scanUser(row)
}

// FindUserByAddress returns the user registered under the channel address.
func (s *Store) FindUserByAddress(ctx context.Context, address string) (storage.User, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, address, display_name, locale, created_at
FROM users
WHERE address = ?
`, address)
	return scanUser(row)
}

// CreateUser inserts a new user row. A duplicate address reports ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user storage.User) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(user.Address) == "" {
		return fmt.Errorf("user address is required")
	}
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (id, address, display_name, locale, created_at)
VALUES (?, ?, ?, ?, ?)
`,
		user.ID,
		user.Address,
		user.DisplayName,
		user.Locale,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", user.Address, storage.ErrConflict)
		}
		return fmt.Errorf("create user %s: %w", user.Address, err)
	}
	return nil
}

// UpdateUserDisplayName sets the display name for an existing user.
func (s *Store) UpdateUserDisplayName(ctx context.Context, userID string, displayName string) error {
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE users SET display_name = ? WHERE id = ?
`, displayName, userID)
	if err != nil {
		return fmt.Errorf("update display name for %s: %w", userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update display name for %s: %w", userID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update display name for %s: %w", userID, storage.ErrNotFound)
	}
	return nil
}

// AppendExecutionRecord writes one ledger entry. Records are append-only.
func (s *Store) AppendExecutionRecord(ctx context.Context, record storage.ExecutionRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("execution record id is required")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("execution record user id is required")
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO execution_records (id, user_id, command_key, status, payload_json, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.UserID,
		record.CommandKey,
		string(record.Status),
		record.PayloadJSON,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append execution record: %w", err)
	}
	return nil
}

// LastExecutionRecord returns the most recent ledger entry for the user.
func (s *Store) LastExecutionRecord(ctx context.Context, userID string) (storage.ExecutionRecord, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, user_id, command_key, status, payload_json, created_at
FROM execution_records
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, userID)

	var record storage.ExecutionRecord
	var status string
	var createdAt int64
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.CommandKey,
		&status,
		&record.PayloadJSON,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ExecutionRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ExecutionRecord{}, fmt.Errorf("load last execution record: %w", err)
	}
	record.Status = storage.Status(status)
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// AppendTelemetryEvent writes one telemetry row.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (timestamp, severity, message, user_id, command_key, duration_ms)
VALUES (?, ?, ?, ?, ?, ?)
`,
		toMillis(timestamp),
		event.Severity,
		event.Message,
		event.UserID,
		event.CommandKey,
		event.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (storage.User, error) {
	var user storage.User
	var createdAt int64
	err := row.Scan(
		&user.ID,
		&user.Address,
		&user.DisplayName,
		&user.Locale,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
