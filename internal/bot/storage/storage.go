// Package storage defines the persistence records and contracts backing the
// bot: user profiles, the append-only execution ledger, and telemetry events.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write conflicted with existing uniqueness constraints.
	ErrConflict = errors.New("record conflict")
)

// Status describes the outcome a command handler reported for one turn.
//
// Anything other than StatusComplete is a pending variant: the command asked
// the user for more input and expects the next message to come back to it.
type Status string

const (
	// StatusComplete means the command finished; the next message starts fresh.
	StatusComplete Status = "complete"
	// StatusPendingInput means the command is waiting for a free-form answer.
	StatusPendingInput Status = "pending_input"
	// StatusPendingConfirmation means the command is waiting for a yes/no answer.
	StatusPendingConfirmation Status = "pending_confirmation"
)

// Complete reports whether the status ends the interaction.
func (s Status) Complete() bool {
	return s == StatusComplete
}

// User is one messaging-channel contact known to the bot.
type User struct {
	ID          string
	Address     string
	DisplayName string
	Locale      string
	CreatedAt   time.Time
}

// ExecutionRecord is one append-only ledger entry capturing which command
// handled a user's turn and whether it completed. Records are never updated
// in place; routing only ever reads the most recent record per user.
type ExecutionRecord struct {
	ID          string
	UserID      string
	CommandKey  string
	Status      Status
	PayloadJSON string
	CreatedAt   time.Time
}

// TelemetryEvent records one operational event emitted during a dispatch cycle.
type TelemetryEvent struct {
	Timestamp  time.Time
	Severity   string
	Message    string
	UserID     string
	CommandKey string
	DurationMS int64
}

// UserStore persists user profiles keyed by internal id and channel address.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (User, error)
	FindUserByAddress(ctx context.Context, address string) (User, error)
	CreateUser(ctx context.Context, user User) error
	UpdateUserDisplayName(ctx context.Context, userID string, displayName string) error
}

// ExecutionLedger is the append-only record of dispatch outcomes.
//
// LastExecutionRecord is a point-in-time read; no atomicity is guaranteed
// between it and a subsequent append. Callers that need single-active-session
// semantics must serialize per user above this layer.
type ExecutionLedger interface {
	AppendExecutionRecord(ctx context.Context, record ExecutionRecord) error
	LastExecutionRecord(ctx context.Context, userID string) (ExecutionRecord, error)
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}

// Store is the full persistence surface handed to command handlers.
type Store interface {
	UserStore
	ExecutionLedger
	TelemetryStore
}
