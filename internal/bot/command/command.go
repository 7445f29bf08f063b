// Package command defines the handler contract and the registry that routes
// inbound messages to handlers.
package command

import (
	"context"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// Reserved command keys. Exactly one registered definition carries each.
const (
	// KeyFallback answers when no pattern matches and no continuation applies.
	KeyFallback = "default.fallback"
	// KeyExpired answers when a pending continuation outlived the session expiry.
	KeyExpired = "default.expired"
	// KeyUserInfo collects a display name from users with an incomplete profile.
	KeyUserInfo = "default.userinfo"
)

// Metadata is the static routing description a handler exposes.
type Metadata struct {
	// Key uniquely identifies the command in the registry.
	Key string
	// Match lists regular expression patterns for fresh-message routing.
	// Empty means programmatic-only: the command is only ever reached via a
	// continuation or a reserved-key lookup, never by pattern matching.
	// More than one pattern is not supported; see dispatch.Match.
	Match []string
	// Fallback marks the single definition used when nothing else matches.
	Fallback bool
}

// Result is what a handler reports after handling one turn.
type Result struct {
	// Status drives the continuation state machine: a pending status sends
	// the user's next message back to the same command.
	Status storage.Status
	// Reply is the localized message sent back over the channel. May be empty.
	Reply string
	// Payload carries handler state into the execution record, available to
	// the handler again on the continuation turn.
	Payload map[string]string
}

// Context is the per-turn call context handed to a handler. It is built fresh
// for every dispatch cycle and never shared across users or cycles.
type Context struct {
	User  storage.User
	Input string
	Store storage.Store
	// Last is the user's most recent execution record, or nil on first contact.
	Last *storage.ExecutionRecord
}

// Continuing reports whether this turn resumes a pending run of the command
// identified by key.
func (c *Context) Continuing(key string) bool {
	if c == nil || c.Last == nil {
		return false
	}
	return c.Last.CommandKey == key && !c.Last.Status.Complete()
}

// Handler executes one turn of a command.
type Handler interface {
	Meta() Metadata
	Execute(ctx context.Context, call *Context) (Result, error)
}
