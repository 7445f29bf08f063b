package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
)

// DefaultExpiryMinutes is how many minutes a pending continuation survives
// without a new message before routing to the session-expiry command.
const DefaultExpiryMinutes = 30

// Resolver decides which definition handles a user's turn, using the user's
// last execution record and the session expiry policy.
type Resolver struct {
	registry      *command.Registry
	ledger        storage.ExecutionLedger
	expiryMinutes int
	clock         func() time.Time
}

// NewResolver builds a resolver over the registry and ledger with the default
// expiry threshold.
func NewResolver(registry *command.Registry, ledger storage.ExecutionLedger) *Resolver {
	return &Resolver{
		registry:      registry,
		ledger:        ledger,
		expiryMinutes: DefaultExpiryMinutes,
		clock:         time.Now,
	}
}

// Resolve picks the definition for this turn.
//
// With no prior record, or a complete one, the turn is a fresh interaction
// and pattern matching decides. With a pending record the continuation is
// unconditional regardless of input: the same command resumes unless the
// session expired, in which case the session-expiry command answers. A record
// exactly at the threshold still continues; only strictly more elapsed
// minutes expire it.
//
// The returned record is the user's last execution record when one exists,
// for handlers that inspect their prior turn.
func (r *Resolver) Resolve(ctx context.Context, user storage.User, input string) (command.Definition, *storage.ExecutionRecord, error) {
	last, err := r.ledger.LastExecutionRecord(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		def, err := Match(r.registry, input)
		return def, nil, err
	}
	if err != nil {
		return command.Definition{}, nil, err
	}

	if last.Status.Complete() {
		def, err := Match(r.registry, input)
		return def, &last, err
	}

	if r.elapsedMinutes(last.CreatedAt) > r.expiryMinutes {
		def, err := r.registry.Lookup(command.KeyExpired)
		return def, &last, err
	}

	// Resume the handler that was mid-flight. An unknown key here means the
	// registered command set changed underneath a pending record; surface it.
	def, err := r.registry.Lookup(last.CommandKey)
	return def, &last, err
}

func (r *Resolver) elapsedMinutes(since time.Time) int {
	seconds := r.clock().UTC().Sub(since.UTC()).Seconds()
	if seconds < 0 {
		return 0
	}
	return int(seconds) / 60
}
