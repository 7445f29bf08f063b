// Package dispatch orchestrates one cycle per inbound message: resolve the
// user, resolve the command, execute it, and append the outcome to the
// execution ledger.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
	"github.com/iammerus/twilio-whatsapp-fun/internal/platform/id"
	"github.com/iammerus/twilio-whatsapp-fun/internal/telemetry"
)

var (
	// ErrNoCommandResolved indicates resolution produced no definition. The
	// fallback guarantee makes this unreachable; hitting it means the
	// registry invariant is broken and startup wiring is wrong.
	ErrNoCommandResolved = errors.New("no command resolved for message")
	// ErrUserCreation indicates a first-contact user record could not be
	// persisted; the dispatch cycle aborts rather than proceed partially.
	ErrUserCreation = errors.New("create user record")
	// ErrSenderAddressRequired indicates the inbound message had no sender.
	ErrSenderAddressRequired = errors.New("sender address is required")
)

const defaultLocale = "en-US"

// Inbound is one message received from the channel.
type Inbound struct {
	SenderAddress string
	Body          string
}

// Dispatcher runs one dispatch cycle per inbound message.
//
// All routing state (the active definition, the prior record) lives in local
// values for the duration of one cycle; the dispatcher itself holds only
// read-only collaborators plus the per-user lock table, so concurrent cycles
// for different users never observe each other.
type Dispatcher struct {
	registry *command.Registry
	store    storage.Store
	resolver *Resolver
	emitter  *telemetry.Emitter
	locks    *userLocks
	clock    func() time.Time
	newID    func() (string, error)
}

// NewDispatcher wires a dispatcher over the registry and store.
func NewDispatcher(registry *command.Registry, store storage.Store, emitter *telemetry.Emitter) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		store:    store,
		resolver: NewResolver(registry, store),
		emitter:  emitter,
		locks:    newUserLocks(),
		clock:    time.Now,
		newID:    id.NewID,
	}
}

// Dispatch handles one inbound message end to end and returns the handler's
// result. Errors propagate uncaught; the webhook boundary decides what the
// user sees on failure.
func (d *Dispatcher) Dispatch(ctx context.Context, in Inbound) (command.Result, error) {
	address := strings.TrimSpace(in.SenderAddress)
	if address == "" {
		return command.Result{}, ErrSenderAddressRequired
	}

	ctx, span := otel.Tracer("bot/dispatch").Start(ctx, "Dispatch")
	defer span.End()

	// Serialize cycles for one sender so the ledger read-then-append pair
	// cannot interleave for the same user.
	unlock := d.locks.lock(address)
	defer unlock()

	started := d.clock()

	user, err := d.fetchUser(ctx, address)
	if err != nil {
		return command.Result{}, err
	}

	def, last, err := d.resolve(ctx, user, in.Body)
	if err != nil {
		return command.Result{}, err
	}
	if def.Handler == nil {
		return command.Result{}, fmt.Errorf("%w: sender %s", ErrNoCommandResolved, address)
	}
	span.SetAttributes(attribute.String("command.key", def.Key))

	result, err := def.Handler.Execute(ctx, &command.Context{
		User:  user,
		Input: in.Body,
		Store: d.store,
		Last:  last,
	})
	if err != nil {
		return command.Result{}, fmt.Errorf("execute command %s: %w", def.Key, err)
	}
	if result.Status == "" {
		return command.Result{}, fmt.Errorf("command %s returned no status", def.Key)
	}

	if err := d.appendRecord(ctx, user, def.Key, result); err != nil {
		return command.Result{}, err
	}

	d.emitCycle(ctx, user, def.Key, result.Status, d.clock().Sub(started))
	return result, nil
}

// resolve applies the incomplete-profile override before delegating to the
// continuation resolver.
func (d *Dispatcher) resolve(ctx context.Context, user storage.User, input string) (command.Definition, *storage.ExecutionRecord, error) {
	if strings.TrimSpace(user.DisplayName) != "" {
		return d.resolver.Resolve(ctx, user, input)
	}

	// Users without a display name always route to onboarding, regardless of
	// input or continuation state.
	def, err := d.registry.Lookup(command.KeyUserInfo)
	if err != nil {
		return command.Definition{}, nil, err
	}
	last, err := d.store.LastExecutionRecord(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return def, nil, nil
	}
	if err != nil {
		return command.Definition{}, nil, err
	}
	return def, &last, nil
}

func (d *Dispatcher) fetchUser(ctx context.Context, address string) (storage.User, error) {
	user, err := d.store.FindUserByAddress(ctx, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, fmt.Errorf("find user %s: %w", address, err)
	}

	userID, err := d.newID()
	if err != nil {
		return storage.User{}, fmt.Errorf("%w: %v", ErrUserCreation, err)
	}
	user = storage.User{
		ID:        userID,
		Address:   address,
		Locale:    defaultLocale,
		CreatedAt: d.clock().UTC(),
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		return storage.User{}, fmt.Errorf("%w: %v", ErrUserCreation, err)
	}
	return user, nil
}

func (d *Dispatcher) appendRecord(ctx context.Context, user storage.User, commandKey string, result command.Result) error {
	recordID, err := d.newID()
	if err != nil {
		return fmt.Errorf("generate record id: %w", err)
	}

	payloadJSON := ""
	if len(result.Payload) > 0 {
		raw, err := json.Marshal(result.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for %s: %w", commandKey, err)
		}
		payloadJSON = string(raw)
	}

	record := storage.ExecutionRecord{
		ID:          recordID,
		UserID:      user.ID,
		CommandKey:  commandKey,
		Status:      result.Status,
		PayloadJSON: payloadJSON,
		CreatedAt:   d.clock().UTC(),
	}
	if err := d.store.AppendExecutionRecord(ctx, record); err != nil {
		return fmt.Errorf("append execution record for %s: %w", commandKey, err)
	}
	return nil
}

// emitCycle records dispatch telemetry. Failures are logged, never surfaced:
// telemetry must not fail a cycle that already completed.
func (d *Dispatcher) emitCycle(ctx context.Context, user storage.User, commandKey string, status storage.Status, took time.Duration) {
	err := d.emitter.Emit(ctx, telemetry.SeverityInfo, storage.TelemetryEvent{
		Message:    "dispatch cycle complete status=" + string(status),
		UserID:     user.ID,
		CommandKey: commandKey,
		DurationMS: took.Milliseconds(),
	})
	if err != nil {
		log.Printf("emit dispatch telemetry user_id=%s command_key=%s: %v", user.ID, commandKey, err)
	}
}
