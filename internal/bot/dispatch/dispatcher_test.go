package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/command"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage"
	"github.com/iammerus/twilio-whatsapp-fun/internal/telemetry"
)

type fakeStore struct {
	mu         sync.Mutex
	users      map[string]storage.User
	byAddress  map[string]string
	records    []storage.ExecutionRecord
	events     []storage.TelemetryEvent
	createErr  error
	appendErr  error
	nameByID   map[string]string
	recordFail bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]storage.User),
		byAddress: make(map[string]string),
		nameByID:  make(map[string]string),
	}
}

func (s *fakeStore) GetUser(_ context.Context, userID string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *fakeStore) FindUserByAddress(_ context.Context, address string) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.byAddress[address]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return s.users[userID], nil
}

func (s *fakeStore) CreateUser(_ context.Context, user storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.byAddress[user.Address]; exists {
		return storage.ErrConflict
	}
	s.users[user.ID] = user
	s.byAddress[user.Address] = user.ID
	return nil
}

func (s *fakeStore) UpdateUserDisplayName(_ context.Context, userID string, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return storage.ErrNotFound
	}
	user.DisplayName = displayName
	s.users[userID] = user
	return nil
}

func (s *fakeStore) AppendExecutionRecord(_ context.Context, record storage.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, record)
	return nil
}

func (s *fakeStore) LastExecutionRecord(_ context.Context, userID string) (storage.ExecutionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].UserID == userID {
			return s.records[i], nil
		}
	}
	return storage.ExecutionRecord{}, storage.ErrNotFound
}

func (s *fakeStore) AppendTelemetryEvent(_ context.Context, event storage.TelemetryEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *fakeStore) seedUser(t *testing.T, user storage.User) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	s.byAddress[user.Address] = user.ID
}

func dispatcherRegistry(t *testing.T, extra ...command.Handler) (*command.Registry, map[string]*fakeHandler) {
	t.Helper()
	handlers := map[string]*fakeHandler{
		command.KeyFallback: completeHandler(command.Metadata{Key: command.KeyFallback, Fallback: true}),
		command.KeyExpired:  completeHandler(command.Metadata{Key: command.KeyExpired}),
		command.KeyUserInfo: {
			meta:   command.Metadata{Key: command.KeyUserInfo},
			result: command.Result{Status: storage.StatusPendingInput, Reply: "what's your name?"},
		},
		"greet": completeHandler(command.Metadata{Key: "greet", Match: []string{`^(hi|hello|hey)\b`}}),
	}

	registry := command.NewRegistry()
	for _, key := range []string{command.KeyFallback, command.KeyExpired, command.KeyUserInfo, "greet"} {
		if err := registry.Register(handlers[key]); err != nil {
			t.Fatalf("register %s: %v", key, err)
		}
	}
	for _, h := range extra {
		if err := registry.Register(h); err != nil {
			t.Fatalf("register %s: %v", h.Meta().Key, err)
		}
		if fh, ok := h.(*fakeHandler); ok {
			handlers[fh.meta.Key] = fh
		}
	}
	return registry, handlers
}

func newTestDispatcher(t *testing.T, store *fakeStore, extra ...command.Handler) (*Dispatcher, map[string]*fakeHandler) {
	t.Helper()
	registry, handlers := dispatcherRegistry(t, extra...)
	d := NewDispatcher(registry, store, telemetry.NewEmitter(store))
	counter := 0
	d.newID = func() (string, error) {
		counter++
		return fmt.Sprintf("id-%d", counter), nil
	}
	return d, handlers
}

func TestDispatch_FirstContactCreatesUserAndRoutesToOnboarding(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	dispatcher, handlers := newTestDispatcher(t, store)

	result, err := dispatcher.Dispatch(context.Background(), Inbound{
		SenderAddress: "+15550001111",
		Body:          "hi",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Status.Complete() {
		t.Fatal("onboarding should stay pending")
	}
	if handlers["greet"].calls != 0 {
		t.Fatal("incomplete profile must bypass pattern matching even for matching input")
	}
	if handlers[command.KeyUserInfo].calls != 1 {
		t.Fatalf("onboarding calls = %d, want 1", handlers[command.KeyUserInfo].calls)
	}

	user, err := store.FindUserByAddress(context.Background(), "+15550001111")
	if err != nil {
		t.Fatalf("expected user created: %v", err)
	}
	if user.Locale == "" {
		t.Fatal("new user should carry a default locale")
	}

	// The onboarding path appends a record like any other.
	if got := store.recordCount(); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}
	last, err := store.LastExecutionRecord(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("last record: %v", err)
	}
	if last.CommandKey != command.KeyUserInfo {
		t.Fatalf("record key = %q, want %q", last.CommandKey, command.KeyUserInfo)
	}
	if last.Status != storage.StatusPendingInput {
		t.Fatalf("record status = %q, want pending", last.Status)
	}
}

func TestDispatch_CompleteProfileGoesThroughPatternMatching(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedUser(t, storage.User{ID: "user-1", Address: "+15550001111", DisplayName: "Mel", Locale: "en-US"})
	dispatcher, handlers := newTestDispatcher(t, store)

	result, err := dispatcher.Dispatch(context.Background(), Inbound{
		SenderAddress: "+15550001111",
		Body:          "Hello there",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Status.Complete() {
		t.Fatalf("status = %q, want complete", result.Status)
	}
	if handlers["greet"].calls != 1 {
		t.Fatalf("greet calls = %d, want 1", handlers["greet"].calls)
	}

	last, err := store.LastExecutionRecord(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("last record: %v", err)
	}
	if last.CommandKey != "greet" {
		t.Fatalf("record key = %q, want greet", last.CommandKey)
	}
}

func TestDispatch_HandlerContextCarriesPriorRecord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedUser(t, storage.User{ID: "user-1", Address: "+15550001111", DisplayName: "Mel"})
	pending := &fakeHandler{
		meta:   command.Metadata{Key: "survey", Match: []string{`^survey\b`}},
		result: command.Result{Status: storage.StatusPendingInput, Reply: "q1", Payload: map[string]string{"step": "rating"}},
	}
	dispatcher, _ := newTestDispatcher(t, store, pending)

	if _, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550001111", Body: "survey"}); err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if pending.lastCtx.Last != nil {
		t.Fatalf("first turn should have no prior record, got %+v", pending.lastCtx.Last)
	}

	if _, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550001111", Body: "4"}); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if pending.calls != 2 {
		t.Fatalf("survey calls = %d, want 2 (continuation)", pending.calls)
	}
	if pending.lastCtx.Last == nil || pending.lastCtx.Last.PayloadJSON == "" {
		t.Fatal("continuation turn should see the prior record and its payload")
	}
}

func TestDispatch_HandlerErrorAppendsNoRecord(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedUser(t, storage.User{ID: "user-1", Address: "+15550001111", DisplayName: "Mel"})
	broken := &fakeHandler{
		meta: command.Metadata{Key: "broken", Match: []string{`^boom\b`}},
		err:  errors.New("handler exploded"),
	}
	dispatcher, _ := newTestDispatcher(t, store, broken)

	_, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550001111", Body: "boom"})
	if err == nil {
		t.Fatal("expected handler error to propagate")
	}
	if got := store.recordCount(); got != 0 {
		t.Fatalf("records = %d, want 0 after handler failure", got)
	}
}

func TestDispatch_AppendFailurePropagates(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedUser(t, storage.User{ID: "user-1", Address: "+15550001111", DisplayName: "Mel"})
	store.appendErr = errors.New("disk full")
	dispatcher, _ := newTestDispatcher(t, store)

	_, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550001111", Body: "hi"})
	if err == nil {
		t.Fatal("expected append failure to propagate")
	}
}

func TestDispatch_UserCreationFailureAbortsCycle(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.createErr = errors.New("insert failed")
	dispatcher, handlers := newTestDispatcher(t, store)

	_, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550009999", Body: "hi"})
	if !errors.Is(err, ErrUserCreation) {
		t.Fatalf("expected ErrUserCreation, got %v", err)
	}
	for key, h := range handlers {
		if h.calls != 0 {
			t.Fatalf("handler %s ran despite aborted cycle", key)
		}
	}
}

func TestDispatch_RequiresSenderAddress(t *testing.T) {
	t.Parallel()

	dispatcher, _ := newTestDispatcher(t, newFakeStore())
	_, err := dispatcher.Dispatch(context.Background(), Inbound{Body: "hi"})
	if !errors.Is(err, ErrSenderAddressRequired) {
		t.Fatalf("expected ErrSenderAddressRequired, got %v", err)
	}
}

func TestDispatch_EmitsTelemetryPerCycle(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedUser(t, storage.User{ID: "user-1", Address: "+15550001111", DisplayName: "Mel"})
	dispatcher, _ := newTestDispatcher(t, store)

	if _, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550001111", Body: "hi"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.events) != 1 {
		t.Fatalf("telemetry events = %d, want 1", len(store.events))
	}
	if store.events[0].CommandKey != "greet" {
		t.Fatalf("telemetry command key = %q, want greet", store.events[0].CommandKey)
	}
}

func TestDispatch_SerializesCyclesPerSender(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.seedUser(t, storage.User{ID: "user-1", Address: "+15550001111", DisplayName: "Mel"})
	dispatcher, _ := newTestDispatcher(t, store)

	const cycles = 20
	var wg sync.WaitGroup
	wg.Add(cycles)
	for range cycles {
		go func() {
			defer wg.Done()
			if _, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550001111", Body: "hi"}); err != nil {
				t.Errorf("dispatch: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := store.recordCount(); got != cycles {
		t.Fatalf("records = %d, want %d", got, cycles)
	}
}

func TestDispatch_ExpiredContinuationRoutesToExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.seedUser(t, storage.User{ID: "user-1", Address: "+15550001111", DisplayName: "Mel"})
	store.records = append(store.records, storage.ExecutionRecord{
		ID:         "id-old",
		UserID:     "user-1",
		CommandKey: "greet",
		Status:     storage.StatusPendingInput,
		CreatedAt:  now.Add(-45 * time.Minute),
	})
	dispatcher, handlers := newTestDispatcher(t, store)
	dispatcher.clock = func() time.Time { return now }
	dispatcher.resolver.clock = dispatcher.clock

	if _, err := dispatcher.Dispatch(context.Background(), Inbound{SenderAddress: "+15550001111", Body: "anything"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if handlers[command.KeyExpired].calls != 1 {
		t.Fatalf("expiry calls = %d, want 1", handlers[command.KeyExpired].calls)
	}
}
