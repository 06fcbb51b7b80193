package usecase

import (
	"context"
	"sync"

	"github.com/forexring/ringalerts/internal/domain"
)

// fakeAlertRepo mirrors the store's conditional-deactivate semantics in
// memory: the flip from active to inactive happens under one lock and
// reports rows affected, so concurrent watchers race it the same way
// they race the SQL UPDATE.
type fakeAlertRepo struct {
	mu                sync.Mutex
	active            map[string]bool
	directions        map[string]domain.Direction
	outcomes          map[string]domain.AlertOutcome
	stateReads        int
	setDirectionCalls int
	deactivations     int
	stateErr          error
	setDirectionErr   error
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{
		active:     make(map[string]bool),
		directions: make(map[string]domain.Direction),
		outcomes:   make(map[string]domain.AlertOutcome),
	}
}

func (r *fakeAlertRepo) put(id string, active bool, direction domain.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[id] = active
	r.directions[id] = direction
}

func (r *fakeAlertRepo) Create(ctx context.Context, alert *domain.Alert) error {
	r.put(alert.ID, alert.Active, alert.Direction)
	return nil
}

func (r *fakeAlertRepo) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active, ok := r.active[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Alert{ID: id, Active: active, Direction: r.directions[id]}, nil
}

func (r *fakeAlertRepo) ListActive(ctx context.Context) ([]domain.Alert, error) {
	return nil, nil
}

func (r *fakeAlertRepo) GetAlertState(ctx context.Context, id string) (domain.AlertState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateReads++
	if r.stateErr != nil {
		return domain.AlertState{}, r.stateErr
	}
	active, ok := r.active[id]
	if !ok {
		return domain.AlertState{}, domain.ErrNotFound
	}
	return domain.AlertState{Active: active, Direction: r.directions[id]}, nil
}

func (r *fakeAlertRepo) SetDirection(ctx context.Context, id string, direction domain.Direction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setDirectionCalls++
	if r.setDirectionErr != nil {
		return r.setDirectionErr
	}
	r.directions[id] = direction
	return nil
}

func (r *fakeAlertRepo) ConditionalDeactivate(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active[id] {
		return 0, nil
	}
	r.active[id] = false
	r.deactivations++
	return 1, nil
}

func (r *fakeAlertRepo) RecordOutcome(ctx context.Context, id string, outcome domain.AlertOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[id] = outcome
	return nil
}

func (r *fakeAlertRepo) outcome(id string) (domain.AlertOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, ok := r.outcomes[id]
	return out, ok
}

type fakeUserRepo struct {
	user *domain.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if r.user == nil || r.user.ID != id {
		return nil, domain.ErrNotFound
	}
	return r.user, nil
}

func (r *fakeUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	if r.user == nil || r.user.TelegramID != telegramID {
		return nil, domain.ErrNotFound
	}
	return r.user, nil
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.user = user
	return nil
}

// channelScript pops scripted errors per call; the last entry repeats,
// so a single error means "always fails" and an empty script means
// "always succeeds".
type channelScript struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (s *channelScript) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	if len(s.errs) > 1 {
		s.errs = s.errs[1:]
	}
	return err
}

func (s *channelScript) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeVoice struct {
	channelScript
}

func (v *fakeVoice) Call(ctx context.Context, to, message string) error {
	return v.next()
}

type fakeText struct {
	channelScript
	mu       sync.Mutex
	lastChat int64
	lastMsg  string
}

func (t *fakeText) Send(ctx context.Context, chatID int64, message string) error {
	t.mu.Lock()
	t.lastChat = chatID
	t.lastMsg = message
	t.mu.Unlock()
	return t.next()
}

type fakeRemover struct {
	mu      sync.Mutex
	removed []string
}

func (r *fakeRemover) RemoveAlertForPair(pair string, alertID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, alertID)
}

func (r *fakeRemover) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.removed)
}

type fakeFeed struct {
	mu             sync.Mutex
	nextID         domain.SubscriptionID
	live           map[domain.SubscriptionID]string
	subscribeCalls int
	unsubCalls     int
	subscribeErr   error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{live: make(map[domain.SubscriptionID]string)}
}

func (f *fakeFeed) Subscribe(pair string, listener domain.TickListener) (domain.SubscriptionID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeCalls++
	if f.subscribeErr != nil {
		return 0, f.subscribeErr
	}
	f.nextID++
	f.live[f.nextID] = pair
	return f.nextID, nil
}

func (f *fakeFeed) Unsubscribe(id domain.SubscriptionID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.live[id]; ok {
		delete(f.live, id)
		f.unsubCalls++
	}
}

func (f *fakeFeed) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}
