package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"ratingxchange/internal/domain"
	"ratingxchange/internal/platform"
	"ratingxchange/internal/store/changefeed"
)

// fakeExchanges is a minimal in-memory ExchangeRepository for control-loop
// tests; it does not aim to satisfy every contract method's edge cases,
// only what the scheduler itself calls.
type fakeExchanges struct {
	mu        sync.Mutex
	exchanges map[domain.ExchangeID]domain.Exchange
	hub       *changefeed.Hub
}

func newFakeExchanges(exs ...domain.Exchange) *fakeExchanges {
	f := &fakeExchanges{exchanges: map[domain.ExchangeID]domain.Exchange{}, hub: changefeed.NewHub()}
	for _, ex := range exs {
		f.exchanges[ex.ID] = ex
	}
	return f
}

func (f *fakeExchanges) Create(context.Context, domain.NewExchange) (domain.Exchange, error) {
	panic("not used in this test")
}

func (f *fakeExchanges) GetOverlapping(context.Context, uint64, uint64, string, time.Time, time.Time) ([]domain.Exchange, error) {
	return nil, nil
}

func (f *fakeExchanges) GetRunning(context.Context, uint64, uint64, time.Time) (*domain.Exchange, error) {
	return nil, nil
}

func (f *fakeExchanges) GetUpcoming(context.Context, uint64, time.Time) ([]domain.Exchange, error) {
	return nil, nil
}

func (f *fakeExchanges) GetStarting(ctx context.Context, at time.Time) ([]domain.Exchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Exchange
	for _, ex := range f.exchanges {
		if ex.State == domain.ExchangeNotStartedYet && !ex.SubmissionsStart.After(at) {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (f *fakeExchanges) GetEnding(ctx context.Context, at time.Time) ([]domain.Exchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Exchange
	for _, ex := range f.exchanges {
		if ex.State == domain.ExchangeAcceptingSubmissions && !ex.SubmissionsEnd.After(at) {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (f *fakeExchanges) ClosestEventTime(context.Context) (*time.Time, error) {
	return nil, nil
}

func (f *fakeExchanges) UpdateState(ctx context.Context, id domain.ExchangeID, state domain.ExchangeState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex := f.exchanges[id]
	ex.State = state
	f.exchanges[id] = ex
	return nil
}

func (f *fakeExchanges) Delete(context.Context, uint64, string) (bool, error) {
	return false, nil
}

func (f *fakeExchanges) Subscribe() (<-chan changefeed.Event, func()) {
	return f.hub.Subscribe()
}

func (f *fakeExchanges) stateOf(id domain.ExchangeID) domain.ExchangeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges[id].State
}

type fakeSubmissions struct{}

func (fakeSubmissions) GetConflict(context.Context, domain.NewSubmission) (*domain.Submission, error) {
	return nil, nil
}
func (fakeSubmissions) Upsert(context.Context, domain.NewSubmission) (domain.Submission, error) {
	return domain.Submission{}, nil
}
func (fakeSubmissions) Revoke(context.Context, domain.ExchangeID, uint64) (bool, error) {
	return false, nil
}
func (fakeSubmissions) ListForExchange(context.Context, domain.ExchangeID) ([]domain.Submission, error) {
	return nil, nil
}

type fakePlayedGames struct {
	mu      sync.Mutex
	submits int
}

func (f *fakePlayedGames) Submit(context.Context, uint64, string, bool) (domain.PlayedGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return domain.PlayedGame{}, nil
}
func (*fakePlayedGames) ListForExchange(context.Context, []uint64) ([]domain.PlayedGame, error) {
	return nil, nil
}

func (f *fakePlayedGames) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

// fakeSubmissionsWithData lets a test seed a fixed submission set for
// ListForExchange, unlike fakeSubmissions's always-empty stub.
type fakeSubmissionsWithData struct {
	fakeSubmissions
	subs []domain.Submission
}

func (f fakeSubmissionsWithData) ListForExchange(context.Context, domain.ExchangeID) ([]domain.Submission, error) {
	return f.subs, nil
}

type fakeSession struct {
	mu       sync.Mutex
	messages []string
	dms      []string
}

func (s *fakeSession) SendChannelMessage(ctx context.Context, channel uint64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, content)
	return nil
}

func (s *fakeSession) SendDM(ctx context.Context, user uint64, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dms = append(s.dms, content)
	return nil
}

func (s *fakeSession) GuildName(context.Context, uint64) string { return "guild" }

func (s *fakeSession) RegisterCommands(context.Context, []platform.CommandDef) error { return nil }

func TestAnnounceOpenings_TransitionsToAccepting(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ex := domain.Exchange{ID: 1, Channel: 42, DisplayName: "Jam", State: domain.ExchangeNotStartedYet, SubmissionsStart: now.Add(-time.Minute)}
	exchanges := newFakeExchanges(ex)
	session := &fakeSession{}
	s := New(exchanges, fakeSubmissions{}, &fakePlayedGames{}, session, Config{StartThreshold: time.Hour, EndThreshold: time.Hour, DefaultSleep: time.Hour, WorkerPoolSize: 1})

	s.announceOpenings(context.Background(), now)

	if got := exchanges.stateOf(1); got != domain.ExchangeAcceptingSubmissions {
		t.Errorf("state = %s, want AcceptingSubmissions", got)
	}
	if len(session.messages) != 1 {
		t.Errorf("expected 1 channel message, got %d", len(session.messages))
	}
}

func TestAnnounceOpenings_MissedPastThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ex := domain.Exchange{ID: 1, Channel: 42, DisplayName: "Jam", State: domain.ExchangeNotStartedYet, SubmissionsStart: now.Add(-2 * time.Hour)}
	exchanges := newFakeExchanges(ex)
	session := &fakeSession{}
	s := New(exchanges, fakeSubmissions{}, &fakePlayedGames{}, session, Config{StartThreshold: time.Hour, EndThreshold: time.Hour, DefaultSleep: time.Hour, WorkerPoolSize: 1})

	s.announceOpenings(context.Background(), now)

	if got := exchanges.stateOf(1); got != domain.ExchangeMissedByBot {
		t.Errorf("state = %s, want MissedByBot", got)
	}
	if len(session.messages) != 0 {
		t.Errorf("expected no announcement when past threshold, got %d", len(session.messages))
	}
}

func TestCloseAndAssign_TransitionsToAssignmentsSent(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ex := domain.Exchange{ID: 2, Channel: 42, DisplayName: "Jam", State: domain.ExchangeAcceptingSubmissions, SubmissionsEnd: now.Add(-time.Minute), GamesPerMember: 2}
	exchanges := newFakeExchanges(ex)
	session := &fakeSession{}
	s := New(exchanges, fakeSubmissions{}, &fakePlayedGames{}, session, Config{StartThreshold: time.Hour, EndThreshold: time.Hour, DefaultSleep: time.Hour, WorkerPoolSize: 1})

	s.closeAndAssign(context.Background(), now)
	s.pool.wait()

	if got := exchanges.stateOf(2); got != domain.ExchangeAssignmentsSent {
		t.Errorf("state = %s, want AssignmentsSent", got)
	}
}

func TestCloseAndAssign_MissedPastThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ex := domain.Exchange{ID: 2, Channel: 42, DisplayName: "Jam", State: domain.ExchangeAcceptingSubmissions, SubmissionsEnd: now.Add(-2 * time.Hour)}
	exchanges := newFakeExchanges(ex)
	session := &fakeSession{}
	s := New(exchanges, fakeSubmissions{}, &fakePlayedGames{}, session, Config{StartThreshold: time.Hour, EndThreshold: time.Hour, DefaultSleep: time.Hour, WorkerPoolSize: 1})

	s.closeAndAssign(context.Background(), now)
	s.pool.wait()

	if got := exchanges.stateOf(2); got != domain.ExchangeMissedByBot {
		t.Errorf("state = %s, want MissedByBot", got)
	}
}

// TestCloseAndAssign_DoesNotAutoRecordPlayedGames guards against
// reintroducing an automatic PlayedGame.Submit call for delivered
// assignments: spec.md §4.3 only creates a PlayedGame from the explicit
// `played` command (post-assignment inference is called out as future
// work, not yet in scope), so closing an exchange must never touch the
// played-games store on behalf of a submitter.
func TestCloseAndAssign_DoesNotAutoRecordPlayedGames(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ex := domain.Exchange{ID: 2, Channel: 42, DisplayName: "Jam", State: domain.ExchangeAcceptingSubmissions, SubmissionsEnd: now.Add(-time.Minute), GamesPerMember: 2}
	exchanges := newFakeExchanges(ex)
	submissions := fakeSubmissionsWithData{subs: []domain.Submission{
		{ID: 1, ExchangeID: 2, Submitter: 100, Link: "https://itch.io/jam/example-jam/rate/1"},
		{ID: 2, ExchangeID: 2, Submitter: 200, Link: "https://itch.io/jam/example-jam/rate/2"},
	}}
	played := &fakePlayedGames{}
	session := &fakeSession{}
	s := New(exchanges, submissions, played, session, Config{StartThreshold: time.Hour, EndThreshold: time.Hour, DefaultSleep: time.Hour, WorkerPoolSize: 1})

	s.closeAndAssign(context.Background(), now)
	s.pool.wait()

	if got := exchanges.stateOf(2); got != domain.ExchangeAssignmentsSent {
		t.Fatalf("state = %s, want AssignmentsSent", got)
	}
	if got := played.submitCount(); got != 0 {
		t.Errorf("played.Submit called %d times, want 0 — assignment delivery must not auto-record played games", got)
	}
}

func TestRun_ExitsOnContextCancel(t *testing.T) {
	exchanges := newFakeExchanges()
	s := New(exchanges, fakeSubmissions{}, &fakePlayedGames{}, &fakeSession{}, Config{StartThreshold: time.Hour, EndThreshold: time.Hour, DefaultSleep: time.Hour, WorkerPoolSize: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}
