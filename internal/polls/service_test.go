package polls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulsevote/backend/internal/models"
	"github.com/pulsevote/backend/internal/moderation"
)

// fakeStore is an in-memory Store and VoteReader. Deleting a poll drops
// its votes, mirroring the schema's cascading foreign keys.
type fakeStore struct {
	mu    sync.Mutex
	polls map[uuid.UUID]*models.Poll
	votes map[uuid.UUID][]models.VoterRecord // by poll
	byUsr map[uuid.UUID][]uuid.UUID          // voted poll ids by user
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		polls: make(map[uuid.UUID]*models.Poll),
		votes: make(map[uuid.UUID][]models.VoterRecord),
		byUsr: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (f *fakeStore) Create(_ context.Context, p *models.Poll) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	f.polls[p.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.polls[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) List(_ context.Context) ([]models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Poll
	for _, p := range f.polls {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id uuid.UUID, status models.PollStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.polls[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	if status == models.PollOpen {
		p.WasReopened = true
	}
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.polls[id]; !ok {
		return ErrNotFound
	}
	delete(f.polls, id)
	delete(f.votes, id)
	for user, ids := range f.byUsr {
		kept := ids[:0]
		for _, pid := range ids {
			if pid != id {
				kept = append(kept, pid)
			}
		}
		f.byUsr[user] = kept
	}
	return nil
}

func (f *fakeStore) addVote(pollID, userID uuid.UUID, voter string, optionIdx int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes[pollID] = append(f.votes[pollID], models.VoterRecord{
		ID:          uuid.New(),
		VoterName:   voter,
		OptionIndex: optionIdx,
		VotedAt:     time.Now(),
	})
	f.byUsr[userID] = append(f.byUsr[userID], pollID)
}

func (f *fakeStore) VotedPollIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.byUsr[userID]...), nil
}

func (f *fakeStore) VotersByPoll(_ context.Context, pollID uuid.UUID) ([]models.VoterRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.VoterRecord(nil), f.votes[pollID]...), nil
}

type fakeModerator struct {
	verdict moderation.Verdict
	err     error
	calls   int
}

func (f *fakeModerator) Review(context.Context, string, []string) (moderation.Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeNotifier struct {
	mu          sync.Mutex
	listUpdated int
	pollUpdated []uuid.UUID
}

func (f *fakeNotifier) PollListUpdated() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listUpdated++
}

func (f *fakeNotifier) PollUpdated(pollID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollUpdated = append(f.pollUpdated, pollID)
}

func member() Actor {
	return Actor{ID: uuid.New(), Name: "Alice Martin", Role: models.RoleMember}
}

func admin() Actor {
	return Actor{ID: uuid.New(), Name: "Root", Role: models.RoleAdmin}
}

func newTestService(store *fakeStore, mod Moderator) (*Service, *fakeNotifier) {
	notifier := &fakeNotifier{}
	return NewService(store, store, mod, notifier, zap.NewNop()), notifier
}

func TestCreatePoll(t *testing.T) {
	store := newFakeStore()
	svc, notifier := newTestService(store, nil)
	owner := member()

	closing := time.Now().Add(time.Hour)
	p, err := svc.Create(context.Background(), owner, "Best editor?", []string{"vim", "emacs"}, &closing)
	require.NoError(t, err)

	assert.Equal(t, models.PollOpen, p.Status)
	assert.Equal(t, owner.ID, p.CreatedBy)
	assert.Equal(t, "Alice Martin", p.CreatedByName)
	assert.False(t, p.WasReopened)
	require.Len(t, p.Options, 2)
	assert.Equal(t, 0, p.TotalVotes())
	assert.Equal(t, 1, notifier.listUpdated)

	stored, err := store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Best editor?", stored.Question)
}

func TestCreatePollValidation(t *testing.T) {
	tests := []struct {
		name     string
		question string
		options  []string
	}{
		{"empty question", "", []string{"a", "b"}},
		{"whitespace question", "   ", []string{"a", "b"}},
		{"one option", "q", []string{"a"}},
		{"no options", "q", nil},
		{"empty label", "q", []string{"a", " "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			mod := &fakeModerator{verdict: moderation.VerdictSafe}
			svc, notifier := newTestService(store, mod)

			_, err := svc.Create(context.Background(), member(), tt.question, tt.options, nil)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, store.polls)
			assert.Zero(t, notifier.listUpdated)
			assert.Zero(t, mod.calls, "moderation must not run on invalid input")
		})
	}
}

func TestCreatePollRejectedByModeration(t *testing.T) {
	store := newFakeStore()
	svc, notifier := newTestService(store, &fakeModerator{verdict: moderation.VerdictUnsafe})

	_, err := svc.Create(context.Background(), member(), "something nasty", []string{"a", "b"}, nil)
	assert.ErrorIs(t, err, ErrRejectedByModeration)
	assert.Empty(t, store.polls, "nothing may be persisted")
	assert.Zero(t, notifier.listUpdated)
}

func TestCreatePollModerationFailOpen(t *testing.T) {
	store := newFakeStore()
	svc, notifier := newTestService(store, &fakeModerator{err: errors.New("oracle down")})

	p, err := svc.Create(context.Background(), member(), "Still fine?", []string{"yes", "no"}, nil)
	require.NoError(t, err, "oracle failure must not block creation")
	assert.NotNil(t, p)
	assert.Equal(t, 1, notifier.listUpdated)
}

func TestSetStatusAuthorization(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, nil)
	owner := member()

	p, err := svc.Create(context.Background(), owner, "q", []string{"a", "b"}, nil)
	require.NoError(t, err)

	// A random member may not touch it; the poll is unchanged.
	err = svc.SetStatus(context.Background(), member(), p.ID, models.PollClosed)
	assert.ErrorIs(t, err, ErrForbidden)
	got, _ := store.GetByID(context.Background(), p.ID)
	assert.Equal(t, models.PollOpen, got.Status)

	// The owner may.
	require.NoError(t, svc.SetStatus(context.Background(), owner, p.ID, models.PollClosed))

	// An admin may, on anyone's poll.
	require.NoError(t, svc.SetStatus(context.Background(), admin(), p.ID, models.PollOpen))
}

func TestSetStatusInvalid(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), nil)
	err := svc.SetStatus(context.Background(), admin(), uuid.New(), models.PollStatus("archived"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSetStatusNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeStore(), nil)
	err := svc.SetStatus(context.Background(), admin(), uuid.New(), models.PollClosed)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenedFlagIsMonotonic(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, nil)
	owner := member()

	p, err := svc.Create(context.Background(), owner, "q", []string{"a", "b"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.SetStatus(context.Background(), owner, p.ID, models.PollClosed))
	got, _ := store.GetByID(context.Background(), p.ID)
	assert.False(t, got.WasReopened, "closing alone does not set the flag")

	require.NoError(t, svc.SetStatus(context.Background(), owner, p.ID, models.PollOpen))
	got, _ = store.GetByID(context.Background(), p.ID)
	assert.True(t, got.WasReopened)

	// Another close/reopen cycle never clears it.
	require.NoError(t, svc.SetStatus(context.Background(), owner, p.ID, models.PollClosed))
	got, _ = store.GetByID(context.Background(), p.ID)
	assert.True(t, got.WasReopened)
}

func TestSetStatusEmitsBothEvents(t *testing.T) {
	store := newFakeStore()
	svc, notifier := newTestService(store, nil)
	owner := member()

	p, err := svc.Create(context.Background(), owner, "q", []string{"a", "b"}, nil)
	require.NoError(t, err)
	require.NoError(t, svc.SetStatus(context.Background(), owner, p.ID, models.PollClosed))

	assert.Equal(t, 2, notifier.listUpdated) // create + status change
	assert.Equal(t, []uuid.UUID{p.ID}, notifier.pollUpdated)
}

func TestDeleteForbidden(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, nil)

	p, err := svc.Create(context.Background(), member(), "q", []string{"a", "b"}, nil)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), member(), p.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = store.GetByID(context.Background(), p.ID)
	assert.NoError(t, err, "poll must remain")
}

func TestDeleteCascadesVotes(t *testing.T) {
	store := newFakeStore()
	svc, notifier := newTestService(store, nil)
	owner := member()

	p, err := svc.Create(context.Background(), owner, "q", []string{"a", "b"}, nil)
	require.NoError(t, err)
	voterID := uuid.New()
	store.addVote(p.ID, voterID, "Bob", 0)

	require.NoError(t, svc.Delete(context.Background(), owner, p.ID))

	_, err = store.GetByID(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	votes, _ := store.VotersByPoll(context.Background(), p.ID)
	assert.Empty(t, votes, "no orphaned votes")
	voted, _ := store.VotedPollIDs(context.Background(), voterID)
	assert.Empty(t, voted)
	assert.Equal(t, 2, notifier.listUpdated) // create + delete
}

func TestListReturnsVotedIDs(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, nil)
	owner := member()

	p1, err := svc.Create(context.Background(), owner, "one", []string{"a", "b"}, nil)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), owner, "two", []string{"a", "b"}, nil)
	require.NoError(t, err)

	voterID := uuid.New()
	store.addVote(p1.ID, voterID, "Bob", 1)

	list, voted, err := svc.List(context.Background(), voterID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, []uuid.UUID{p1.ID}, voted)
}

func TestDetailsResolvesOptionLabels(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store, nil)
	owner := member()

	p, err := svc.Create(context.Background(), owner, "q", []string{"Go", "Python"}, nil)
	require.NoError(t, err)
	store.addVote(p.ID, uuid.New(), "Bob", 1)

	got, voters, err := svc.Details(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	require.Len(t, voters, 1)
	assert.Equal(t, "Bob", voters[0].Voter)
	assert.Equal(t, "Python", voters[0].OptionLabel)
}
