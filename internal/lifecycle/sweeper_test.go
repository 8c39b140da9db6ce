package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu      sync.Mutex
	expired int64
	err     error
	calls   int
	swept   chan struct{}
}

func (f *fakeStore) CloseExpired(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.swept != nil {
		select {
		case f.swept <- struct{}{}:
		default:
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	// Each poll closes once; later sweeps find nothing.
	n := f.expired
	f.expired = 0
	return n, nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	listUpdated int
}

func (f *fakeNotifier) PollListUpdated() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listUpdated++
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listUpdated
}

func TestSweepClosesExpiredWithSingleEvent(t *testing.T) {
	store := &fakeStore{expired: 3}
	notifier := &fakeNotifier{}
	s := NewSweeper(store, notifier, time.Minute, zap.NewNop())

	require.NoError(t, s.Sweep(context.Background()))
	// Three polls expired together, one batched event.
	assert.Equal(t, 1, notifier.count())

	// Nothing left to close: no further event.
	require.NoError(t, s.Sweep(context.Background()))
	assert.Equal(t, 1, notifier.count())
}

func TestSweepNoExpiredNoEvent(t *testing.T) {
	notifier := &fakeNotifier{}
	s := NewSweeper(&fakeStore{}, notifier, time.Minute, zap.NewNop())

	require.NoError(t, s.Sweep(context.Background()))
	assert.Zero(t, notifier.count())
}

func TestSweepPropagatesStoreError(t *testing.T) {
	boom := errors.New("storage down")
	notifier := &fakeNotifier{}
	s := NewSweeper(&fakeStore{err: boom}, notifier, time.Minute, zap.NewNop())

	assert.ErrorIs(t, s.Sweep(context.Background()), boom)
	assert.Zero(t, notifier.count())
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	store := &fakeStore{swept: make(chan struct{}, 1)}
	s := NewSweeper(store, &fakeNotifier{}, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-store.swept:
	case <-time.After(time.Second):
		t.Fatal("sweeper never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}
