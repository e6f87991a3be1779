package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/hobbyvault/internal/logging"
)

var (
	oldPair = Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}
	newPair = Tokens{AccessToken: "access-2", RefreshToken: "refresh-2"}
)

func newTestManager(t *testing.T, r Refresher) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), oldPair))
	m, err := NewManager(context.Background(), store, r, logging.Discard())
	require.NoError(t, err)
	return m, store
}

// acceptOnly returns a call that succeeds only with the given access token.
func acceptOnly(token string, seen *[]string, mu *sync.Mutex) func(context.Context, string) error {
	return func(ctx context.Context, accessToken string) error {
		mu.Lock()
		*seen = append(*seen, accessToken)
		mu.Unlock()
		if accessToken != token {
			return fmt.Errorf("call rejected: %w", ErrUnauthorized)
		}
		return nil
	}
}

func TestNewManager_LoadsStore(t *testing.T) {
	m, _ := newTestManager(t, nil)
	assert.Equal(t, oldPair, m.Tokens())
	assert.True(t, m.LoggedIn())
}

func TestDo_SuccessNoRefresh(t *testing.T) {
	var refreshes atomic.Int32
	m, _ := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		refreshes.Add(1)
		return newPair, nil
	}))

	var (
		seen []string
		mu   sync.Mutex
	)
	require.NoError(t, m.Do(context.Background(), acceptOnly(oldPair.AccessToken, &seen, &mu)))
	assert.Equal(t, []string{"access-1"}, seen)
	assert.Zero(t, refreshes.Load())
}

func TestDo_NonAuthErrorIsReturnedAsIs(t *testing.T) {
	m, _ := newTestManager(t, nil)
	boom := errors.New("boom")

	err := m.Do(context.Background(), func(ctx context.Context, _ string) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestDo_RefreshesOnceAndRetries(t *testing.T) {
	var got string
	m, store := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		got = rt
		return newPair, nil
	}))

	var (
		seen []string
		mu   sync.Mutex
	)
	require.NoError(t, m.Do(context.Background(), acceptOnly(newPair.AccessToken, &seen, &mu)))

	assert.Equal(t, "refresh-1", got)
	assert.Equal(t, []string{"access-1", "access-2"}, seen)
	assert.Equal(t, newPair, m.Tokens())

	persisted, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, newPair, persisted)
}

func TestDo_RetryNeverRefreshesAgain(t *testing.T) {
	var refreshes atomic.Int32
	m, _ := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		refreshes.Add(1)
		return newPair, nil
	}))

	var calls int
	err := m.Do(context.Background(), func(ctx context.Context, _ string) error {
		calls++
		return ErrUnauthorized
	})

	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestDo_RefreshFailureClearsAndReturnsOriginal(t *testing.T) {
	m, store := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		return Tokens{}, errors.New("refresh rejected")
	}))

	original := fmt.Errorf("GET /api/me: %w", ErrUnauthorized)
	var calls int
	err := m.Do(context.Background(), func(ctx context.Context, _ string) error {
		calls++
		return original
	})

	assert.Same(t, original, err)
	assert.Equal(t, 1, calls)
	assert.False(t, m.LoggedIn())

	persisted, _ := store.Load(context.Background())
	assert.True(t, persisted.Empty())
}

func TestDo_NoRefreshTokenNoRefresh(t *testing.T) {
	store := NewMemoryStore()
	var refreshes atomic.Int32
	m, err := NewManager(context.Background(), store, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		refreshes.Add(1)
		return newPair, nil
	}), logging.Discard())
	require.NoError(t, err)

	err = m.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		assert.Empty(t, accessToken)
		return ErrUnauthorized
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, refreshes.Load())
}

func TestDo_NoRefreshTokenClearsAccessToken(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), Tokens{AccessToken: "access-only"}))
	var refreshes atomic.Int32
	m, err := NewManager(context.Background(), store, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		refreshes.Add(1)
		return newPair, nil
	}), logging.Discard())
	require.NoError(t, err)
	require.True(t, m.LoggedIn())

	err = m.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		return ErrUnauthorized
	})
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, refreshes.Load())
	assert.False(t, m.LoggedIn())

	persisted, _ := store.Load(context.Background())
	assert.True(t, persisted.Empty())
}

func TestDo_SkipsExchangeWhenAlreadyRotated(t *testing.T) {
	var refreshes atomic.Int32
	m, _ := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		refreshes.Add(1)
		return Tokens{}, errors.New("must not be called")
	}))

	var seen []string
	err := m.Do(context.Background(), func(ctx context.Context, accessToken string) error {
		seen = append(seen, accessToken)
		if accessToken == oldPair.AccessToken {
			// another caller finished a refresh while this call was in flight
			require.NoError(t, m.Set(ctx, newPair))
			return ErrUnauthorized
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"access-1", "access-2"}, seen)
	assert.Zero(t, refreshes.Load())
}

func TestDo_ConcurrentFailuresShareOneRefresh(t *testing.T) {
	const callers = 16

	var (
		refreshes atomic.Int32
		failed    sync.WaitGroup
		release   = make(chan struct{})
	)
	failed.Add(callers)

	m, _ := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		refreshes.Add(1)
		<-release
		return newPair, nil
	}))

	var once sync.Map
	call := func(ctx context.Context, accessToken string) error {
		if accessToken == newPair.AccessToken {
			return nil
		}
		if _, loaded := once.LoadOrStore(ctx.Value(callerKey{}), true); !loaded {
			failed.Done()
		}
		return ErrUnauthorized
	}

	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			ctx := context.WithValue(context.Background(), callerKey{}, i)
			errs <- m.Do(ctx, call)
		}(i)
	}

	failed.Wait()
	close(release)

	for i := 0; i < callers; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, newPair, m.Tokens())
}

type callerKey struct{}

func TestLogout_CancelsInFlightRefresh(t *testing.T) {
	const callers = 4

	started := make(chan struct{})
	var startOnce sync.Once
	var refreshCtxErr atomic.Value

	m, store := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		startOnce.Do(func() { close(started) })
		<-ctx.Done()
		refreshCtxErr.Store(ctx.Err())
		return Tokens{}, ctx.Err()
	}))

	var retried atomic.Int32
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			var calls int
			errs <- m.Do(context.Background(), func(ctx context.Context, accessToken string) error {
				calls++
				if calls > 1 {
					retried.Add(1)
				}
				return ErrUnauthorized
			})
		}()
	}

	<-started
	old, err := m.Logout(context.Background())
	require.NoError(t, err)
	assert.Equal(t, oldPair, old)

	for i := 0; i < callers; i++ {
		select {
		case err := <-errs:
			require.ErrorIs(t, err, ErrUnauthorized)
		case <-time.After(5 * time.Second):
			t.Fatal("caller still waiting after logout")
		}
	}

	assert.Zero(t, retried.Load(), "no call may be retried after logout")
	require.Eventually(t, func() bool { return refreshCtxErr.Load() != nil }, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, refreshCtxErr.Load().(error), context.Canceled)
	assert.False(t, m.LoggedIn())

	persisted, _ := store.Load(context.Background())
	assert.True(t, persisted.Empty())
}

func TestLogout_DiscardsLateRefreshResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	m, _ := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		close(started)
		// ignores cancellation and answers anyway
		<-release
		return newPair, nil
	}))

	done := make(chan error, 1)
	go func() {
		done <- m.Do(context.Background(), func(ctx context.Context, accessToken string) error {
			return ErrUnauthorized
		})
	}()

	<-started
	_, err := m.Logout(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, <-done, ErrUnauthorized)

	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, m.LoggedIn(), "a refresh answering after logout must not restore tokens")
}

func TestDo_CallerContextCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	m, _ := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		<-release
		return newPair, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Do(ctx, func(ctx context.Context, accessToken string) error {
			return ErrUnauthorized
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, m.LoggedIn(), "a caller giving up does not log the user out")
}

func TestSet_DropsRefreshStartedForPreviousPair(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var refreshCtx context.Context

	m, store := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		refreshCtx = ctx
		close(started)
		// answers even after cancellation
		<-release
		return newPair, nil
	}))

	done := make(chan error, 1)
	go func() {
		done <- m.Do(context.Background(), func(ctx context.Context, accessToken string) error {
			return ErrUnauthorized
		})
	}()

	<-started
	loginPair := Tokens{AccessToken: "access-3", RefreshToken: "refresh-3"}
	require.NoError(t, m.Set(context.Background(), loginPair))
	require.ErrorIs(t, <-done, ErrUnauthorized)
	assert.ErrorIs(t, refreshCtx.Err(), context.Canceled)

	close(release)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, loginPair, m.Tokens())
	persisted, _ := store.Load(context.Background())
	assert.Equal(t, loginPair, persisted)
}

func TestSet_NextFailureRefreshesNewPair(t *testing.T) {
	var seen []string
	m, _ := newTestManager(t, RefresherFunc(func(ctx context.Context, rt string) (Tokens, error) {
		seen = append(seen, rt)
		return newPair, nil
	}))
	require.NoError(t, m.Set(context.Background(), Tokens{AccessToken: "access-3", RefreshToken: "refresh-3"}))

	var calls []string
	var mu sync.Mutex
	require.NoError(t, m.Do(context.Background(), acceptOnly(newPair.AccessToken, &calls, &mu)))
	assert.Equal(t, []string{"refresh-3"}, seen)
	assert.Equal(t, []string{"access-3", "access-2"}, calls)
}
