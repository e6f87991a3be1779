// Package credentials holds the client's access/refresh token pair and
// wraps outgoing calls with it.
//
// A call that fails with ErrUnauthorized triggers one refresh followed by
// one retry. Concurrent failures share a single in-flight refresh, and
// Logout cancels any refresh still running so queued callers fail instead
// of retrying with discarded tokens.
package credentials

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/hobbyvault/internal/logging"
)

// ErrUnauthorized marks a call the server rejected for missing or stale
// credentials. Call functions passed to Manager.Do report it with
// errors.Is semantics.
var ErrUnauthorized = errors.New("unauthorized")

// Tokens is the pair issued by signup, login or refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
}

func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Refresher performs the refresh exchange against the server.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Tokens, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (Tokens, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	return f(ctx, refreshToken)
}

// Manager is safe for concurrent use.
type Manager struct {
	store     TokenStore
	refresher Refresher
	logger    logging.Logger

	group singleflight.Group

	mu     sync.Mutex
	tokens Tokens
	// gen changes on every logout or forced logout; work started under an
	// older generation must not touch the tokens.
	gen       uint64
	genCtx    context.Context
	genCancel context.CancelFunc
}

// NewManager loads any persisted pair from store.
func NewManager(ctx context.Context, store TokenStore, refresher Refresher, logger logging.Logger) (*Manager, error) {
	tokens, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		store:     store,
		refresher: refresher,
		logger:    logger.With("module", "credentials"),
		tokens:    tokens,
	}
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
	return m, nil
}

// Tokens returns the pair currently held.
func (m *Manager) Tokens() Tokens {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

func (m *Manager) LoggedIn() bool {
	return !m.Tokens().Empty()
}

// Set stores a freshly issued pair, e.g. after login. It starts a new
// generation, so a refresh still running for the previous pair is cancelled
// and its result dropped.
func (m *Manager) Set(ctx context.Context, t Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextGenerationLocked()
	m.tokens = t
	return m.store.Save(ctx, t)
}

// Logout drops the held pair and cancels any refresh in flight. It returns
// the discarded pair so the caller can revoke it on the server.
func (m *Manager) Logout(ctx context.Context) (Tokens, error) {
	m.mu.Lock()
	old := m.tokens
	m.resetLocked()
	m.mu.Unlock()

	return old, m.store.Clear(ctx)
}

// resetLocked clears the pair and starts a new generation. m.mu must be held.
func (m *Manager) resetLocked() {
	m.tokens = Tokens{}
	m.nextGenerationLocked()
}

func (m *Manager) nextGenerationLocked() {
	m.gen++
	m.genCancel()
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
}

// Do runs call with the current access token. When call reports
// ErrUnauthorized, Do refreshes the pair once and retries call once with the
// new access token. The retry never refreshes again. If the refresh fails,
// the error from the first attempt is returned.
func (m *Manager) Do(ctx context.Context, call func(ctx context.Context, accessToken string) error) error {
	m.mu.Lock()
	used := m.tokens
	gen := m.gen
	m.mu.Unlock()

	err := call(ctx, used.AccessToken)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}

	next, rerr := m.refresh(ctx, used, gen)
	if rerr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	return call(ctx, next.AccessToken)
}

// refresh returns a pair newer than used. It joins an exchange already in
// flight for the same refresh token, and skips the exchange entirely when
// another caller has rotated the pair since used was read.
func (m *Manager) refresh(ctx context.Context, used Tokens, gen uint64) (Tokens, error) {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return Tokens{}, ErrUnauthorized
	}
	current := m.tokens
	genCtx := m.genCtx
	if current.AccessToken != used.AccessToken && current.AccessToken != "" {
		m.mu.Unlock()
		return current, nil
	}
	if current.RefreshToken == "" {
		// Nothing to exchange: the rejected access token is dead weight.
		held := !current.Empty()
		if held {
			m.resetLocked()
		}
		m.mu.Unlock()
		if held {
			m.clearStore(ctx)
		}
		return Tokens{}, ErrUnauthorized
	}
	m.mu.Unlock()

	ch := m.group.DoChan(current.RefreshToken, func() (any, error) {
		return m.exchange(genCtx, gen, current.RefreshToken)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Tokens{}, res.Err
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.gen != gen {
			return Tokens{}, ErrUnauthorized
		}
		return res.Val.(Tokens), nil
	case <-genCtx.Done():
		return Tokens{}, ErrUnauthorized
	case <-ctx.Done():
		return Tokens{}, ctx.Err()
	}
}

// exchange runs once per refresh token. It is bound to the generation
// context, not to any single caller, so one caller giving up does not abort
// the refresh for the others.
func (m *Manager) exchange(genCtx context.Context, gen uint64, refreshToken string) (Tokens, error) {
	// A previous flight for this token may have finished between the
	// caller's check and this flight starting.
	m.mu.Lock()
	current := m.tokens
	stale := m.gen != gen
	m.mu.Unlock()
	if stale {
		return Tokens{}, ErrUnauthorized
	}
	if current.RefreshToken != refreshToken && !current.Empty() {
		return current, nil
	}

	next, err := m.refresher.Refresh(genCtx, refreshToken)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return Tokens{}, ErrUnauthorized
	}

	if err != nil {
		m.logger.Warn(genCtx, "token refresh failed, clearing credentials", "error", err)
		m.resetLocked()
		m.clearStore(context.Background())
		return Tokens{}, err
	}

	m.tokens = next
	if serr := m.store.Save(genCtx, next); serr != nil {
		m.logger.Error(genCtx, "persist refreshed tokens", "error", serr)
	}
	return next, nil
}

func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error(ctx, "clear token store", "error", err)
	}
}
