// Package session owns the console's authentication state: the access token,
// the user it belongs to, and its persisted copy.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"shipdesk/internal/apiclient"
	"shipdesk/internal/model"
)

// ErrNotAuthenticated is returned by operations that need a logged-in session.
var ErrNotAuthenticated = errors.New("session: not logged in")

// Snapshot is a point-in-time copy of the session state.
type Snapshot struct {
	Token string
	User  *model.User
}

// IsAuthenticated reports whether a user is known. A token alone does not count.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// Manager holds session state and talks to the auth endpoints. It satisfies
// apiclient.Session so an apiclient.Client can refresh through it.
type Manager struct {
	transport *apiclient.Transport
	store     TokenStore
	logger    *zap.Logger

	mu        sync.RWMutex
	token     string
	user      *model.User
	refreshes singleflight.Group

	hooksMu   sync.Mutex
	listeners []func(Snapshot)
	onLogout  []func()
}

var _ apiclient.Session = (*Manager)(nil)

// NewManager creates a logged-out manager. Call Restore to pick up a
// persisted token.
func NewManager(transport *apiclient.Transport, store TokenStore, logger *zap.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{transport: transport, store: store, logger: logger}
}

type loginResponse struct {
	AccessToken string      `json:"accessToken"`
	User        *model.User `json:"user"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login authenticates with email and password. Token and user are set
// together, and only once the token has been persisted.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.User, error) {
	var resp loginResponse
	err := m.transport.Send(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": email, "password": password},
	}, "", &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, errors.New("session: malformed login response")
	}
	m.mu.Lock()
	if err := m.store.Save(ctx, resp.AccessToken); err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("persist token: %w", err)
	}
	m.token = resp.AccessToken
	m.user = cloneUser(resp.User)
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
	m.logger.Info("session: logged in", zap.String("user_id", resp.User.ID.String()))
	return cloneUser(resp.User), nil
}

// Register creates an account. The session is left untouched; the user
// must verify their email and log in.
func (m *Manager) Register(ctx context.Context, name, email, password string) (string, error) {
	var resp messageResponse
	err := m.transport.Send(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Body:   map[string]string{"name": name, "email": email, "password": password},
	}, "", &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// VerifyEmail confirms an email address with the token from the verification link.
func (m *Manager) VerifyEmail(ctx context.Context, token string) (string, error) {
	var resp messageResponse
	err := m.transport.Send(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/auth/verify",
		Query:  url.Values{"token": {token}},
	}, "", &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Logout clears memory and storage, then runs the logout hooks. The
// in-memory state is cleared even when storage fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.token, m.user = "", nil
	err := m.store.Clear(ctx)
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
	if err != nil {
		err = fmt.Errorf("clear token: %w", err)
	}

	m.hooksMu.Lock()
	hooks := append([]func(){}, m.onLogout...)
	m.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return err
}

// RefreshToken exchanges the current token for a new one. Concurrent
// callers holding the same token share one refresh request. On failure the
// session is left as it was. If the session moved on while the request was
// in flight (a logout or a new login), the new token is discarded and
// ErrNotAuthenticated is returned.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	current := m.Token()
	if current == "" {
		return "", ErrNotAuthenticated
	}

	// the shared request outlives any single caller's cancellation
	ch := m.refreshes.DoChan(current, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx), current)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *Manager) refresh(ctx context.Context, current string) (string, error) {
	// a flight that finished just before this one already rotated current
	if latest := m.Token(); latest != current {
		if latest == "" {
			return "", ErrNotAuthenticated
		}
		return latest, nil
	}

	var resp tokenResponse
	err := m.transport.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: "/auth/refresh"}, current, &resp)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errors.New("session: malformed refresh response")
	}

	// held across Save so a concurrent Logout clears storage after us, never before
	m.mu.Lock()
	if m.token != current {
		m.mu.Unlock()
		m.logger.Debug("session: refreshed token discarded, session changed meanwhile")
		return "", ErrNotAuthenticated
	}
	m.token = resp.AccessToken
	if err := m.store.Save(ctx, resp.AccessToken); err != nil {
		// the server has revoked the old token, so memory moves on even if storage lags
		m.logger.Warn("session: persist refreshed token failed", zap.Error(err))
	}
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
	return resp.AccessToken, nil
}

// CurrentUser fetches the user the current token belongs to and replaces
// the cached user with it.
func (m *Manager) CurrentUser(ctx context.Context) (*model.User, error) {
	current := m.Token()
	if current == "" {
		return nil, ErrNotAuthenticated
	}

	var user model.User
	err := m.transport.Send(ctx, apiclient.Request{Method: http.MethodGet, Path: "/auth/me"}, current, &user)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.token != current {
		// a login or logout won the race; its user stands
		m.mu.Unlock()
		return cloneUser(&user), nil
	}
	m.user = cloneUser(&user)
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
	return cloneUser(&user), nil
}

// Restore rehydrates the session from storage. Any failure leaves the
// manager logged out with storage cleared; it is logged, not returned.
func (m *Manager) Restore(ctx context.Context) {
	token, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Debug("session: load persisted token failed", zap.Error(err))
		m.discard(ctx)
		return
	}
	if token == "" {
		return
	}

	m.set(token, nil)
	if _, err := m.CurrentUser(ctx); err != nil {
		m.logger.Debug("session: persisted token rejected", zap.Error(err))
		m.discard(ctx)
	}
}

// Require returns ErrNotAuthenticated unless a user is logged in.
func (m *Manager) Require() error {
	if !m.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Token returns the current access token, or "".
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().IsAuthenticated()
}

// Subscribe registers fn to receive every state change.
func (m *Manager) Subscribe(fn func(Snapshot)) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// OnLogout registers fn to run after every logout.
func (m *Manager) OnLogout(fn func()) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

func (m *Manager) discard(ctx context.Context) {
	m.set("", nil)
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Debug("session: clear persisted token failed", zap.Error(err))
	}
}

func (m *Manager) set(token string, user *model.User) {
	m.mu.Lock()
	m.token = token
	m.user = cloneUser(user)
	snap := m.snapshotLocked()
	m.mu.Unlock()
	m.notify(snap)
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{Token: m.token, User: cloneUser(m.user)}
}

// notify must be called without m.mu held.
func (m *Manager) notify(snap Snapshot) {
	m.hooksMu.Lock()
	listeners := append([]func(Snapshot){}, m.listeners...)
	m.hooksMu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	return &c
}
