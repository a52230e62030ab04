package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	mu       sync.Mutex
	token    string
	refresh  func(ctx context.Context) (string, error)
	refreshN int
	logoutN  int
}

func (s *fakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) RefreshToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.refreshN++
	s.mu.Unlock()
	tok, err := s.refresh(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
	return tok, nil
}

func (s *fakeSession) Logout(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutN++
	s.token = ""
	return nil
}

type recorded struct {
	mu    sync.Mutex
	auths []string
}

func (r *recorded) add(auth string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auths = append(r.auths, auth)
}

func (r *recorded) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.auths...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newServer answers 200 {"ok":true} to Bearer good and 401 to anything else on /things.
func newServer(t *testing.T, rec *recorded) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/things", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired", "code": "UNAUTHORIZED"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid email or password", "code": "INVALID_CREDENTIALS"})
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "no such thing"})
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error", "code": "INTERNAL_ERROR"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server, session Session) *Client {
	return NewClient(NewTransport(srv.URL, 0, zap.NewNop()), session, zap.NewNop())
}

func TestClient_AttachesCurrentToken(t *testing.T) {
	rec := &recorded{}
	session := &fakeSession{token: "good"}
	c := newTestClient(newServer(t, rec), session)

	var out map[string]bool
	require.NoError(t, c.Get(context.Background(), "/things", nil, &out))
	assert.True(t, out["ok"])
	assert.Equal(t, []string{"Bearer good"}, rec.all())
	assert.Zero(t, session.refreshN)
}

func TestClient_RefreshesAndReplaysOnce(t *testing.T) {
	rec := &recorded{}
	session := &fakeSession{token: "stale", refresh: func(context.Context) (string, error) { return "good", nil }}
	c := newTestClient(newServer(t, rec), session)

	var out map[string]bool
	require.NoError(t, c.Get(context.Background(), "/things", nil, &out))
	assert.True(t, out["ok"], "the caller sees the replayed response")
	assert.Equal(t, []string{"Bearer stale", "Bearer good"}, rec.all())
	assert.Equal(t, 1, session.refreshN)
	assert.Zero(t, session.logoutN)
}

func TestClient_ReplayOutcomeIsReturnedAsIs(t *testing.T) {
	rec := &recorded{}
	session := &fakeSession{token: "stale", refresh: func(context.Context) (string, error) { return "still-bad", nil }}
	c := newTestClient(newServer(t, rec), session)

	err := c.Get(context.Background(), "/things", nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, []string{"Bearer stale", "Bearer still-bad"}, rec.all(), "never more than one replay")
	assert.Equal(t, 1, session.refreshN)
	assert.Zero(t, session.logoutN)
}

func TestClient_RefreshFailureLogsOutWithOriginalError(t *testing.T) {
	rec := &recorded{}
	refreshErr := &APIError{Method: http.MethodGet, Path: "/auth/refresh", Status: http.StatusUnauthorized, Message: "refresh rejected"}
	session := &fakeSession{token: "stale", refresh: func(context.Context) (string, error) { return "", refreshErr }}
	c := newTestClient(newServer(t, rec), session)

	err := c.Get(context.Background(), "/things", nil, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "/things", apiErr.Path, "the original 401 is returned, not the refresh error")
	assert.Equal(t, "token expired", apiErr.Message)
	assert.Equal(t, 1, session.logoutN)
	assert.Empty(t, session.Token())
	assert.Len(t, rec.all(), 1)
}

func TestClient_AuthPathsNeverRefresh(t *testing.T) {
	rec := &recorded{}
	session := &fakeSession{token: "stale", refresh: func(context.Context) (string, error) {
		t.Fatal("refresh must not be called")
		return "", nil
	}}
	c := newTestClient(newServer(t, rec), session)

	err := c.Get(context.Background(), "/auth/me", nil, nil)
	assert.True(t, IsUnauthorized(err))

	err = c.Post(context.Background(), "/auth/login", map[string]string{"email": "a@b.c", "password": "x"}, nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "invalid email or password", Message(err))

	assert.Equal(t, []string{"Bearer stale", ""}, rec.all(), "login never carries a bearer token")
	assert.Zero(t, session.logoutN)
}

func TestClient_CancelledRefreshDoesNotReplay(t *testing.T) {
	rec := &recorded{}
	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{token: "stale", refresh: func(ctx context.Context) (string, error) {
		cancel()
		return "", ctx.Err()
	}}
	c := newTestClient(newServer(t, rec), session)

	err := c.Get(ctx, "/things", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, rec.all(), 1)
	assert.Zero(t, session.logoutN, "a cancelled refresh is not a failed refresh")
}

func TestClient_ErrorClassification(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, rec)
	c := newTestClient(srv, &fakeSession{token: "good"})

	err := c.Get(context.Background(), "/missing", nil, nil)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "no such thing", Message(err))

	err = c.Get(context.Background(), "/broken", nil, nil)
	assert.True(t, IsServerError(err))
	assert.False(t, IsNetwork(err))

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	err = newTestClient(dead, &fakeSession{}).Get(context.Background(), "/things", nil, nil)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, "the server could not be reached", Message(err))
}

func TestTransport_BreakerOpensOnServerErrors(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, rec)
	c := newTestClient(srv, &fakeSession{token: "good"})

	for i := 0; i < 5; i++ {
		assert.True(t, IsServerError(c.Get(context.Background(), "/broken", nil, nil)))
	}
	err := c.Get(context.Background(), "/broken", nil, nil)
	assert.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, rec.all(), 5, "an open breaker does not reach the server")
}

func TestTransport_ClientErrorsDoNotTripBreaker(t *testing.T) {
	rec := &recorded{}
	srv := newServer(t, rec)
	c := newTestClient(srv, &fakeSession{token: "good"})

	for i := 0; i < 8; i++ {
		assert.True(t, IsNotFound(c.Get(context.Background(), "/missing", nil, nil)))
	}
	var out map[string]bool
	assert.NoError(t, c.Get(context.Background(), "/things", nil, &out))
}

func TestClient_ReplaysWithoutRefreshWhenTokenAlreadyRotated(t *testing.T) {
	session := &fakeSession{token: "stale", refresh: func(context.Context) (string, error) {
		t.Fatal("refresh must not be called")
		return "", nil
	}}
	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer good" {
			// another call finished a refresh while this one was in flight
			session.mu.Lock()
			session.token = "good"
			session.mu.Unlock()
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}))
	t.Cleanup(srv.Close)

	var out map[string]bool
	require.NoError(t, newTestClient(srv, session).Get(context.Background(), "/things", nil, &out))
	assert.True(t, out["ok"])
	assert.Equal(t, []string{"Bearer stale", "Bearer good"}, auths)
	assert.Zero(t, session.refreshN)
	assert.Zero(t, session.logoutN)
}

func TestClient_LoggedOutCallSendsNoTokenAndNeverRefreshes(t *testing.T) {
	rec := &recorded{}
	session := &fakeSession{refresh: func(context.Context) (string, error) {
		t.Fatal("refresh must not be called")
		return "", nil
	}}
	c := newTestClient(newServer(t, rec), session)

	err := c.Get(context.Background(), "/things", nil, nil)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, []string{""}, rec.all())
	assert.Zero(t, session.logoutN)
}
