package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("shipdesk/apiclient")

// Session supplies and renews the bearer token used by Client.
type Session interface {
	// Token returns the current token, or "" when logged out.
	Token() string
	// RefreshToken exchanges the current token for a new one.
	RefreshToken(ctx context.Context) (string, error)
	// Logout clears the session.
	Logout(ctx context.Context) error
}

// Client sends authorized API calls. A 401 outside /auth/ triggers one token
// refresh and one replay; if the refresh fails the session is logged out and
// the original 401 is returned.
type Client struct {
	transport *Transport
	session   Session
	logger    *zap.Logger
}

// NewClient creates a client sending through transport on behalf of session.
func NewClient(transport *Transport, session Session, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{transport: transport, session: session, logger: logger}
}

type state int

const (
	stateDispatch state = iota
	stateRefresh
	stateReplay
	stateLogout
	stateDone
)

// Do runs req through the dispatch, refresh, replay and logout states and
// decodes a 2xx body into out.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	ctx, span := tracer.Start(ctx, "apiclient.Do", trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	var (
		st        = stateDispatch
		err       error
		original  error
		sent      string
		refreshed bool
	)
	for st != stateDone {
		switch st {
		case stateDispatch:
			// the token is read here so a refresh by a concurrent call is observed
			sent = c.session.Token()
			err = c.transport.Send(ctx, req, sent, out)
			// without a token there is nothing to refresh
			if err != nil && IsUnauthorized(err) && sent != "" && refreshable(req.Path) {
				original = err
				st = stateRefresh
				continue
			}
			st = stateDone

		case stateRefresh:
			if next, ok := c.movedOn(sent); ok {
				if next == stateDone {
					err = original
				}
				st = next
				continue
			}
			c.logger.Info("apiclient: access token rejected, refreshing",
				zap.String("method", req.Method),
				zap.String("path", req.Path),
			)
			if _, rerr := c.session.RefreshToken(ctx); rerr != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = &NetworkError{Method: req.Method, Path: req.Path, Err: ctxErr}
					st = stateDone
					continue
				}
				if next, ok := c.movedOn(sent); ok {
					if next == stateDone {
						err = original
					}
					st = next
					continue
				}
				c.logger.Warn("apiclient: token refresh failed", zap.Error(rerr))
				st = stateLogout
				continue
			}
			refreshed = true
			st = stateReplay

		case stateReplay:
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = &NetworkError{Method: req.Method, Path: req.Path, Err: ctxErr}
				st = stateDone
				continue
			}
			err = c.transport.Send(ctx, req, c.session.Token(), out)
			st = stateDone

		case stateLogout:
			c.logger.Info("apiclient: logging out after failed refresh")
			if lerr := c.session.Logout(ctx); lerr != nil {
				c.logger.Warn("apiclient: logout failed", zap.Error(lerr))
			}
			err = original
			st = stateDone
		}
	}

	span.SetAttributes(attribute.Bool("shipdesk.token_refreshed", refreshed))
	if status := StatusCode(err); status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

// movedOn reports whether the session token changed since sent was
// dispatched, in which case the 401 says nothing about the current token.
// The next state replays with the newer token, or stops if the session is
// now logged out.
func (c *Client) movedOn(sent string) (state, bool) {
	switch current := c.session.Token(); {
	case current == sent:
		return stateRefresh, false
	case current == "":
		return stateDone, true
	default:
		return stateReplay, true
	}
}

// refreshable reports whether a 401 on path may be cured by a token refresh.
// Auth endpoints answer 401 for bad credentials or dead tokens, never for expiry.
func refreshable(path string) bool {
	return !strings.HasPrefix(path, "/auth/")
}
