// Package apiclient talks to the shipdesk REST API on behalf of a session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 64 << 10

// Request describes one API call. Body, when set, is sent as JSON.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Transport performs single HTTP exchanges against the API. It attaches the
// token it is given and nothing else: no refresh, no retry.
type Transport struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewTransport creates a transport with its own HTTP client and circuit breaker.
func NewTransport(baseURL string, timeout time.Duration, logger *zap.Logger) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewTransportWithClient(&http.Client{Timeout: timeout}, baseURL, NewCircuitBreaker("shipdesk-api"), logger)
}

// NewTransportWithClient allows injecting the HTTP client and breaker.
func NewTransportWithClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *Transport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		cb:         cb,
		logger:     logger,
	}
}

// NewCircuitBreaker creates a breaker that opens after five consecutive
// transport failures or 5xx responses. Client errors never count.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			if IsNetwork(err) {
				return false
			}
			return !IsServerError(err)
		},
	})
}

// credentialPaths never carry a bearer token.
var credentialPaths = map[string]bool{
	"/auth/login":    true,
	"/auth/register": true,
}

// Send performs req once. A non-empty token is sent as a bearer credential
// unless req targets login or register. A 2xx body is decoded into out when
// out is non-nil.
func (t *Transport) Send(ctx context.Context, req Request, token string, out any) error {
	_, err := t.cb.Execute(func() (any, error) {
		return nil, t.send(ctx, req, token, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	return err
}

func (t *Transport) send(ctx context.Context, req Request, token string, out any) error {
	httpReq, err := t.newRequest(ctx, req)
	if err != nil {
		return err
	}
	if token != "" && !credentialPaths[req.Path] {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.logger.Debug("apiclient: request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err),
		)
		return &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := decodeAPIError(req, resp.StatusCode, body)
		t.logger.Debug("apiclient: non-2xx response",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

func (t *Transport) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := t.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", req.Method, req.Path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// errorBody covers both {error, code} and {message} error payloads.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeAPIError(req Request, status int, body []byte) *APIError {
	apiErr := &APIError{Method: req.Method, Path: req.Path, Status: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Error
		if apiErr.Message == "" {
			apiErr.Message = eb.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
