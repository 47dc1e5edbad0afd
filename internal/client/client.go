// Package client provides thin HTTP clients for the downstream banking
// services. The savings client implements the ledger contract the deposit
// saga depends on; the time deposit client backs the mashup/BFF proxying.
//
// Both clients propagate two pieces of ambient request state:
//   - the caller's bearer token, carried on the context via WithToken, and
//   - the idempotency key, passed explicitly per call and only sent on the
//     wire when non-empty.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HeaderIdempotencyKey is the header carrying the client-supplied dedup key.
const HeaderIdempotencyKey = "Idempotency-Key"

// defaultTimeout bounds a single downstream round trip.
const defaultTimeout = 10 * time.Second

type tokenKey struct{}

// WithToken returns a context carrying the caller's bearer token for
// propagation to downstream services.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom extracts the bearer token stored by WithToken, or "" when the
// request is unauthenticated.
func TokenFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

// StatusError reports a downstream response that did not map to a known
// domain condition. The owning handler surfaces it as a 502.
type StatusError struct {
	// Service names the downstream ("savings", "timedeposit").
	Service string
	// Status is the HTTP status the downstream answered with.
	Status int
	// Code is the stable machine-readable code from the error envelope,
	// when one was present.
	Code string
	// Message is the human-readable description from the error envelope.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: status %d (%s: %s)", e.Service, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Service, e.Status)
}

// errorEnvelope mirrors the standard error body every service responds with.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// doJSON performs one round trip: marshals body (when non-nil), attaches the
// bearer token from ctx and the idempotency key (when non-empty), and decodes
// a 2xx response into out (when non-nil). Non-2xx responses are returned as a
// *StatusError carrying the decoded envelope; callers map the statuses they
// recognize onto domain sentinels.
func doJSON(ctx context.Context, hc *http.Client, service, method, url string, body, out any, idempotencyKey string) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", service, err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", service, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := TokenFrom(ctx); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env)
		return &StatusError{Service: service, Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", service, err)
		}
	}
	return nil
}
