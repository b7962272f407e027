package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	skerrors "github.com/dsalearn/sessionkit/internal/errors"
	"github.com/dsalearn/sessionkit/internal/types"
)

// Per-attempt and retry bounds for provider calls. A slow provider must
// never hold up the caller longer than attempts x timeout.
const (
	AttemptTimeout = 10 * time.Second
	MaxAttempts    = 3
	baseBackoff    = 500 * time.Millisecond
)

// HTTPOracle talks to the identity provider over its JSON HTTP API.
type HTTPOracle struct {
	http        *http.Client
	baseURL     string
	events      chan types.AuthEvent
	backoffBase time.Duration
}

// NewHTTP constructs an HTTPOracle for the provider at baseURL.
func NewHTTP(baseURL string, httpClient *http.Client) *HTTPOracle {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: AttemptTimeout}
	}
	return &HTTPOracle{
		http:        httpClient,
		baseURL:     baseURL,
		events:      make(chan types.AuthEvent, 8),
		backoffBase: baseBackoff,
	}
}

// Login authenticates against the provider.
func (o *HTTPOracle) Login(ctx context.Context, email, password string) (*types.SessionRecord, error) {
	body, err := json.Marshal(types.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	var rec types.SessionRecord
	err = o.retry(ctx, "login", func(ctx context.Context) error {
		return o.doJSON(ctx, http.MethodPost, "/v1/auth/login", body, http.StatusOK, &rec)
	})
	if err != nil {
		return nil, err
	}
	if !rec.Valid() {
		return nil, skerrors.NewHTTPError(http.StatusOK, "", "login returned incomplete record")
	}
	return &rec, nil
}

// Logout invalidates the provider-side session.
func (o *HTTPOracle) Logout(ctx context.Context) error {
	return o.retry(ctx, "logout", func(ctx context.Context) error {
		return o.doJSON(ctx, http.MethodPost, "/v1/auth/logout", nil, http.StatusNoContent, nil)
	})
}

// GetCurrentUser fetches the provider's view of the current session.
// A 204 or 401 means "no session" and returns (nil, nil).
func (o *HTTPOracle) GetCurrentUser(ctx context.Context) (*types.SessionRecord, error) {
	var rec *types.SessionRecord
	err := o.retry(ctx, "get current user", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/auth/me", nil)
		if err != nil {
			return err
		}
		resp, err := o.http.Do(req)
		if err != nil {
			return skerrors.NewNetworkError("get current user", err)
		}
		defer func() { _ = resp.Body.Close() }()

		switch resp.StatusCode {
		case http.StatusOK:
			var r types.SessionRecord
			if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
				return skerrors.NewNetworkError("get current user", err)
			}
			if r.Valid() {
				rec = &r
			}
			return nil
		case http.StatusNoContent, http.StatusUnauthorized:
			rec = nil
			return nil
		default:
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return skerrors.NewHTTPError(resp.StatusCode, string(raw), "get current user")
		}
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateUser pushes a partial profile update to the provider.
func (o *HTTPOracle) UpdateUser(ctx context.Context, patch types.ProfilePatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	return o.retry(ctx, "update user", func(ctx context.Context) error {
		return o.doJSON(ctx, http.MethodPatch, "/v1/auth/me", body, http.StatusNoContent, nil)
	})
}

// AuthEvents implements Oracle.
func (o *HTTPOracle) AuthEvents() <-chan types.AuthEvent { return o.events }

// EmitAuthEvent injects a provider-initiated auth state change. The
// embedding application bridges the provider's push channel (websocket,
// SSE, token refresh failure) to this method. Drops the event rather than
// blocking when the engine is not draining.
func (o *HTTPOracle) EmitAuthEvent(ev types.AuthEvent) {
	select {
	case o.events <- ev:
	default:
	}
}

// doJSON performs one request attempt and decodes the response into out
// when wantStatus carries a body.
func (o *HTTPOracle) doJSON(ctx context.Context, method, path string, body []byte, wantStatus int, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return skerrors.NewNetworkError(fmt.Sprintf("%s %s", method, path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return skerrors.NewHTTPError(resp.StatusCode, string(raw), fmt.Sprintf("%s %s", method, path))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return skerrors.NewNetworkError(fmt.Sprintf("%s %s", method, path), err)
		}
	}
	return nil
}

// retry runs op up to MaxAttempts times with exponential backoff, bounding
// each attempt to AttemptTimeout. Irrecoverable errors (auth rejections,
// bad requests) fail immediately.
func (o *HTTPOracle) retry(ctx context.Context, operation string, op func(context.Context) error) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = o.backoffBase
	exp.Multiplier = 2

	attempt := func() error {
		actx, cancel := context.WithTimeout(ctx, AttemptTimeout)
		defer cancel()
		if err := op(actx); err != nil {
			if skerrors.IsIrrecoverable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}
	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(exp, MaxAttempts-1), ctx))
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}
