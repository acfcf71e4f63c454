// Package client talks to the portal JSON API. It implements
// sessioncache.Validator so a local session cache can be reconciled
// against the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/member-portal/internal/errors"
	"github.com/jrsteele09/member-portal/sessioncache"
	"github.com/pkg/errors"
)

const (
	sessionsPath       = "/api/v1/sessions"
	currentSessionPath = "/api/v1/sessions/current"
	areasPath          = "/api/v1/areas/"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ sessioncache.Validator = (*Client)(nil)

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type sessionResponse struct {
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expires_at"`
	Identity  sessioncache.Attributes `json:"identity"`
}

type areaResponse struct {
	Area     string                  `json:"area"`
	Allowed  bool                    `json:"allowed"`
	Identity sessioncache.Attributes `json:"identity"`
}

// APIError is a non-success response. It unwraps to the matching error kind
// so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Code)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "invalid_credentials":
		return apperrors.ErrInvalidCredentials
	case "session_expired":
		return apperrors.ErrSessionExpired
	case "unauthorized_role":
		return apperrors.ErrUnauthorizedRole
	case "invalid_request", "unknown_area":
		return apperrors.ErrInvalidRequest
	case "rate_limited":
		return apperrors.ErrRateLimited
	default:
		return nil
	}
}

// Login issues a session and returns the envelope to cache.
func (c *Client) Login(ctx context.Context, identifier, secret string) (*sessioncache.Envelope, error) {
	body, err := json.Marshal(map[string]string{"identifier": identifier, "secret": secret})
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Login] encode")
	}

	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, sessionsPath, "", bytes.NewReader(body), http.StatusCreated, &resp); err != nil {
		return nil, err
	}
	return &sessioncache.Envelope{
		Token:       resp.Token,
		IdentityKey: resp.Identity.Identifier,
		ExpiresAt:   resp.ExpiresAt,
		Identity:    resp.Identity,
	}, nil
}

// Current returns the identity the server resolves token to.
func (c *Client) Current(ctx context.Context, token string) (*sessioncache.Attributes, time.Time, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodGet, currentSessionPath, token, nil, http.StatusOK, &resp); err != nil {
		return nil, time.Time{}, err
	}
	return &resp.Identity, resp.ExpiresAt, nil
}

// Validate reports whether the server accepts token. Transport failures and
// unexpected responses count as invalid.
func (c *Client) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, _, err := c.Current(ctx, token)
	return err == nil
}

// Logout ends the session. The server treats unknown tokens as already
// logged out.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, currentSessionPath, token, nil, http.StatusNoContent, nil)
}

// Enter asks the server to admit token to area. On ErrUnauthorizedRole the
// server has already logged the session out.
func (c *Client) Enter(ctx context.Context, token, area string) (*sessioncache.Attributes, error) {
	var resp areaResponse
	if err := c.do(ctx, http.MethodGet, areasPath+url.PathEscape(area), token, nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return &resp.Identity, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "[Client] %s %s", method, path)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[Client] %s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr); err != nil {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "[Client] %s %s decode", method, path)
	}
	return nil
}
