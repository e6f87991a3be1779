package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/client/credentials"
	"github.com/dmitrijs2005/hobbyvault/internal/logging"
)

// HTTPClient implements Client over the JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	manager *credentials.Manager
	logger  logging.Logger
}

// NewHTTPClient restores any pair held in store. base may be nil for
// http.DefaultTransport.
func NewHTTPClient(ctx context.Context, baseURL string, store credentials.TokenStore, base http.RoundTripper, timeout time.Duration, logger logging.Logger) (*HTTPClient, error) {
	c := &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), logger: logger.With("module", "http_client")}

	m, err := credentials.NewManager(ctx, store, c, logger)
	if err != nil {
		return nil, err
	}
	c.manager = m
	c.http = &http.Client{
		Timeout:   timeout,
		Transport: &credentials.Transport{Manager: m, Base: base},
	}
	return c, nil
}

func (c *HTTPClient) Manager() *credentials.Manager { return c.manager }

// HTTP returns the client used for API calls. Collaborator endpoints under
// /api can be called with it and get the same refresh handling.
func (c *HTTPClient) HTTP() *http.Client { return c.http }

func (c *HTTPClient) Register(ctx context.Context, email, password string) (*User, error) {
	return c.session(ctx, "/api/auth/signup", email, password)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*User, error) {
	return c.session(ctx, "/api/auth/login", email, password)
}

func (c *HTTPClient) session(ctx context.Context, path, email, password string) (*User, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodPost, path, credentialsRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if err := c.manager.Set(ctx, credentials.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); err != nil {
		return nil, err
	}
	return &User{ID: resp.User.ID, Email: resp.User.Email}, nil
}

// Refresh performs the exchange; it is the manager's Refresher.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (credentials.Tokens, error) {
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return credentials.Tokens{}, err
	}
	return credentials.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (c *HTTPClient) WhoAmI(ctx context.Context) (*User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/api/me", nil, &resp); err != nil {
		return nil, err
	}
	return &User{ID: resp.ID, Email: resp.Email}, nil
}

// DeleteAccount removes the account on the server and drops local tokens.
func (c *HTTPClient) DeleteAccount(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/me", nil, nil); err != nil {
		return err
	}
	_, err := c.manager.Logout(ctx)
	return err
}

// Logout forgets the local pair first, then asks the server to revoke the
// refresh token. A failed revoke is logged, not returned.
func (c *HTTPClient) Logout(ctx context.Context) error {
	old, err := c.manager.Logout(ctx)
	if old.RefreshToken != "" {
		if rerr := c.do(ctx, http.MethodPost, "/api/auth/logout", refreshRequest{RefreshToken: old.RefreshToken}, nil); rerr != nil {
			c.logger.Warn(ctx, "server logout failed", "error", rerr)
		}
	}
	return err
}

func (c *HTTPClient) LoggedIn() bool { return c.manager.LoggedIn() }

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type sessionResponse struct {
	tokenResponse
	User userResponse `json:"user"`
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)
	return mapStatus(resp.StatusCode, eb)
}

func mapStatus(code int, eb errorBody) error {
	switch {
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusBadRequest:
		return &InputError{Fields: eb.Fields}
	case code == http.StatusServiceUnavailable, code == http.StatusBadGateway, code == http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return fmt.Errorf("server error: %d %s", code, eb.Error)
	}
}
