// Package client talks to the FlashPrint HTTP API. It implements
// identity.Provider and identity.RoleChecker so an identity.Context can run
// on top of it.
package client

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
	"sync"
	"time"

	"github.com/CANDRY15/flashprint/identity"
)

var (
	_ identity.Provider    = (*Client)(nil)
	_ identity.RoleChecker = (*Client)(nil)
)

// APIError is a non-2xx answer of the API
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client

	mu        sync.Mutex
	session   *identity.Session
	listeners map[int]identity.Listener
	nextID    int
}

// Option configures a Client
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithSession restores a session saved by a previous run
func WithSession(s *identity.Session) Option {
	return func(c *Client) {
		c.session = s
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 60 * time.Second},
		listeners: make(map[int]identity.Listener),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns a copy of the current session, or nil
func (c *Client) Session() *identity.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) setSession(s *identity.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) accessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// OnAuthStateChange registers l for every session change made by this client
func (c *Client) OnAuthStateChange(l identity.Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) emit(event identity.Event, s *identity.Session) {
	c.mu.Lock()
	listeners := make([]identity.Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		var copied *identity.Session
		if s != nil {
			sc := *s
			copied = &sc
		}
		l(event, copied)
	}
}

// request builds and sends one call. A nil out discards the data field.
func (c *Client) request(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.accessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.request(ctx, method, path, body, contentType, out)
}

func decode(resp *http.Response, out interface{}) error {
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

type sessionPayload struct {
	Session identity.Session `json:"session"`
	IsAdmin bool             `json:"is_admin"`
	Event   identity.Event   `json:"event"`
}

// SignInWithPassword opens a session and emits SIGNED_IN
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	var out sessionPayload
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}

	s := out.Session
	c.setSession(&s)
	c.emit(identity.EventSignedIn, &s)
	return c.Session(), nil
}

// SignUp registers an account. The server mails the confirmation link.
func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":       email,
		"password":    password,
		"redirect_to": redirectTo,
	}, nil)
}

// SignOut revokes the access token and emits SIGNED_OUT. The local session
// is dropped even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if c.accessToken() == "" {
		return identity.ErrNotSignedIn
	}

	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/signout", nil, nil)
	c.setSession(nil)
	c.emit(identity.EventSignedOut, nil)
	if err != nil && !IsStatus(err, http.StatusUnauthorized) {
		return err
	}
	return nil
}

// Refresh trades the refresh token for a new pair and emits TOKEN_REFRESHED
func (c *Client) Refresh(ctx context.Context) (*identity.Session, error) {
	current := c.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, identity.ErrNotSignedIn
	}

	var out sessionPayload
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": current.RefreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}

	s := out.Session
	c.setSession(&s)
	c.emit(identity.EventTokenRefreshed, &s)
	return c.Session(), nil
}

// GetSession checks the stored session against the server. An expired
// access token is refreshed once; a session the server rejects is dropped
// and reported as nil.
func (c *Client) GetSession(ctx context.Context) (*identity.Session, error) {
	if c.Session() == nil {
		return nil, nil
	}

	err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/session", nil, nil)
	if err == nil {
		return c.Session(), nil
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		return nil, err
	}

	s, err := c.Refresh(ctx)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			c.setSession(nil)
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// HasRole asks the server about the signed-in user. The API only answers
// for the bearer of the token, so any other id is not an admin.
func (c *Client) HasRole(ctx context.Context, userID uint, role string) (bool, error) {
	s := c.Session()
	if s == nil {
		return false, identity.ErrNotSignedIn
	}
	if s.User.ID != userID {
		return false, nil
	}

	var out struct {
		HasRole bool `json:"has_role"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/auth/has-role?role="+url.QueryEscape(role), nil, &out)
	if err != nil {
		return false, err
	}
	return out.HasRole, nil
}

// Ping calls the health endpoint
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/ping", nil, nil)
}
