// Package api is the REST client for the trading-account backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rustyeddy/acctdash/broker"
	"github.com/rustyeddy/acctdash/internal/id"
)

// ErrValidation is returned before any network call when a request is
// missing required fields.
var ErrValidation = errors.New("validation failed")

// Error is a non-2xx answer from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

var _ broker.Backend = (*Client)(nil)

type Client struct {
	rc  *resty.Client
	log *slog.Logger
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.SetToken(token) }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.rc.SetTimeout(d) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithCookies seeds the cookie jar, for the session-cookie deployment.
func WithCookies(cookies []*http.Cookie) Option {
	return func(c *Client) { c.rc.SetCookies(cookies) }
}

// New returns a client for baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		rc: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(30*time.Second).
			SetHeader("Accept", "application/json"),
		log: slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetToken sets or clears the bearer token sent on every request.
func (c *Client) SetToken(token string) {
	if token == "" {
		c.rc.Token = ""
		c.rc.Header.Del("Authorization")
		return
	}
	c.rc.SetAuthToken(token)
}

func (c *Client) Token() string { return c.rc.Token }

// Cookies returns the cookies the backend set for its own origin.
func (c *Client) Cookies() []*http.Cookie {
	jar := c.rc.GetClient().Jar
	if jar == nil {
		return nil
	}
	u, err := url.Parse(c.rc.BaseURL)
	if err != nil {
		return nil
	}
	return jar.Cookies(u)
}

func (c *Client) ListAccounts(ctx context.Context) ([]broker.Account, error) {
	var out []broker.Account
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &out); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context, accountID string) (broker.Account, error) {
	if accountID == "" {
		return broker.Account{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	var out broker.Account
	if err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID), nil, &out); err != nil {
		return broker.Account{}, fmt.Errorf("get account %s: %w", accountID, err)
	}
	if out.ID == "" {
		out.ID = accountID
	}
	return out, nil
}

// ValidateCreate checks the fields POST /accounts requires.
func ValidateCreate(req broker.CreateAccountRequest) error {
	switch {
	case strings.TrimSpace(req.Login) == "":
		return fmt.Errorf("%w: login is required", ErrValidation)
	case strings.TrimSpace(req.Server) == "":
		return fmt.Errorf("%w: server is required", ErrValidation)
	case req.Password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return nil
}

func (c *Client) CreateAccount(ctx context.Context, req broker.CreateAccountRequest) (broker.Account, error) {
	if err := ValidateCreate(req); err != nil {
		return broker.Account{}, err
	}

	var out broker.Account
	if err := c.do(ctx, http.MethodPost, "/accounts", req, &out); err != nil {
		return broker.Account{}, fmt.Errorf("create account: %w", err)
	}
	return out, nil
}

func (c *Client) DeleteAccount(ctx context.Context, accountID string) error {
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if err := c.do(ctx, http.MethodDelete, "/accounts/"+url.PathEscape(accountID), nil, nil); err != nil {
		return fmt.Errorf("delete account %s: %w", accountID, err)
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"admin_email"`
	Password string `json:"admin_password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LoginResult carries whichever credential the deployment hands out: a bearer
// token, session cookies, or both.
type LoginResult struct {
	Token   string
	Cookies []*http.Cookie
}

// Login authenticates the operator. On success the token (if any) is
// installed on the client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if strings.TrimSpace(email) == "" {
		return LoginResult{}, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if password == "" {
		return LoginResult{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/login", loginRequest{Email: email, Password: password}, &out); err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	if out.Token != "" {
		c.SetToken(out.Token)
	}
	return LoginResult{Token: out.Token, Cookies: c.Cookies()}, nil
}

// Logout invalidates the session server side and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	c.SetToken("")
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

type verifyResponse struct {
	Authenticated bool `json:"authenticated"`
}

// Verify asks the backend whether the current session is valid. A 401 is
// reported as false rather than an error.
func (c *Client) Verify(ctx context.Context) (bool, error) {
	var out verifyResponse
	err := c.do(ctx, http.MethodGet, "/verify", nil, &out)
	if StatusOf(err) == http.StatusUnauthorized {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify: %w", err)
	}
	return out.Authenticated, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	reqID := id.New()
	req := c.rc.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", reqID)
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "request_id", reqID, "err", err)
		return err
	}
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode(),
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.IsError() || resp.StatusCode() >= 300 {
		return &Error{Status: resp.StatusCode(), Message: errorMessage(resp.Body())}
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMessage prefers the "error" field, then "message", then the raw body.
func errorMessage(b []byte) string {
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}
