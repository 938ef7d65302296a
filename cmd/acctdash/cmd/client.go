package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rustyeddy/acctdash/broker/api"
	"github.com/rustyeddy/acctdash/session"
)

func loadSession() (*session.Session, error) {
	s, err := session.Load(cfg.Session.Path)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// newClient builds a REST client carrying the session's credentials.
func newClient(s *session.Session) (*api.Client, error) {
	d, err := cfg.Durations()
	if err != nil {
		return nil, err
	}

	opts := []api.Option{
		api.WithTimeout(d.Timeout),
		api.WithLogger(slog.Default()),
	}
	if s != nil {
		if s.Token != "" {
			opts = append(opts, api.WithToken(s.Token))
		}
		if c := s.HTTPCookies(); len(c) > 0 {
			opts = append(opts, api.WithCookies(c))
		}
	}
	return api.New(cfg.Server.BaseURL, opts...), nil
}

// authedClient loads the session and fails with session.ErrNotLoggedIn
// when there is no login. A cookie session without a token is checked
// against the backend first, since the cookie may have expired.
func authedClient(ctx context.Context) (*session.Session, *api.Client, error) {
	s, err := loadSession()
	if err != nil {
		return nil, nil, err
	}
	if err := s.RequireLogin(); err != nil {
		return nil, nil, fmt.Errorf("%w: run 'acctdash login' first", err)
	}
	c, err := newClient(s)
	if err != nil {
		return nil, nil, err
	}

	if s.Token == "" && len(s.Cookies) > 0 {
		ok, err := c.Verify(ctx)
		if err != nil {
			return nil, nil, userError("verify session", err)
		}
		if !ok {
			slog.Info("session cookie rejected by backend", "email", s.Email)
			return nil, nil, fmt.Errorf("%w: session expired, run 'acctdash login' again", session.ErrNotLoggedIn)
		}
	}
	return s, c, nil
}

// userError turns backend rejections into the message the backend sent.
func userError(action string, err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", action, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", action, err)
}
