// Package session holds the operator's login state for the lifetime of the
// process and persists it between runs.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// TokenEnv seeds the token when no session file exists.
const TokenEnv = "ACCTDASH_TOKEN"

var ErrNotLoggedIn = errors.New("not logged in")

// Cookie is the persisted form of a session cookie.
type Cookie struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type Session struct {
	Email    string   `yaml:"email,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	LoggedIn bool     `yaml:"logged_in"`
	Cookies  []Cookie `yaml:"cookies,omitempty"`

	path string
}

// Load reads the session at path. A missing file yields an empty session,
// logged in only if TokenEnv is set.
func Load(path string) (*Session, error) {
	s := &Session{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if tok := os.Getenv(TokenEnv); tok != "" {
			s.Token = tok
			s.LoggedIn = true
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

// Path is where Save writes.
func (s *Session) Path() string { return s.path }

// Save writes the session with owner-only permissions.
func (s *Session) Save() error {
	if s.path == "" {
		return fmt.Errorf("session path is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// SetLogin records a successful login.
func (s *Session) SetLogin(email, token string, cookies []*http.Cookie) {
	s.Email = email
	s.Token = token
	s.LoggedIn = true
	s.Cookies = s.Cookies[:0]
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, Cookie{Name: c.Name, Value: c.Value})
	}
}

// HTTPCookies converts the stored cookies for the REST client.
func (s *Session) HTTPCookies() []*http.Cookie {
	if len(s.Cookies) == 0 {
		return nil
	}
	out := make([]*http.Cookie, len(s.Cookies))
	for i, c := range s.Cookies {
		out[i] = &http.Cookie{Name: c.Name, Value: c.Value}
	}
	return out
}

// Clear forgets the login and removes the session file.
func (s *Session) Clear() error {
	s.Email = ""
	s.Token = ""
	s.LoggedIn = false
	s.Cookies = nil

	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// RequireLogin returns ErrNotLoggedIn unless the session holds a login.
func (s *Session) RequireLogin() error {
	if s == nil || !s.LoggedIn {
		return ErrNotLoggedIn
	}
	return nil
}
