// Package judge talks to the online-judge web interface: login, problem
// listing and per-student status pages.
package judge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultLoginURL is the judge's form login endpoint.
	DefaultLoginURL = "https://ex-oj.sejong.ac.kr/index.php/auth/authentication?returnURL="
	// DefaultLoginMarker must appear in the redirect target of a successful login.
	DefaultLoginMarker = "index.php/judge"
)

// Session is a cookie-carrying client for one judge account. It is not safe
// for concurrent use.
type Session struct {
	client      *http.Client
	loginURL    string
	loginMarker string
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithLoginURL overrides the login endpoint.
func WithLoginURL(u string) SessionOption {
	return func(s *Session) {
		if u != "" {
			s.loginURL = u
		}
	}
}

// WithLoginMarker overrides the expected login redirect fragment.
func WithLoginMarker(marker string) SessionOption {
	return func(s *Session) {
		if marker != "" {
			s.loginMarker = marker
		}
	}
}

// WithTimeout sets the per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		s.client.Timeout = d
	}
}

// NewSession returns an unauthenticated session.
func NewSession(opts ...SessionOption) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	s := &Session{
		client:      &http.Client{Jar: jar},
		loginURL:    DefaultLoginURL,
		loginMarker: DefaultLoginMarker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login posts the credentials. Success is a 303 redirect into the judge.
func (s *Session) Login(ctx context.Context, id, password string) error {
	form := url.Values{}
	form.Set("id", id)
	form.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	noRedirect := *s.client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noRedirect.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	location := resp.Header.Get("Location")
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(location, s.loginMarker) {
		return &AuthError{Status: resp.StatusCode, Location: location}
	}
	return nil
}

// Get fetches a page and returns its body. Status codes >= 400 are errors.
func (s *Session) Get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
