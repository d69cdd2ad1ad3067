// Package session holds per-run browsing state shared by source adapters:
// one cookie jar and a login-once latch per site.
package session

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"sync"

	"golang.org/x/net/publicsuffix"

	"github.com/gtoboy77/MoneyTrainer/pkg/httputil"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// LoginFunc performs a site login using the session's cookie-carrying client
type LoginFunc func(ctx context.Context, client *httputil.Client) error

// Session is created by the caller for one aggregation run and passed into
// every adapter call. It is safe for concurrent use.
type Session struct {
	client *httputil.Client
	logger *logger.Logger

	mu     sync.Mutex
	logins map[string]*loginState
}

type loginState struct {
	mu   sync.Mutex
	done bool
	err  error
}

// New creates a session whose requests share a fresh cookie jar
func New(base *httputil.Client, log *logger.Logger) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Session{
		client: base.WithCookieJar(jar),
		logger: log,
		logins: make(map[string]*loginState),
	}, nil
}

// Client returns the HTTP client bound to this session's cookie jar
func (s *Session) Client() *httputil.Client {
	return s.client
}

// EnsureLogin runs login for site at most once per session. Concurrent
// callers wait for the first attempt and share its outcome; a failed login
// is not retried within the same session.
func (s *Session) EnsureLogin(ctx context.Context, site string, login LoginFunc) error {
	s.mu.Lock()
	state, ok := s.logins[site]
	if !ok {
		state = &loginState{}
		s.logins[site] = state
	}
	s.mu.Unlock()

	// 동시 호출자는 첫 시도의 결과를 공유
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.done {
		return state.err
	}

	state.err = login(ctx, s.client)
	state.done = true
	if state.err != nil {
		s.logger.WithField("site", site).WithError(state.err).Warn("Login failed")
		return state.err
	}
	s.logger.WithField("site", site).Info("Logged in")

	return nil
}

// LoggedIn reports whether a login for site succeeded in this session
func (s *Session) LoggedIn(site string) bool {
	s.mu.Lock()
	state, ok := s.logins[site]
	s.mu.Unlock()
	if !ok {
		return false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.done && state.err == nil
}
