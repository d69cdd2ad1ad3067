// Package etfcheck scrapes fund composition pages from etfcheck.co.kr.
package etfcheck

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gtoboy77/MoneyTrainer/internal/holdings"
	"github.com/gtoboy77/MoneyTrainer/internal/registry"
	"github.com/gtoboy77/MoneyTrainer/internal/session"
	"github.com/gtoboy77/MoneyTrainer/pkg/config"
	"github.com/gtoboy77/MoneyTrainer/pkg/httputil"
	"github.com/gtoboy77/MoneyTrainer/pkg/logger"
)

// site is the session login key
const site = "etfcheck"

// Client fetches etfcheck composition pages
// ⭐ SSOT: etfcheck 호출은 이 클라이언트에서만
type Client struct {
	logger   *logger.Logger
	baseURL  string
	loginURL string
	email    string
	password string
}

// NewClient creates a new etfcheck client
func NewClient(cfg config.ETFCheckConfig, log *logger.Logger) *Client {
	return &Client{
		logger:   log,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		loginURL: cfg.LoginURL,
		email:    cfg.Email,
		password: cfg.Password,
	}
}

// Factory builds browser-page adapters from registry entries
func (c *Client) Factory() registry.AdapterFactory {
	return func(spec registry.SourceSpec) (registry.Adapter, error) {
		pageURL := spec.Param("url", "")
		if pageURL == "" {
			return nil, fmt.Errorf("params.url required")
		}
		if strings.HasPrefix(pageURL, "/") {
			pageURL = c.baseURL + pageURL
		}
		if _, err := url.ParseRequestURI(pageURL); err != nil {
			return nil, fmt.Errorf("invalid params.url: %w", err)
		}

		return registry.AdapterFunc(func(ctx context.Context, sess *session.Session) (registry.FetchResult, error) {
			return c.FetchHoldings(ctx, sess, spec.ID, pageURL)
		}), nil
	}
}

// FetchHoldings logs in once per session, then parses the composition table of pageURL
func (c *Client) FetchHoldings(ctx context.Context, sess *session.Session, sourceID, pageURL string) (registry.FetchResult, error) {
	if c.email != "" && c.password != "" {
		// 로그인 실패는 비회원으로 계속 진행
		_ = sess.EnsureLogin(ctx, site, c.login)
	}
	c.logger.WithSource(sourceID).WithField("member", sess.LoggedIn(site)).Debug("Fetching compose page")

	resp, err := sess.Client().Get(ctx, pageURL)
	if err != nil {
		return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "fetch page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "fetch page",
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	rows, title, err := ParsePage(resp.Body)
	if err != nil {
		return registry.FetchResult{}, holdings.NewSourceFetchError(sourceID, "parse page", err)
	}

	c.logger.WithSource(sourceID).WithFields(map[string]interface{}{
		"rows":  len(rows),
		"title": title,
	}).Debug("etfcheck page parsed")

	return registry.FetchResult{Rows: rows, PageTitle: title}, nil
}

// login posts the opaque credentials; cookies land in the session jar
func (c *Client) login(ctx context.Context, client *httputil.Client) error {
	resp, err := client.PostForm(ctx, c.loginURL, url.Values{
		"email":    {c.email},
		"password": {c.password},
	})
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("login rejected with status %d", resp.StatusCode)
	}
	return nil
}
