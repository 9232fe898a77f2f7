// File: internal/infra/adapters/marzban/client.go
package marzban

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"marzban-manager/internal/domain"
	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/domain/ports/adapter"
	"marzban-manager/internal/infra/logging"
	"marzban-manager/internal/infra/metrics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var _ adapter.PanelClient = (*Client)(nil)

// tokenSkew is how close to expiry a token may get before it is renewed.
const tokenSkew = 30 * time.Second

type Options struct {
	BaseURL            string
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool
	PageSize           int
	RateLimit          float64 // requests per second; 0 = unpaced
	Dev                bool

	// HTTPClient overrides the transport (tests). Timeout/TLS options are ignored when set.
	HTTPClient *http.Client
}

// Client talks to the panel admin API. Calls are sequential; the mutex only guards
// the cached token.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	log     *zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time // zero when the token carries no exp claim
}

func NewClient(opts Options, logger *zerolog.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: panel base url empty", domain.ErrInvalidArgument)
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid panel url: %w", err)
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("%w: panel username empty", domain.ErrInvalidArgument)
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.PageSize <= 0 {
		opts.PageSize = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}

	hc := opts.HTTPClient
	if hc == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureSkipVerify {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed panels
		}
		hc = &http.Client{Timeout: opts.Timeout, Transport: tr}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &Client{
		opts:    opts,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		log:     logger,
		now:     time.Now,
	}, nil
}

func (c *Client) Admin() string { return c.opts.Username }

// Authenticate exchanges the admin credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.opts.Username)
	form.Set("password", c.opts.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/api/admin/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.send(req, "admin.token", &out); err != nil {
		return fmt.Errorf("authenticate %s: %w", c.opts.Username, err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("authenticate %s: empty access token: %w", c.opts.Username, domain.ErrUnauthorized)
	}

	c.token = out.AccessToken
	c.expiresAt = tokenExpiry(out.AccessToken)
	c.log.Debug().
		Str("admin", c.opts.Username).
		Str("token", logging.Redact(out.AccessToken, c.opts.Dev)).
		Time("expires_at", c.expiresAt).
		Msg("panel session established")
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the token is
// only ever sent back to the panel that issued it.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stale := !c.expiresAt.IsZero() && c.now().Add(tokenSkew).After(c.expiresAt)
	if c.token == "" || stale {
		if stale {
			c.log.Debug().Str("admin", c.opts.Username).Msg("panel token near expiry, renewing")
		}
		if err := c.authenticateLocked(ctx); err != nil {
			return "", err
		}
	}
	return c.token, nil
}

type usersPage struct {
	Users []*model.PanelUser `json:"users"`
	Total int                `json:"total"`
}

// ListUsers fetches every user visible to the session, page by page.
func (c *Client) ListUsers(ctx context.Context, filter adapter.ListFilter) ([]*model.PanelUser, error) {
	var all []*model.PanelUser
	for offset := 0; ; {
		q := url.Values{}
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(c.opts.PageSize))
		if filter.Status != "" {
			q.Set("status", string(filter.Status))
		}
		if filter.Search != "" {
			q.Set("search", filter.Search)
		}
		if filter.Admin != "" {
			q.Set("admin", filter.Admin)
		}

		var page usersPage
		if err := c.do(ctx, "users.list", http.MethodGet, "/api/users?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Users...)
		offset += len(page.Users)

		c.log.Debug().Int("offset", offset).Int("total", page.Total).Msg("users page fetched")
		if len(page.Users) == 0 || len(page.Users) < c.opts.PageSize || (page.Total > 0 && offset >= page.Total) {
			break
		}
	}
	return all, nil
}

func (c *Client) ModifyUser(ctx context.Context, username string, mod adapter.UserModification) error {
	if username == "" {
		return fmt.Errorf("%w: empty username", domain.ErrInvalidArgument)
	}
	return c.do(ctx, "user.modify", http.MethodPut, "/api/user/"+url.PathEscape(username), mod, nil)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("%w: empty username", domain.ErrInvalidArgument)
	}
	return c.do(ctx, "user.delete", http.MethodDelete, "/api/user/"+url.PathEscape(username), nil, nil)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body any, out any) error {
	token, err := c.bearer(ctx)
	if err != nil {
		return err
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", endpoint, err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.send(req, endpoint, out)
}

// send paces, executes and decodes a request. Failures are returned as-is; there
// is no retry.
func (c *Client) send(req *http.Request, endpoint string, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObservePanelRequest(endpoint, 0, time.Since(start))
		return fmt.Errorf("panel %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.ObservePanelRequest(endpoint, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("panel %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(endpoint, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("panel %s: decode: %w", endpoint, err)
	}
	return nil
}

// IsUnauthorized reports whether err means the panel refused the credentials.
func IsUnauthorized(err error) bool { return errors.Is(err, domain.ErrUnauthorized) }
