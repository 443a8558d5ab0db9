// Package datagolf is a small scraping client for the Data Golf site. Pages
// embed their data as JSON literals in inline scripts; the client fetches a
// page, cuts out the named literals and decodes them.
package datagolf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pable/pgaweekly/internal/logging"
	"github.com/pable/pgaweekly/internal/resilience"
)

const (
	DefaultBaseURL   = "https://datagolf.com"
	DefaultUserAgent = "pgaweekly/1.0 (+weekly results sync)"

	maxBodyBytes = 8 << 20
)

// ErrClosed is returned by requests made after Close.
var ErrClosed = errors.New("datagolf session closed")

// Config configures a Client. Zero values get defaults.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RPS        float64 // requests per second; <= 0 disables the limiter
	UserAgent  string
	Circuit    resilience.Config
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is one scraping session. It is safe for sequential use; the player
// index is loaded once per session.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
	log       *zap.Logger

	indexMu sync.Mutex
	index   []indexEntry

	closed    atomic.Bool
	closeOnce sync.Once
}

// NewClient opens a scraping session.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}

	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		userAgent: ua,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   resilience.New(cfg.Circuit),
		log:       logging.OrNop(cfg.Logger),
	}
}

// Close releases idle connections. Further requests fail with ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.http.CloseIdleConnections()
	})
	return nil
}

// page fetches path and returns its embedded literals.
func (c *Client) page(ctx context.Context, path string) (embedded, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return parseEmbedded(bytes.NewReader(body))
}

// get performs a rate-limited GET through the circuit breaker. Transport
// errors, 429 and 5xx count as dependency failures; other non-2xx statuses
// are returned as errors without tripping the breaker.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		body   []byte
		status int
	)
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return errors.Wrap(err, "build request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := c.http.Do(req)
		if err != nil {
			return errors.Wrapf(err, "GET %s", path)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if status == http.StatusTooManyRequests || status >= 500 {
			return errors.Newf("GET %s: HTTP %d", path, status)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.log.Warn("datagolf circuit open, request rejected", zap.String("path", path))
		}
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, errors.Newf("GET %s: HTTP %d", path, status)
	}
	return body, nil
}

func eventPath(eventID, year int) string {
	return fmt.Sprintf("/past-results/pga-tour/%d/%d", eventID, year)
}
