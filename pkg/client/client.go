// Package client provides the groups API page fetcher with per-call timeouts,
// response classification and request metrics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/group-roster-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for page requests.
var (
	rosterRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_requests_total",
		Help: "Total group roster page requests by outcome",
	}, []string{"outcome"})

	rosterRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_request_duration_seconds",
		Help:    "Group roster page request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 15},
	})

	rosterErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_errors_total",
		Help: "Total group roster page errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public groups API.
	DefaultBaseURL = "https://groups.roblox.com"

	// DefaultPageSize is the number of members requested per page.
	DefaultPageSize = 100

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 15 * time.Second

	// MaxBodyExcerpt is the number of characters of an error body kept on a Failed outcome.
	MaxBodyExcerpt = 150
)

// ErrorClass represents a classification of a failed page request.
type ErrorClass string

const (
	// ErrorClassNetwork represents DNS, connection and timeout failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassRateLimit represents HTTP 429.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassForbidden represents HTTP 403 (private or hidden roster).
	ErrorClassForbidden ErrorClass = "forbidden"

	// ErrorClassClient represents other 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassDecode represents a success response whose body could not be parsed.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassCancelled represents a request abandoned because the caller's context ended.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// Client fetches single pages of a group's member listing.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the groups API, without trailing slash.
	BaseURL string

	// User-Agent header sent with every request.
	UserAgent string

	// Timeout bounds each page request.
	Timeout time.Duration

	// PageSize is sent as the limit query parameter.
	PageSize int

	// HTTPClient overrides the transport (optional).
	HTTPClient *http.Client
}

// DefaultConfig returns the configuration for the public groups API.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   DefaultTimeout,
		PageSize:  DefaultPageSize,
	}
}

// New creates a new groups API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		return nil, fmt.Errorf("page size must be between 1 and 100 (got %d)", cfg.PageSize)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     logging.NewLogger(logging.ComponentClient),
	}, nil
}

// PageURL builds the request URL for one page of a group's members.
func (c *Client) PageURL(groupID, cursor string) string {
	q := url.Values{}
	q.Set("sortOrder", "Asc")
	q.Set("limit", strconv.Itoa(c.config.PageSize))
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return fmt.Sprintf("%s/v1/groups/%s/users?%s", c.config.BaseURL, url.PathEscape(groupID), q.Encode())
}

// FetchPage performs exactly one request for one page and classifies the result.
// It never retries; the caller decides what to do with the outcome.
func (c *Client) FetchPage(ctx context.Context, groupID, cursor string) Outcome {
	startTime := time.Now()
	defer func() {
		rosterRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	outcome := c.fetch(ctx, groupID, cursor)

	rosterRequestsTotal.WithLabelValues(outcome.Kind.String()).Inc()
	if outcome.Kind != KindSuccess {
		rosterErrorsTotal.WithLabelValues(string(outcome.Class)).Inc()
	}

	c.logger.Debug().
		Str("group_id", groupID).
		Str("cursor", cursor).
		Str("outcome", outcome.Kind.String()).
		Int("status", outcome.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Page request finished")

	return outcome
}

func (c *Client) fetch(ctx context.Context, groupID, cursor string) Outcome {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.PageURL(groupID, cursor), nil)
	if err != nil {
		return failed(0, ErrorClassClient, "", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportFailure(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		drain(resp.Body)
		return Outcome{Kind: KindForbidden, StatusCode: resp.StatusCode, Class: ErrorClassForbidden}

	case resp.StatusCode == http.StatusTooManyRequests:
		drain(resp.Body)
		return Outcome{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassRateLimit,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*MaxBodyExcerpt))
		class := ErrorClassClient
		if resp.StatusCode >= 500 {
			class = ErrorClassServer
		}
		c.logger.Warn().
			Str("group_id", groupID).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Groups API request error")
		return failed(resp.StatusCode, class, Excerpt(string(body)), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// Connection dropped mid-body; the page was never delivered.
		return c.transportFailure(ctx, fmt.Errorf("read response body: %w", err))
	}

	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		c.logger.Warn().Err(err).Str("group_id", groupID).Msg("Failed to decode page")
		return failed(resp.StatusCode, ErrorClassDecode, Excerpt(string(body)), fmt.Errorf("decode page: %w", err))
	}

	next := ""
	if page.NextPageCursor != nil {
		next = *page.NextPageCursor
	}

	return Outcome{
		Kind:       KindSuccess,
		StatusCode: resp.StatusCode,
		Items:      page.Data,
		NextCursor: next,
	}
}

// transportFailure classifies an error raised before a complete response was read.
// Only the caller's own cancellation is terminal; everything else is a connectivity problem.
func (c *Client) transportFailure(ctx context.Context, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return failed(0, ErrorClassCancelled, "", ctxErr)
	}

	c.logger.Warn().Err(err).Msg("Groups API unreachable")
	return Outcome{Kind: KindRetryable, Class: ErrorClassNetwork, Err: err}
}

func failed(status int, class ErrorClass, body string, err error) Outcome {
	return Outcome{
		Kind:       KindFailed,
		StatusCode: status,
		Class:      class,
		Body:       body,
		Err:        err,
	}
}

// Excerpt returns at most MaxBodyExcerpt characters of s.
func Excerpt(s string) string {
	r := []rune(s)
	if len(r) <= MaxBodyExcerpt {
		return s
	}
	return string(r[:MaxBodyExcerpt])
}

// parseRetryAfter reads the delay-seconds form of Retry-After. HTTP dates are also accepted.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
