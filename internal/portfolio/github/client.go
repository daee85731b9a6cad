package github

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

	"github.com/google/go-github/v75/github"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxAttempts bounds attempts per request, the first one included.
	DefaultMaxAttempts = 3
	// DefaultInitialBackoff is the delay after the first transient failure; it doubles per attempt.
	DefaultInitialBackoff = 1000 * time.Millisecond

	userAgent = "portfoliosync"
	mediaType = "application/vnd.github+json"
)

// NewGitHubLimiter returns a limiter holding the hourly GitHub quota for
// authenticated or unauthenticated usage. The whole quota is available as
// burst so the limiter never throttles below what GitHub allows.
func NewGitHubLimiter(authenticated bool) *rate.Limiter {
	if authenticated {
		slog.Debug("Created authenticated GitHub rate limiter", "rate", "5000 requests/hour", "burst", 5000)
		return rate.NewLimiter(rate.Every(time.Hour/5000), 5000)
	}
	slog.Debug("Created unauthenticated GitHub rate limiter", "rate", "60 requests/hour", "burst", 60)
	return rate.NewLimiter(rate.Every(time.Hour/60), 60)
}

// Client performs GitHub API requests with conditional requests, retries
// and rate limit detection.
type Client struct {
	c     *github.Client
	l     *rate.Limiter
	r     retrier
	token bool
}

// ClientOptions configures the GitHub client.
type ClientOptions struct {
	token        string
	limiter      *rate.Limiter
	baseURL      string
	httpClient   *http.Client
	maxAttempts  int
	initialDelay time.Duration
	sleep        SleepFunc
}

// ClientOption applies a configuration to ClientOptions.
type ClientOption func(*ClientOptions)

// WithToken sets the personal access token sent as a bearer credential.
func WithToken(token string) ClientOption {
	return func(o *ClientOptions) { o.token = token }
}

// WithLimiter sets the quota checked before every attempt. An attempt the
// limiter cannot grant right away fails with a RateLimitedError instead of
// waiting.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(o *ClientOptions) { o.limiter = l }
}

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(u string) ClientOption {
	return func(o *ClientOptions) { o.baseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *ClientOptions) { o.httpClient = c }
}

// WithRetry sets the attempt ceiling and the first backoff delay.
func WithRetry(maxAttempts int, initialDelay time.Duration) ClientOption {
	return func(o *ClientOptions) {
		o.maxAttempts = maxAttempts
		o.initialDelay = initialDelay
	}
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(fn SleepFunc) ClientOption {
	return func(o *ClientOptions) { o.sleep = fn }
}

// NewClient constructs a GitHub Client with the given options.
func NewClient(opts ...ClientOption) (*Client, error) {
	o := ClientOptions{
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialBackoff,
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		}
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}

	gc := github.NewClient(o.httpClient)
	gc.UserAgent = userAgent
	if o.baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", o.baseURL, err)
		}
		gc.BaseURL = u
	}
	if o.token != "" {
		slog.Info("Using authenticated GitHub client")
		gc = gc.WithAuthToken(o.token)
	} else {
		slog.Warn("Using unauthenticated GitHub client (rate limited)")
	}

	return &Client{
		c:     gc,
		l:     o.limiter,
		r:     retrier{maxAttempts: o.maxAttempts, initialDelay: o.initialDelay, sleep: o.sleep},
		token: o.token != "",
	}, nil
}

// Authenticated reports whether requests carry a bearer credential.
func (c *Client) Authenticated() bool { return c.token }

// Result describes a completed request.
type Result struct {
	// NotModified is set when the server answered 304 to a conditional
	// request; nothing was decoded and cached data must be reused.
	NotModified bool
	// ETag is the conditional request token for the next run.
	ETag       string
	StatusCode int
}

// Fetch GETs path, relative to the API root, decoding a successful JSON
// payload into v. A non-empty etag is sent as If-None-Match.
func (c *Client) Fetch(ctx context.Context, path, etag string, v any) (*Result, error) {
	return c.do(ctx, http.MethodGet, path, nil, etag, v)
}

// Query POSTs a GraphQL document and decodes the response envelope into v.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, v any) (*Result, error) {
	body := map[string]any{"query": query, "variables": variables}
	return c.do(ctx, http.MethodPost, "graphql", body, "", v)
}

func (c *Client) do(ctx context.Context, method, path string, body any, etag string, v any) (*Result, error) {
	var res *Result
	err := c.r.do(ctx, func(attempt int) error {
		if err := c.reserve(); err != nil {
			slog.DebugContext(ctx, "GitHub request refused locally", "method", method, "path", path, "error", err)
			return err
		}
		req, err := c.c.NewRequest(method, path, body)
		if err != nil {
			return fmt.Errorf("failed to build request for %s: %w", path, err)
		}
		req.Header.Set("Accept", mediaType)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		resp, err := c.c.Do(ctx, req, v)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r, cerr := classify(path, resp, err)
		if cerr != nil {
			slog.DebugContext(ctx, "GitHub request failed", "method", method, "path", path, "attempt", attempt, "error", cerr)
			return cerr
		}
		slog.DebugContext(ctx, "GitHub request", "method", method, "path", path, "status", r.StatusCode, "attempt", attempt)
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// reserve takes one request from the limiter, if any, without blocking.
func (c *Client) reserve() error {
	if c.l == nil {
		return nil
	}
	r := c.l.Reserve()
	if !r.OK() {
		return &RateLimitedError{Reset: time.Now(), Err: ErrQuotaExhausted}
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return &RateLimitedError{Reset: time.Now().Add(d), Err: ErrQuotaExhausted}
	}
	return nil
}

// classify maps a go-github outcome onto a Result or one of the error kinds.
func classify(path string, resp *github.Response, err error) (*Result, error) {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return nil, &RateLimitedError{Reset: rle.Rate.Reset.Time, Err: err}
	}
	var are *github.AbuseRateLimitError
	if errors.As(err, &are) {
		reset := time.Now()
		if are.RetryAfter != nil {
			reset = reset.Add(*are.RetryAfter)
		}
		return nil, &RateLimitedError{Reset: reset, Err: err}
	}
	if resp == nil || resp.Response == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return nil, &TransientError{Err: fmt.Errorf("%s: %w", path, err)}
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusNotModified:
		return &Result{NotModified: true, ETag: resp.Header.Get("ETag"), StatusCode: status}, nil
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	case err == nil:
		return &Result{ETag: resp.Header.Get("ETag"), StatusCode: status}, nil
	case status >= 200 && status < 300 && !isAccepted(err):
		return nil, fmt.Errorf("%s: %w: %v", path, ErrDecode, err)
	default:
		return nil, &TransientError{StatusCode: status, Err: fmt.Errorf("%s: %w", path, err)}
	}
}

func isAccepted(err error) bool {
	var ae *github.AcceptedError
	return errors.As(err, &ae)
}

func repoPath(owner, repo string, rest ...string) string {
	p := "repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

// GetRepository fetches the raw repository metadata, conditionally on etag.
// On 304 the returned payload is nil.
func (c *Client) GetRepository(ctx context.Context, owner, repo, etag string) (json.RawMessage, *Result, error) {
	var raw json.RawMessage
	res, err := c.Fetch(ctx, repoPath(owner, repo), etag, &raw)
	if err != nil {
		return nil, nil, err
	}
	if res.NotModified {
		return nil, res, nil
	}
	return raw, res, nil
}

// GetTopics returns the repository topics.
func (c *Client) GetTopics(ctx context.Context, owner, repo string) ([]string, error) {
	var topics struct {
		Names []string `json:"names"`
	}
	if _, err := c.Fetch(ctx, repoPath(owner, repo, "topics"), "", &topics); err != nil {
		return nil, err
	}
	return topics.Names, nil
}

// GetReadme retrieves and decodes the preferred README of the repository.
func (c *Client) GetReadme(ctx context.Context, owner, repo string) (string, error) {
	var file github.RepositoryContent
	if _, err := c.Fetch(ctx, repoPath(owner, repo, "readme"), "", &file); err != nil {
		return "", err
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("readme of %s/%s: %w: %v", owner, repo, ErrDecode, err)
	}
	return content, nil
}
