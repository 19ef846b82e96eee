// Package fetch is the transport layer: polite, retrying GETs with an
// identifying user agent and a robots.txt gate. The harvesting logic
// treats it as a capability; everything timing- and network-related lives
// here.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// DefaultUserAgent identifies the harvester to the sites it visits.
const DefaultUserAgent = "dirharvest/1.0 (directory record harvester)"

// ErrRobotsDisallowed reports that the target's robots.txt forbids the
// requested URL for our user agent.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// StatusError is a non-2xx response that is not worth retrying.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// Options configures the client. Zero values pick conservative defaults.
type Options struct {
	UserAgent      string
	AcceptLanguage string
	// Timeout bounds a single request attempt.
	Timeout time.Duration
	// MaxRetries is the total number of attempts for transient failures
	// (network errors, 429, 5xx).
	MaxRetries int
	// BackoffBase is the exponential backoff multiplier between
	// attempts.
	BackoffBase float64
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration
	// DelayMin/DelayMax bound the jittered politeness delay inserted
	// between consecutive fetches.
	DelayMin time.Duration
	DelayMax time.Duration
	// SkipRobots disables the robots.txt gate (tests).
	SkipRobots bool
}

// Client performs polite HTTP GETs. Not safe for concurrent use: the
// politeness delay assumes sequential callers, which is all this system
// has.
type Client struct {
	http   *http.Client
	opts   Options
	robots *robotsCache

	lastFetch time.Time
}

// New builds a client, filling in defaults for unset options.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = "en-GB,en;q=0.9"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 1.5
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}

	c := &Client{
		http: &http.Client{Timeout: opts.Timeout},
		opts: opts,
	}
	if !opts.SkipRobots {
		c.robots = newRobotsCache(c.http, opts.UserAgent)
	}
	return c
}

// Fetch GETs the URL and returns its body. Transient failures (network
// errors, 429, 5xx) are retried with exponential backoff plus jitter; any
// other non-2xx status fails immediately. A failure is always reported as
// an error, distinct from a successful response with an empty body.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	if c.robots != nil {
		allowed, err := c.robots.allowed(ctx, url)
		if err == nil && !allowed {
			return "", fmt.Errorf("%s: %w", url, ErrRobotsDisallowed)
		}
		// Robots lookup failures fail open: politeness must not turn
		// into data loss.
	}

	if err := c.politeDelay(ctx); err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		body, retryable, err := c.attempt(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || attempt == c.opts.MaxRetries {
			break
		}
		if err := c.backoff(ctx, attempt); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("fetch %s: %w", url, lastErr)
}

// attempt performs one GET. The second return value reports whether the
// failure is worth retrying.
func (c *Client) attempt(ctx context.Context, url string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept-Language", c.opts.AcceptLanguage)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, &StatusError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, err
	}
	return string(body), false, nil
}

// politeDelay sleeps a jittered interval between consecutive fetches.
func (c *Client) politeDelay(ctx context.Context) error {
	defer func() { c.lastFetch = time.Now() }()

	if c.opts.DelayMax <= 0 || c.lastFetch.IsZero() {
		return nil
	}

	span := c.opts.DelayMax - c.opts.DelayMin
	delay := c.opts.DelayMin
	if span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	if elapsed := time.Since(c.lastFetch); elapsed < delay {
		return sleepCtx(ctx, delay-elapsed)
	}
	return nil
}

// backoff waits InitialBackoff * BackoffBase^(attempt-1), plus up to half
// that again in jitter.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	wait := time.Duration(float64(c.opts.InitialBackoff) * math.Pow(c.opts.BackoffBase, float64(attempt-1)))
	wait += time.Duration(rand.Int63n(int64(wait/2) + 1))
	return sleepCtx(ctx, wait)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
