package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single POST.
const DefaultTimeout = 10 * time.Second

// DefaultUsername is the display name used when a request has none.
const DefaultUsername = "Notifier"

// ErrNotConfigured is wrapped by the ConfigError New returns for a blank URL.
var ErrNotConfigured = errors.New("webhook URL is not set")

// ConfigError is returned by New when the dispatcher cannot be built.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("webhook config %s: %v", e.Field, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// StatusError describes a non-2xx response.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Dispatcher posts chat messages to one webhook endpoint with bounded retries.
// It is safe for concurrent use.
type Dispatcher struct {
	endpoint string
	client   *http.Client
	sleeper  Sleeper
	log      *slog.Logger
	username string
	policy   RetryPolicy
	failFast bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithClient overrides the HTTP client (defaults to a 10s timeout).
func WithClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithSleeper overrides how waits between attempts are performed (useful for tests).
func WithSleeper(s Sleeper) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.sleeper = s
		}
	}
}

// WithLogger overrides the logger (defaults to slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithDefaultUsername sets the display name for requests without one.
func WithDefaultUsername(name string) Option {
	return func(d *Dispatcher) {
		if strings.TrimSpace(name) != "" {
			d.username = name
		}
	}
}

// WithRetryPolicy sets the policy for requests whose own policy is zero.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) {
		if p.MaxAttempts > 0 {
			d.policy = p
		}
	}
}

// WithFailFastOnClientError stops retrying on 4xx responses other than 429.
func WithFailFastOnClientError(enabled bool) Option {
	return func(d *Dispatcher) { d.failFast = enabled }
}

// New creates a dispatcher for endpoint. A blank endpoint is a configuration
// error reported here once rather than on every Send.
func New(endpoint string, opts ...Option) (*Dispatcher, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, &ConfigError{Field: "url", Err: ErrNotConfigured}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &ConfigError{Field: "url", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &ConfigError{Field: "url", Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
	d := &Dispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		sleeper:  TimerSleeper,
		log:      slog.Default(),
		username: DefaultUsername,
		policy:   DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Send delivers req and reports whether the endpoint accepted it.
func (d *Dispatcher) Send(ctx context.Context, req Request) bool {
	return d.Deliver(ctx, req).Success
}

// SendAll delivers every request concurrently and waits for all of them.
// Outcomes are index-aligned with reqs; one failure never affects another.
func (d *Dispatcher) SendAll(ctx context.Context, reqs []Request) []DeliveryOutcome {
	out := make([]DeliveryOutcome, len(reqs))
	var wg sync.WaitGroup
	for i := range reqs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = d.Deliver(ctx, reqs[i])
		}(i)
	}
	wg.Wait()
	return out
}

// Deliver is Send with the full outcome.
func (d *Dispatcher) Deliver(ctx context.Context, req Request) DeliveryOutcome {
	outcome := DeliveryOutcome{ID: uuid.NewString()}
	log := d.log.With("delivery_id", outcome.ID)

	policy := req.Retry
	if policy.MaxAttempts <= 0 {
		policy = d.policy
	}
	username := req.Username
	if strings.TrimSpace(username) == "" {
		username = d.username
	}

	body, err := json.Marshal(payload{Username: username, Content: req.Content, Embeds: req.Embeds})
	if err != nil {
		log.Error("webhook payload encoding failed", "error", err)
		outcome.Err = fmt.Errorf("encode payload: %w", err)
		return outcome
	}

	attempts, err := Retry(ctx, policy.MaxAttempts, d.sleeper, func(ctx context.Context, n int) Step {
		log.Info("sending webhook message", "attempt", n, "max_attempts", policy.MaxAttempts)
		step := d.attempt(ctx, body, policy)
		switch step.Outcome {
		case OutcomeSuccess:
			log.Info("webhook message delivered", "attempt", n)
		case OutcomeRetry:
			var se *StatusError
			if errors.As(step.Err, &se) && se.StatusCode == http.StatusTooManyRequests {
				log.Warn("webhook rate limited", "attempt", n, "wait", step.Wait)
			} else {
				log.Error("webhook delivery failed", "attempt", n, "max_attempts", policy.MaxAttempts, "error", step.Err)
			}
		case OutcomeAbort:
			log.Error("webhook delivery aborted", "attempt", n, "error", step.Err)
		}
		return step
	})
	outcome.Attempts = attempts
	if err != nil {
		log.Error("webhook message not delivered", "attempts", attempts, "error", err)
		outcome.Err = err
		return outcome
	}
	outcome.Success = true
	return outcome
}

func (d *Dispatcher) attempt(ctx context.Context, body []byte, policy RetryPolicy) Step {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return Step{Outcome: OutcomeAbort, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return Step{Outcome: OutcomeRetry, Wait: policy.BaseDelay, Err: fmt.Errorf("post webhook: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return Step{Outcome: OutcomeSuccess}
	case code == http.StatusTooManyRequests:
		wait, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
		if !ok {
			wait = policy.BaseDelay * 2
		}
		return Step{Outcome: OutcomeRetry, Wait: wait, Err: &StatusError{StatusCode: code, RetryAfter: wait}}
	case code >= 400 && code < 500 && d.failFast:
		return Step{Outcome: OutcomeAbort, Err: &StatusError{StatusCode: code}}
	default:
		return Step{Outcome: OutcomeRetry, Wait: policy.BaseDelay, Err: &StatusError{StatusCode: code}}
	}
}

// maxRetryAfterSeconds is the largest delay a time.Duration can hold.
const maxRetryAfterSeconds = float64(math.MaxInt64) / float64(time.Second)

// parseRetryAfter accepts delay-seconds (fractional allowed) or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, false
		}
		if secs >= maxRetryAfterSeconds {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			delay = 0
		}
		return delay, true
	}
	return 0, false
}
