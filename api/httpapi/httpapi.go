package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	wsadapter "pushstreak/adapters/websocket"
	"pushstreak/core"
	"pushstreak/engine"
	"pushstreak/integrations/webhook"
	"pushstreak/realtime"
)

// Notifier delivers one chat message. *webhook.Dispatcher satisfies it.
type Notifier interface {
	Send(ctx context.Context, req webhook.Request) bool
}

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// RateLimitEnabled toggles per-client rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// Username overrides the sender name on progress notifications.
	Username string
	// Retry is the delivery policy for progress notifications; zero uses the dispatcher's.
	Retry webhook.RetryPolicy
	// NotifyTimeout bounds the notification for one push so the response
	// is written before the server's write timeout. Zero means no bound.
	NotifyTimeout time.Duration
	// Now supplies the push time. Defaults to time.Now.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewMux builds an http.Handler for push ingress plus read-only progress views.
// Routes:
//   - POST {prefix}/github
//   - GET  {prefix}/progress
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
//
// notifier may be nil when no outgoing webhook is configured; pushes are
// still recorded and answered with 500.
func NewMux(tracker *engine.Tracker, notifier Notifier, hub *realtime.Hub, opts Options) http.Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if d, ok := notifier.(*webhook.Dispatcher); ok && d == nil {
		notifier = nil
	}
	in := &ingress{tracker: tracker, notifier: notifier, opts: opts, log: opts.Logger.With("component", "httpapi")}

	mux := http.NewServeMux()
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/github"), in.github)

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/progress"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET", nil)
			return
		}
		st, err := tracker.State(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
			return
		}
		writeJSON(w, progressView(st))
	})

	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, tracker, notifier != nil)
	})

	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub, tracker.State))
	}

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

type ingress struct {
	tracker  *engine.Tracker
	notifier Notifier
	opts     Options
	log      *slog.Logger
}

// github handles repository event deliveries. Only push events touch state.
func (in *ingress) github(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	event := r.Header.Get("X-GitHub-Event")
	if event != "push" {
		in.log.Debug("ignoring event", "event", event)
		writeText(w, http.StatusOK, "Ignored")
		return
	}

	state, levelUp, err := in.tracker.Update(r.Context(), in.opts.Now())
	if err != nil {
		in.log.Error("progress update failed", "error", err)
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	if in.notifier == nil {
		writeText(w, http.StatusInternalServerError, "webhook URL is not set")
		return
	}

	req := webhook.Request{
		Content:  core.FormatProgress(state, levelUp),
		Username: in.opts.Username,
		Retry:    in.opts.Retry,
	}
	ctx := r.Context()
	if in.opts.NotifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, in.opts.NotifyTimeout)
		defer cancel()
	}
	if !in.notifier.Send(ctx, req) {
		writeText(w, http.StatusInternalServerError, "failed to notify webhook")
		return
	}
	writeText(w, http.StatusOK, "OK")
}

type progressResponse struct {
	core.ProgressState
	Required int `json:"required"`
}

func progressView(s core.ProgressState) progressResponse {
	return progressResponse{ProgressState: s, Required: s.Required()}
}

// healthCheck reports storage reachability and whether notifications can be sent.
func healthCheck(w http.ResponseWriter, r *http.Request, tracker *engine.Tracker, notifierConfigured bool) {
	_, err := tracker.State(r.Context())

	webhookStatus := "configured"
	if !notifierConfigured {
		webhookStatus = "not_configured"
	}
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
			"webhook": webhookStatus,
		},
	}

	code := http.StatusOK
	if err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	}
	writeJSONStatus(w, code, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	return strings.TrimSuffix(prefix, "/") + path
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSONStatus(w, status, apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-GitHub-Event")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a token-bucket limiter per client address.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiters := newLimiterSet(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.get(clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type limiterSet struct {
	limit rate.Limit
	burst int

	mu sync.Mutex
	m  map[string]*rate.Limiter
}

func newLimiterSet(rpm, burst int) *limiterSet {
	return &limiterSet{
		limit: rate.Limit(float64(rpm) / 60),
		burst: burst,
		m:     make(map[string]*rate.Limiter),
	}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.m[key]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.m[key] = l
	}
	return l
}
