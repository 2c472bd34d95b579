package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "pushstreak/adapters/memory"
	"pushstreak/core"
	"pushstreak/engine"
	"pushstreak/integrations/webhook"
)

type fakeNotifier struct {
	mu   sync.Mutex
	ok   bool
	sent []webhook.Request
}

func (f *fakeNotifier) Send(_ context.Context, req webhook.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return f.ok
}

type brokenStore struct{}

func (brokenStore) Load(context.Context) (core.ProgressState, error) {
	return core.ProgressState{}, errors.New("disk on fire")
}
func (brokenStore) Save(context.Context, core.ProgressState) error { return nil }

var pushTime = time.Date(2025, 1, 30, 12, 0, 0, 0, time.UTC)

func newTracker(store engine.Storage) *engine.Tracker {
	return engine.NewTracker(store, engine.NewEventBus(engine.DispatchSync), engine.WithLocation(time.UTC))
}

func fixedNow() time.Time { return pushTime }

func push(t *testing.T, h http.Handler, event string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/github", strings.NewReader(`{"ref":"refs/heads/main"}`))
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGithubPushUpdatesAndNotifies(t *testing.T) {
	store := mem.NewWithState(core.ProgressState{LastPushDate: "2025-01-29", Streak: 3, Level: 1, Experience: 20})
	notifier := &fakeNotifier{ok: true}
	h := NewMux(newTracker(store), notifier, nil, Options{Now: fixedNow, Username: "StreakBot"})

	rec := push(t, h, "push")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	st, _ := store.Load(context.Background())
	assert.Equal(t, core.ProgressState{LastPushDate: "2025-01-30", Streak: 4, Level: 2, Experience: 0}, st)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "StreakBot", notifier.sent[0].Username)
	assert.Equal(t, core.FormatProgress(st, true), notifier.sent[0].Content)
}

func TestGithubOtherEventsIgnored(t *testing.T) {
	store := mem.New()
	notifier := &fakeNotifier{ok: true}
	h := NewMux(newTracker(store), notifier, nil, Options{Now: fixedNow})

	for _, ev := range []string{"ping", "issues", ""} {
		rec := push(t, h, ev)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Ignored", rec.Body.String())
	}
	assert.Zero(t, store.Saves())
	assert.Empty(t, notifier.sent)
}

func TestGithubPushWithoutWebhookStillRecords(t *testing.T) {
	store := mem.New()
	var nilDispatcher *webhook.Dispatcher
	h := NewMux(newTracker(store), nilDispatcher, nil, Options{Now: fixedNow})

	rec := push(t, h, "push")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "webhook URL is not set", rec.Body.String())
	assert.Equal(t, 1, store.Saves())
}

func TestGithubPushNotificationFailure(t *testing.T) {
	store := mem.New()
	h := NewMux(newTracker(store), &fakeNotifier{ok: false}, nil, Options{Now: fixedNow})

	rec := push(t, h, "push")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to notify webhook", rec.Body.String())

	st, _ := store.Load(context.Background())
	assert.Equal(t, 10, st.Experience, "progress is committed even when the notification fails")
}

func TestGithubPushTrackerFailure(t *testing.T) {
	notifier := &fakeNotifier{ok: true}
	h := NewMux(newTracker(brokenStore{}), notifier, nil, Options{Now: fixedNow})

	rec := push(t, h, "push")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk on fire")
	assert.Empty(t, notifier.sent)
}

func TestGithubRejectsGet(t *testing.T) {
	h := NewMux(newTracker(mem.New()), nil, nil, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/github", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestProgressEndpoint(t *testing.T) {
	store := mem.NewWithState(core.ProgressState{LastPushDate: "2025-01-29", Streak: 2, Level: 2, Experience: 40})
	h := NewMux(newTracker(store), nil, nil, Options{PathPrefix: "/api/"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-01-29", body["last_push_date"])
	assert.Equal(t, float64(2), body["streak"])
	assert.Equal(t, float64(40), body["exp"])
	assert.Equal(t, float64(60), body["required"])
}

func TestHealthz(t *testing.T) {
	h := NewMux(newTracker(mem.New()), nil, nil, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"webhook":"not_configured"`)

	h = NewMux(newTracker(brokenStore{}), &fakeNotifier{}, nil, Options{})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"failed"`)
}

func TestCORSPreflight(t *testing.T) {
	h := NewMux(newTracker(mem.New()), nil, nil, Options{AllowCORSOrigin: "*"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/progress", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitPerClient(t *testing.T) {
	h := NewMux(newTracker(mem.New()), nil, nil, Options{
		RateLimitEnabled: true,
		RateLimitRPM:     1,
		RateLimitBurst:   2,
	})

	get := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/progress", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, get("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, get("10.0.0.2:1000"), "other clients keep their own budget")
}

type stallingNotifier struct{}

func (stallingNotifier) Send(ctx context.Context, _ webhook.Request) bool {
	<-ctx.Done()
	return false
}

func TestGithubPushNotificationBoundedByNotifyTimeout(t *testing.T) {
	store := mem.New()
	h := NewMux(newTracker(store), stallingNotifier{}, nil, Options{Now: fixedNow, NotifyTimeout: 50 * time.Millisecond})

	start := time.Now()
	rec := push(t, h, "push")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to notify webhook", rec.Body.String())
	assert.Equal(t, 1, store.Saves())
}
