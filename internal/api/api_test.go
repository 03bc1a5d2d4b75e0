package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/logger"
	"github.com/jonesrussell/gomeme/internal/queue"
	"github.com/jonesrussell/gomeme/internal/scheduler"
)

type fakeInjector struct {
	slot *queue.Slot
	err  error
	// skipSlot returns the item without queueing it, as if a publish
	// tick drained the slot before the handler responded.
	skipSlot bool
}

func (f *fakeInjector) Inject(_ context.Context, url string) (*domain.QueueItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	item := &domain.QueueItem{
		Candidate: domain.Candidate{ID: "injected", URL: url, Title: "manual injection"},
		Media:     domain.AcquiredMedia{LocalPath: "tmp/x.png", PreviewPath: "tmp/x.png"},
	}
	if !f.skipSlot {
		f.slot.TryPut(item)
	}
	return item, nil
}

type fakeReleaser struct {
	deleted []string
}

func (f *fakeReleaser) DeleteFile(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

type fakeStats struct{}

func (fakeStats) Stats(context.Context) (int64, int64, error) { return 42, 40, nil }

type fakeSchedule struct {
	cadence scheduler.Cadence
	setErr  error
}

func (f *fakeSchedule) Cadence() scheduler.Cadence { return f.cadence }

func (f *fakeSchedule) SetCadence(c scheduler.Cadence) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.cadence = c
	return nil
}

func (f *fakeSchedule) NextTimes() (time.Time, time.Time) {
	next := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return next.Add(-5 * time.Minute), next
}

func newTestServer(slot *queue.Slot) (*Server, *fakeInjector, *fakeReleaser, *fakeSchedule) {
	injector := &fakeInjector{slot: slot}
	releaser := &fakeReleaser{}
	schedule := &fakeSchedule{cadence: scheduler.Cadence{PostsPerDay: 24, PreloadLead: 5 * time.Minute}}

	server := NewServer(Params{
		Config:   &config.ServerConfig{Address: ":0"},
		Logger:   logger.NewNoOp(),
		Version:  "test",
		Injector: injector,
		Slot:     slot,
		Releaser: releaser,
		Stats:    fakeStats{},
		Schedule: schedule,
		Registry: prometheus.NewRegistry(),
	})
	return server, injector, releaser, schedule
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	server.router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	server, _, _, _ := newTestServer(queue.NewSlot())

	w := doRequest(t, server, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}
}

func TestStatus(t *testing.T) {
	slot := queue.NewSlot()
	server, _, _, _ := newTestServer(slot)

	w := doRequest(t, server, http.MethodGet, "/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /v1/status = %d, want 200", w.Code)
	}

	var status map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if status["queue_occupied"] != false {
		t.Errorf("queue_occupied = %v, want false", status["queue_occupied"])
	}
	if status["version"] != "test" {
		t.Errorf("version = %v, want test", status["version"])
	}
	history, ok := status["history"].(map[string]any)
	if !ok || history["posts"] != float64(42) {
		t.Errorf("history = %v, want 42 posts", status["history"])
	}
}

func TestQueueGetEmpty(t *testing.T) {
	server, _, _, _ := newTestServer(queue.NewSlot())

	w := doRequest(t, server, http.MethodGet, "/v1/queue", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /v1/queue on empty slot = %d, want 404", w.Code)
	}
}

func TestQueueGetOccupied(t *testing.T) {
	slot := queue.NewSlot()
	slot.TryPut(&domain.QueueItem{
		Candidate: domain.Candidate{ID: "abc", Title: "a meme"},
		Media:     domain.AcquiredMedia{IsVideo: true},
	})
	server, _, _, _ := newTestServer(slot)

	w := doRequest(t, server, http.MethodGet, "/v1/queue", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /v1/queue = %d, want 200", w.Code)
	}

	var item queueItemResponse
	if err := json.Unmarshal(w.Body.Bytes(), &item); err != nil {
		t.Fatalf("failed to decode item: %v", err)
	}
	if item.ID != "abc" || !item.IsVideo {
		t.Errorf("item = %+v, want id abc with is_video", item)
	}
}

func TestQueuePost(t *testing.T) {
	server, _, _, _ := newTestServer(queue.NewSlot())

	w := doRequest(t, server, http.MethodPost, "/v1/queue", `{"url":"https://i.redd.it/x.png"}`)
	if w.Code != http.StatusCreated {
		t.Errorf("POST /v1/queue = %d, want 201: %s", w.Code, w.Body.String())
	}
}

func TestQueuePostRespondsAfterSlotDrained(t *testing.T) {
	server, injector, _, _ := newTestServer(queue.NewSlot())
	injector.skipSlot = true

	w := doRequest(t, server, http.MethodPost, "/v1/queue", `{"url":"https://i.redd.it/x.png"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /v1/queue with drained slot = %d, want 201: %s", w.Code, w.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["id"] != "injected" {
		t.Errorf("response id = %v, want the injected item", body["id"])
	}
}

func TestQueuePostMissingURL(t *testing.T) {
	server, _, _, _ := newTestServer(queue.NewSlot())

	w := doRequest(t, server, http.MethodPost, "/v1/queue", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /v1/queue without url = %d, want 400", w.Code)
	}
}

func TestQueuePostConflicts(t *testing.T) {
	slot := queue.NewSlot()
	slot.TryPut(&domain.QueueItem{Candidate: domain.Candidate{ID: "held"}})
	server, _, _, _ := newTestServer(slot)

	w := doRequest(t, server, http.MethodPost, "/v1/queue", `{"url":"https://i.redd.it/x.png"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("POST /v1/queue with occupied slot = %d, want 409", w.Code)
	}
}

func TestQueuePostInjectionFailure(t *testing.T) {
	server, injector, _, _ := newTestServer(queue.NewSlot())
	injector.err = errors.New("acquisition failed")

	w := doRequest(t, server, http.MethodPost, "/v1/queue", `{"url":"https://i.redd.it/x.png"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("POST /v1/queue with failing injector = %d, want 409", w.Code)
	}
}

func TestQueueDelete(t *testing.T) {
	slot := queue.NewSlot()
	slot.TryPut(&domain.QueueItem{
		Candidate: domain.Candidate{ID: "abc"},
		Media:     domain.AcquiredMedia{LocalPath: "tmp/a.mp4", PreviewPath: "tmp/a.png"},
	})
	server, _, releaser, _ := newTestServer(slot)

	w := doRequest(t, server, http.MethodDelete, "/v1/queue", "")
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE /v1/queue = %d, want 200", w.Code)
	}
	if slot.Occupied() {
		t.Error("slot still occupied after delete")
	}
	if len(releaser.deleted) != 2 {
		t.Errorf("deleted files = %v, want media and preview", releaser.deleted)
	}

	w = doRequest(t, server, http.MethodDelete, "/v1/queue", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("DELETE /v1/queue on empty slot = %d, want 404", w.Code)
	}
}

func TestSchedulePut(t *testing.T) {
	server, _, _, schedule := newTestServer(queue.NewSlot())

	w := doRequest(t, server, http.MethodPut, "/v1/schedule",
		`{"posts_per_day":48,"start_delay_seconds":60,"preload_lead_seconds":120}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /v1/schedule = %d, want 200: %s", w.Code, w.Body.String())
	}
	if schedule.cadence.PostsPerDay != 48 {
		t.Errorf("posts per day = %d, want 48", schedule.cadence.PostsPerDay)
	}
	if schedule.cadence.PreloadLead != 2*time.Minute {
		t.Errorf("preload lead = %v, want 2m", schedule.cadence.PreloadLead)
	}
}

func TestSchedulePutInvalid(t *testing.T) {
	server, _, _, schedule := newTestServer(queue.NewSlot())
	schedule.setErr = errors.New("posts per day must be positive")

	w := doRequest(t, server, http.MethodPut, "/v1/schedule", `{"posts_per_day":1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT /v1/schedule with rejected cadence = %d, want 400", w.Code)
	}

	w = doRequest(t, server, http.MethodPut, "/v1/schedule", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("PUT /v1/schedule without posts_per_day = %d, want 400", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _, _, _ := newTestServer(queue.NewSlot())

	w := doRequest(t, server, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d, want 200", w.Code)
	}
}
