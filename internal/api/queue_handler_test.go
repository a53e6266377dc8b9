package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flocksync/internal/dto/resp"
	"flocksync/internal/model"
	"flocksync/internal/service"
	v1 "flocksync/pkg/api/v1"
	"flocksync/pkg/logger"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitLogger("test")
}

type mockQueueProvider struct {
	items      map[string]*model.QueueItem
	count      int64
	enqueueErr error
	enqueuedID string
}

func (m *mockQueueProvider) Enqueue(ctx context.Context, ops []v1.Operation) (string, error) {
	if m.enqueueErr != nil {
		return "", m.enqueueErr
	}
	return m.enqueuedID, nil
}

func (m *mockQueueProvider) Count(ctx context.Context) (int64, error) { return m.count, nil }

func (m *mockQueueProvider) List(ctx context.Context) ([]model.QueueItem, error) {
	out := make([]model.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, nil
}

func (m *mockQueueProvider) Get(ctx context.Context, id string) (*model.QueueItem, error) {
	return m.items[id], nil
}

func (m *mockQueueProvider) Remove(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockQueueProvider) Clear(ctx context.Context) error {
	m.items = map[string]*model.QueueItem{}
	return nil
}

func (m *mockQueueProvider) Audits(ctx context.Context, offset, limit int) ([]model.AdminAudit, int64, error) {
	return nil, 0, nil
}

func (m *mockQueueProvider) Health(ctx context.Context) error { return nil }

type mockDrainer struct {
	results []v1.SyncResult
}

func (m *mockDrainer) Drain(ctx context.Context) ([]v1.SyncResult, error) {
	return m.results, nil
}

type mockWatcher struct {
	online bool
}

func (m *mockWatcher) Online() bool { return m.online }

func newTestRouter(provider QueueProvider, drainer service.Drainer, watcher OnlineReporter) *gin.Engine {
	h := NewQueueHandler(provider, drainer, watcher)
	r := gin.New()
	r.POST("/v1/queue", h.Enqueue)
	r.GET("/v1/queue/:id", h.GetItem)
	r.POST("/v1/sync", h.Sync)
	r.GET("/v1/status", h.Status)
	return r
}

func TestEnqueue_QueueFullReturns507(t *testing.T) {
	provider := &mockQueueProvider{enqueueErr: service.ErrQueueFull}
	r := newTestRouter(provider, &mockDrainer{}, &mockWatcher{})

	body := `{"operations":[{"kind":"checkin","person_id":"p-1","event_id":"e-1"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/queue", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != 507 {
		t.Fatalf("expected 507 when queue is full, got %d", w.Code)
	}
}

func TestEnqueue_ReturnsGeneratedID(t *testing.T) {
	provider := &mockQueueProvider{enqueuedID: "batch-42"}
	r := newTestRouter(provider, &mockDrainer{}, &mockWatcher{})

	body := `{"operations":[{"kind":"checkin","person_id":"p-1","event_id":"e-1"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/queue", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var out resp.EnqueueResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if out.ID != "batch-42" {
		t.Errorf("expected id batch-42, got %q", out.ID)
	}
}

func TestEnqueue_RejectsEmptyBatch(t *testing.T) {
	provider := &mockQueueProvider{enqueuedID: "unused"}
	r := newTestRouter(provider, &mockDrainer{}, &mockWatcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/queue", strings.NewReader(`{"operations":[]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != 400 {
		t.Fatalf("expected 400 for empty batch, got %d", w.Code)
	}
}

func TestGetItem_NotFoundReturns404(t *testing.T) {
	provider := &mockQueueProvider{items: map[string]*model.QueueItem{}}
	r := newTestRouter(provider, &mockDrainer{}, &mockWatcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/queue/nope", nil)
	r.ServeHTTP(w, req)

	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestGetItem_RendersStatusString(t *testing.T) {
	payload, _ := json.Marshal([]v1.Operation{{Kind: "checkin", PersonID: "p-1", EventID: "e-1"}})
	provider := &mockQueueProvider{items: map[string]*model.QueueItem{
		"item-1": {
			ID:         "item-1",
			Payload:    string(payload),
			EnqueuedAt: time.Now(),
			Attempts:   2,
			Status:     model.StatusFailed,
			LastError:  "records api returned 500",
		},
	}}
	r := newTestRouter(provider, &mockDrainer{}, &mockWatcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/queue/item-1", nil)
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var view resp.QueueItemView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal view: %v", err)
	}
	if view.Status != "failed" {
		t.Errorf("expected status failed, got %q", view.Status)
	}
	if view.Operations != 1 {
		t.Errorf("expected 1 operation, got %d", view.Operations)
	}
}

func TestSync_AggregatesResults(t *testing.T) {
	drainer := &mockDrainer{results: []v1.SyncResult{
		{ID: "a", Success: true},
		{ID: "b", Success: true, Duplicate: true},
		{ID: "c", Success: false, Error: "connection refused"},
	}}
	r := newTestRouter(&mockQueueProvider{}, drainer, &mockWatcher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil)
	r.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out resp.DrainResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if out.Synced != 2 || out.Failed != 1 {
		t.Errorf("expected 2 synced / 1 failed, got %d / %d", out.Synced, out.Failed)
	}
}

func TestStatus_ReportsOnlineAndPending(t *testing.T) {
	provider := &mockQueueProvider{count: 7}
	r := newTestRouter(provider, &mockDrainer{}, &mockWatcher{online: true})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	r.ServeHTTP(w, req)

	var out resp.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !out.Online {
		t.Error("expected online=true")
	}
	if out.Pending != 7 {
		t.Errorf("expected 7 pending, got %d", out.Pending)
	}
}
