package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

type fakeReader struct {
	events    []models.Event
	summaries map[int64]*models.SalesSummary
}

func (f *fakeReader) ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	return f.events, nil
}

func (f *fakeReader) GetSalesSummary(ctx context.Context, eventID int64) (*models.SalesSummary, error) {
	if s, ok := f.summaries[eventID]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type fakeTrigger struct {
	mu       sync.Mutex
	allRuns  int
	targeted [][]int64
	forced   bool
	done     chan struct{}
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{done: make(chan struct{}, 1)}
}

func (f *fakeTrigger) SyncAll(ctx context.Context, force bool) error {
	f.mu.Lock()
	f.allRuns++
	f.forced = force
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeTrigger) SyncEvents(ctx context.Context, eventIDs []int64, force bool) error {
	f.mu.Lock()
	f.targeted = append(f.targeted, eventIDs)
	f.forced = force
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func setupRouter(reader *fakeReader, trigger *fakeTrigger) *chi.Mux {
	h := NewHandler(reader, trigger, nil, logger.NewLogger())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestListUpcomingEvents(t *testing.T) {
	reader := &fakeReader{events: []models.Event{
		{ID: 501, Name: "The Midnight", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: 502, Name: "Khruangbin", Date: time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)},
	}}
	router := setupRouter(reader, newFakeTrigger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/upcoming", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool                  `json:"success"`
		Data    []models.EventListing `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 2)
	assert.Equal(t, "2025-03-01", body.Data[0].Date)
}

func TestGetSalesSummary(t *testing.T) {
	reader := &fakeReader{summaries: map[int64]*models.SalesSummary{
		501: {EventID: 501, TotalGA: 2, CompVIP: 1, Gross: 40, Net: 36},
	}}
	router := setupRouter(reader, newFakeTrigger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/501/sales", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool          `json:"success"`
		Data    salesResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.HasSales)
	assert.Equal(t, 2, body.Data.GA)
	assert.Equal(t, 1, body.Data.CompVIP)
	assert.Equal(t, 40.0, body.Data.Gross)
}

func TestGetSalesSummaryNotFound(t *testing.T) {
	router := setupRouter(&fakeReader{}, newFakeTrigger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/999/sales", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSalesSummaryRejectsBadID(t *testing.T) {
	router := setupRouter(&fakeReader{}, newFakeTrigger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/not-a-number/sales", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerFullSync(t *testing.T) {
	trigger := newFakeTrigger()
	router := setupRouter(&fakeReader{}, trigger)

	body := bytes.NewBufferString(`{"event_id": "all", "force": true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-trigger.done:
	case <-time.After(time.Second):
		t.Fatal("background sync never started")
	}
	trigger.mu.Lock()
	defer trigger.mu.Unlock()
	assert.Equal(t, 1, trigger.allRuns)
	assert.True(t, trigger.forced)
}

func TestTriggerTargetedSync(t *testing.T) {
	trigger := newFakeTrigger()
	router := setupRouter(&fakeReader{}, trigger)

	body := bytes.NewBufferString(`{"event_id": 501}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-trigger.done:
	case <-time.After(time.Second):
		t.Fatal("background sync never started")
	}
	trigger.mu.Lock()
	defer trigger.mu.Unlock()
	assert.Equal(t, [][]int64{{501}}, trigger.targeted)
	assert.False(t, trigger.forced)
}

func TestTriggerSyncRejectsBadEventID(t *testing.T) {
	trigger := newFakeTrigger()
	router := setupRouter(&fakeReader{}, trigger)

	body := bytes.NewBufferString(`{"event_id": "soon"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	trigger.mu.Lock()
	defer trigger.mu.Unlock()
	assert.Equal(t, 0, trigger.allRuns)
	assert.Empty(t, trigger.targeted)
}
