package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-ticket-sync/internal/logger"
	"ms-ticket-sync/internal/models"

	"github.com/go-chi/chi/v5"
)

// EventReader is the store surface the read endpoints consume.
type EventReader interface {
	ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error)
	GetSalesSummary(ctx context.Context, eventID int64) (*models.SalesSummary, error)
}

// SyncTrigger starts sync runs. Triggers are fire-and-forget: the handler
// responds 202 and the run proceeds in the background.
type SyncTrigger interface {
	SyncAll(ctx context.Context, force bool) error
	SyncEvents(ctx context.Context, eventIDs []int64, force bool) error
}

// Handler exposes the sync engine to the conversational layer.
type Handler struct {
	Store   EventReader
	Trigger SyncTrigger
	Cache   *SummaryCache
	Logger  *logger.Logger
}

func NewHandler(store EventReader, trigger SyncTrigger, cache *SummaryCache, log *logger.Logger) *Handler {
	return &Handler{
		Store:   store,
		Trigger: trigger,
		Cache:   cache,
		Logger:  log,
	}
}

// RegisterRoutes registers the exposed surface on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events/upcoming", h.ListUpcomingEvents)
		r.Get("/events/{eventId}/sales", h.GetSalesSummary)
		r.Post("/sync", h.TriggerSync)
	})
}

// salesResponse is the wire shape of a sales summary.
type salesResponse struct {
	EventID   int64   `json:"event_id"`
	HasSales  bool    `json:"has_sales"`
	GA        int     `json:"total_ga"`
	VIP       int     `json:"total_vip"`
	Coatcheck int     `json:"total_coatcheck"`
	CompGA    int     `json:"total_comp_ga"`
	CompVIP   int     `json:"total_comp_vip"`
	FreeGA    int     `json:"total_free_ga"`
	FreeVIP   int     `json:"total_free_vip"`
	Gross     float64 `json:"gross"`
	Net       float64 `json:"net"`
}

func toSalesResponse(s *models.SalesSummary) salesResponse {
	return salesResponse{
		EventID:   s.EventID,
		HasSales:  s.HasSales(),
		GA:        s.TotalGA,
		VIP:       s.TotalVIP,
		Coatcheck: s.TotalCoatcheck,
		CompGA:    s.CompGA,
		CompVIP:   s.CompVIP,
		FreeGA:    s.FreeGA,
		FreeVIP:   s.FreeVIP,
		Gross:     s.Gross,
		Net:       s.Net,
	}
}

// ListUpcomingEvents returns events dated today or later, ascending by date.
func (h *Handler) ListUpcomingEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Store.ListUpcomingEvents(r.Context(), time.Now())
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to list upcoming events: %v", err))
		sendJSONResponse(w, http.StatusInternalServerError, errorResponse("failed to list events", err.Error()))
		return
	}

	listings := make([]models.EventListing, 0, len(events))
	for _, ev := range events {
		listings = append(listings, ev.Listing())
	}
	sendJSONResponse(w, http.StatusOK, successResponse("upcoming events", listings))
}

// GetSalesSummary returns one event's sales rollup, serving from the Redis
// cache when warm. An absent row is 404; an all-zero row reports
// has_sales=false.
func (h *Handler) GetSalesSummary(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "eventId"), 10, 64)
	if err != nil {
		sendJSONResponse(w, http.StatusBadRequest, errorResponse("invalid event id", err.Error()))
		return
	}

	if summary := h.Cache.Get(r.Context(), eventID); summary != nil {
		sendJSONResponse(w, http.StatusOK, successResponse("sales summary (cached)", toSalesResponse(summary)))
		return
	}

	summary, err := h.Store.GetSalesSummary(r.Context(), eventID)
	if errors.Is(err, sql.ErrNoRows) {
		sendJSONResponse(w, http.StatusNotFound, errorResponse("no sales data", fmt.Sprintf("event %d has no sales summary", eventID)))
		return
	}
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("Failed to read sales summary for event %d: %v", eventID, err))
		sendJSONResponse(w, http.StatusInternalServerError, errorResponse("failed to read sales summary", err.Error()))
		return
	}

	h.Cache.Set(r.Context(), summary)
	sendJSONResponse(w, http.StatusOK, successResponse("sales summary", toSalesResponse(summary)))
}

// syncRequest accepts {"event_id": 123} or {"event_id": "all"}.
type syncRequest struct {
	EventID json.RawMessage `json:"event_id"`
	Force   bool            `json:"force"`
}

// TriggerSync starts a sync run in the background and responds 202. The
// request context ends with the response, so runs get a fresh context.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, errorResponse("invalid request body", err.Error()))
		return
	}

	var all bool
	var eventID int64
	if string(req.EventID) == `"all"` {
		all = true
	} else if err := json.Unmarshal(req.EventID, &eventID); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, errorResponse("invalid event_id", `expected an event id or "all"`))
		return
	}

	force := req.Force
	if all {
		go func() {
			if err := h.Trigger.SyncAll(context.Background(), force); err != nil {
				h.Logger.Error("API", fmt.Sprintf("Background full sync failed: %v", err))
			}
		}()
		sendJSONResponse(w, http.StatusAccepted, successResponse("full sync started", nil))
		return
	}

	go func() {
		if err := h.Trigger.SyncEvents(context.Background(), []int64{eventID}, force); err != nil {
			h.Logger.Error("API", fmt.Sprintf("Background sync of event %d failed: %v", eventID, err))
		}
	}()
	sendJSONResponse(w, http.StatusAccepted, successResponse(fmt.Sprintf("sync of event %d started", eventID), nil))
}

func sendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
