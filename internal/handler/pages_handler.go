package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"mojo-insights/internal/domain"
	"mojo-insights/internal/middleware"
	"mojo-insights/internal/service"

	"github.com/go-chi/chi/v5"
)

// PagesHandler handles page list and page stats endpoints
type PagesHandler struct {
	sessionService *service.SessionService
}

// NewPagesHandler creates a new pages handler
func NewPagesHandler(sessionService *service.SessionService) *PagesHandler {
	return &PagesHandler{
		sessionService: sessionService,
	}
}

// PageResponse is a page entry without its page-scoped access token, which
// never leaves the server.
type PageResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StatsResponse represents a page's aggregate metrics for a date range
type StatsResponse struct {
	PageID string           `json:"page_id"`
	Since  string           `json:"since,omitempty"`
	Until  string           `json:"until,omitempty"`
	Stats  domain.PageStats `json:"stats"`
}

// List returns the pages the logged-in user manages, in platform order.
func (h *PagesHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Error(w, `{"error":"Session not found"}`, http.StatusUnauthorized)
		return
	}

	pages, err := h.sessionService.Pages(r.Context(), session.Token)
	if err != nil {
		if errors.Is(err, domain.ErrPageFetchFailed) {
			http.Error(w, `{"error":"Failed to fetch page list"}`, http.StatusBadGateway)
			return
		}
		http.Error(w, `{"error":"Failed to retrieve pages"}`, http.StatusInternalServerError)
		return
	}

	resp := make([]PageResponse, 0, len(pages))
	for _, p := range pages {
		resp = append(resp, PageResponse{ID: p.ID, Name: p.Name})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"pages": resp,
	})
}

// Stats fetches the four tracked metrics for the selected page over the
// given range. A page ID not in the current list returns the current stats
// unchanged with a 200; a failed or empty insights response keeps the prior
// stats and returns 502. The response echoes the range the returned stats
// actually cover, which differs from the query on a no-op.
func (h *PagesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		http.Error(w, `{"error":"Session not found"}`, http.StatusUnauthorized)
		return
	}

	pageID := chi.URLParam(r, "id")
	if pageID == "" {
		http.Error(w, `{"error":"Page ID required"}`, http.StatusBadRequest)
		return
	}

	since := r.URL.Query().Get("since")
	until := r.URL.Query().Get("until")

	stats, dates, err := h.sessionService.PageStats(r.Context(), session.Token, pageID, since, until)
	if err != nil {
		if errors.Is(err, domain.ErrStatsFetchFailed) {
			http.Error(w, `{"error":"No data found for searched date range"}`, http.StatusBadGateway)
			return
		}
		http.Error(w, `{"error":"Failed to fetch page stats"}`, http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		PageID: pageID,
		Since:  dates.Since,
		Until:  dates.Until,
		Stats:  stats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
