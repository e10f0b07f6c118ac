package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"watchvault/models"
	"watchvault/services/catalog"
	watchlistsvc "watchvault/services/watchlist"
)

type watchlistCoordinator interface {
	Search(ctx context.Context, title string) <-chan struct{}
	Results() []models.CatalogItem
	LastSearchError() error
	ErrorMessage() string
	FetchAvailability(ctx context.Context, item models.CatalogItem) []models.CountryAvailability
	SaveToWatchlist(ctx context.Context, item models.CatalogItem) error
	RemoveFromWatchlist(ctx context.Context, itemID string) error
	ClearWatchlist(ctx context.Context) error
	SavedItems() []models.SavedItem
	IsSaved(itemID string) bool
	UsedCalls() int
	RemainingCalls() int
}

var _ watchlistCoordinator = (*watchlistsvc.Service)(nil)

// WatchlistHandler exposes catalog search and watchlist management endpoints.
type WatchlistHandler struct {
	Service watchlistCoordinator
}

func NewWatchlistHandler(s watchlistCoordinator) *WatchlistHandler {
	return &WatchlistHandler{Service: s}
}

// Register attaches all routes to the router.
func (h *WatchlistHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/api/titles/{id}/availability", h.Availability).Methods(http.MethodGet)
	r.HandleFunc("/api/watchlist", h.List).Methods(http.MethodGet)
	r.HandleFunc("/api/watchlist", h.Save).Methods(http.MethodPost)
	r.HandleFunc("/api/watchlist/{id}", h.Remove).Methods(http.MethodDelete)
	r.HandleFunc("/api/watchlist", h.Clear).Methods(http.MethodDelete).Queries("all", "true")
	r.HandleFunc("/api/usage", h.Usage).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// searchStatus maps the catalog failure taxonomy onto HTTP status codes.
func searchStatus(err error) int {
	switch {
	case errors.Is(err, catalog.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrMissingCredentials):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrEmptyResults):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// Search runs a catalog search and waits for it to publish.
func (h *WatchlistHandler) Search(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")

	<-h.Service.Search(r.Context(), title)

	if err := h.Service.LastSearchError(); err != nil {
		writeError(w, searchStatus(err), h.Service.ErrorMessage())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results":        h.Service.Results(),
		"remainingCalls": h.Service.RemainingCalls(),
	})
}

// Availability resolves country availability for a title.
func (h *WatchlistHandler) Availability(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]

	item := models.CatalogItem{ItemID: itemID}
	// Saved titles resolve from persisted data and never spend API budget.
	if h.Service.IsSaved(itemID) {
		item.FromWatchlist = true
	}

	availability := h.Service.FetchAvailability(r.Context(), item)
	writeJSON(w, http.StatusOK, map[string]any{
		"itemId":       itemID,
		"availability": availability,
	})
}

// List returns the saved watchlist.
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": h.Service.SavedItems()})
}

// Save adds an item to the watchlist.
func (h *WatchlistHandler) Save(w http.ResponseWriter, r *http.Request) {
	var item models.CatalogItem

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if item.ItemID == "" {
		writeError(w, http.StatusBadRequest, "itemId is required")
		return
	}

	if err := h.Service.SaveToWatchlist(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"itemId": item.ItemID, "saved": true})
}

// Remove deletes an item from the watchlist. Unknown identifiers succeed.
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["id"]

	if err := h.Service.RemoveFromWatchlist(r.Context(), itemID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"itemId": itemID, "saved": false})
}

// Clear empties the watchlist.
func (h *WatchlistHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearWatchlist(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// Usage reports the advisory daily call counter.
func (h *WatchlistHandler) Usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"used":      h.Service.UsedCalls(),
		"allowance": catalog.DailyAllowance,
		"remaining": h.Service.RemainingCalls(),
	})
}
