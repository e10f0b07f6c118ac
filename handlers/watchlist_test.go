package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"watchvault/models"
	"watchvault/services/catalog"
)

type fakeCoordinator struct {
	results      []models.CatalogItem
	searchErr    error
	errorMessage string
	availability []models.CountryAvailability
	saved        []models.SavedItem
	savedIDs     map[string]bool
	removedID    string
	cleared      bool
	used         int
}

func (f *fakeCoordinator) Search(ctx context.Context, title string) <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

func (f *fakeCoordinator) Results() []models.CatalogItem { return f.results }
func (f *fakeCoordinator) LastSearchError() error        { return f.searchErr }
func (f *fakeCoordinator) ErrorMessage() string          { return f.errorMessage }

func (f *fakeCoordinator) FetchAvailability(ctx context.Context, item models.CatalogItem) []models.CountryAvailability {
	return f.availability
}

func (f *fakeCoordinator) SaveToWatchlist(ctx context.Context, item models.CatalogItem) error {
	f.saved = append(f.saved, models.SavedItem{ItemID: item.ItemID, Title: item.Title})
	return nil
}

func (f *fakeCoordinator) RemoveFromWatchlist(ctx context.Context, itemID string) error {
	f.removedID = itemID
	return nil
}

func (f *fakeCoordinator) ClearWatchlist(ctx context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeCoordinator) SavedItems() []models.SavedItem { return f.saved }
func (f *fakeCoordinator) IsSaved(itemID string) bool     { return f.savedIDs[itemID] }
func (f *fakeCoordinator) UsedCalls() int                 { return f.used }
func (f *fakeCoordinator) RemainingCalls() int            { return catalog.DailyAllowance - f.used }

func newTestRouter(f *fakeCoordinator) *mux.Router {
	r := mux.NewRouter()
	NewWatchlistHandler(f).Register(r)
	return r
}

func TestSearchHandlerReturnsResults(t *testing.T) {
	f := &fakeCoordinator{
		results: []models.CatalogItem{{ItemID: "1", Title: "Inception"}},
		used:    3,
	}
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/search?title=Inception", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Results        []models.CatalogItem `json:"results"`
		RemainingCalls int                  `json:"remainingCalls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Title != "Inception" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if resp.RemainingCalls != catalog.DailyAllowance-3 {
		t.Fatalf("unexpected remaining calls: %d", resp.RemainingCalls)
	}
}

func TestSearchHandlerStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{catalog.ErrEmptyResults, http.StatusNotFound},
		{catalog.ErrMissingCredentials, http.StatusServiceUnavailable},
		{catalog.ErrNetwork, http.StatusBadGateway},
		{catalog.ErrDecode, http.StatusBadGateway},
		{catalog.ErrInvalidQuery, http.StatusBadRequest},
	}

	for _, tc := range cases {
		f := &fakeCoordinator{searchErr: tc.err, errorMessage: tc.err.Error()}
		router := newTestRouter(f)

		req := httptest.NewRequest(http.MethodGet, "/api/search?title=x", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != tc.status {
			t.Fatalf("error %v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}
	}
}

func TestAvailabilityHandlerFlagsSavedItems(t *testing.T) {
	f := &fakeCoordinator{
		savedIDs:     map[string]bool{"8": true},
		availability: []models.CountryAvailability{{CountryCode: "KR", Country: "South Korea"}},
	}
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/titles/8/availability", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		ItemID       string                       `json:"itemId"`
		Availability []models.CountryAvailability `json:"availability"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ItemID != "8" || len(resp.Availability) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSaveHandler(t *testing.T) {
	f := &fakeCoordinator{}
	router := newTestRouter(f)

	body, _ := json.Marshal(models.CatalogItem{ItemID: "42", Title: "Lupin"})
	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(f.saved) != 1 || f.saved[0].ItemID != "42" {
		t.Fatalf("expected item saved, got %+v", f.saved)
	}
}

func TestSaveHandlerRejectsMissingID(t *testing.T) {
	router := newTestRouter(&fakeCoordinator{})

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", bytes.NewReader([]byte(`{"title":"No ID"}`)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRemoveHandler(t *testing.T) {
	f := &fakeCoordinator{}
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodDelete, "/api/watchlist/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.removedID != "42" {
		t.Fatalf("expected removal of 42, got %q", f.removedID)
	}
}

func TestClearHandler(t *testing.T) {
	f := &fakeCoordinator{}
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodDelete, "/api/watchlist?all=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !f.cleared {
		t.Fatalf("expected watchlist cleared")
	}
}

func TestUsageHandler(t *testing.T) {
	f := &fakeCoordinator{used: 12}
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Used      int `json:"used"`
		Allowance int `json:"allowance"`
		Remaining int `json:"remaining"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Used != 12 || resp.Allowance != catalog.DailyAllowance || resp.Remaining != catalog.DailyAllowance-12 {
		t.Fatalf("unexpected usage payload: %+v", resp)
	}
}
