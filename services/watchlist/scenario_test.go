package watchlist

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"

	"watchvault/internal/prefs"
	"watchvault/services/catalog"
)

// Full search -> availability -> save flow against a stub provider, with the
// real catalog client and usage tracker.
func TestSearchSaveFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/titles":
			fmt.Fprint(w, `{"results":[
				{"netflix_id":1,"title":"Inception"},
				{"netflix_id":2,"title":"Two"},
				{"netflix_id":3,"title":"Three"},
				{"netflix_id":4,"title":"Four"},
				{"netflix_id":5,"title":"Five"},
				{"netflix_id":6,"title":"Six"},
				{"netflix_id":7,"title":"Seven"}
			]}`)
		case "/title/countries":
			fmt.Fprint(w, `{"results":[{"country_code":"US","country":"United States","audio":"English","subtitle":"English"}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	usage := catalog.NewUsageTracker(prefs.NewWithFs(afero.NewMemMapFs(), "prefs.json"))
	client := catalog.NewClient("key", "host", usage)
	client.SetBaseURL(server.URL)

	store := newFakeStore()
	svc := NewService(client, store, usage)
	defer svc.Close()

	<-svc.Search(context.Background(), "Inception")

	results := svc.Results()
	if len(results) != 5 {
		t.Fatalf("expected provider rows capped at 5, got %d", len(results))
	}
	if usage.Used() != 1 {
		t.Fatalf("expected counter 1 after search, got %d", usage.Used())
	}

	availability := svc.FetchAvailability(context.Background(), results[0])
	if len(availability) != 1 || availability[0].CountryCode != "US" {
		t.Fatalf("unexpected availability: %+v", availability)
	}
	if sel := svc.SelectedAvailability(); len(sel) != 1 || sel[0].Country != "United States" {
		t.Fatalf("unexpected selected availability: %+v", sel)
	}
	if usage.Used() != 2 {
		t.Fatalf("expected counter 2 after availability fetch, got %d", usage.Used())
	}

	if err := svc.SaveToWatchlist(context.Background(), results[0]); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !svc.IsSaved(results[0].ItemID) {
		t.Fatalf("expected item to read as saved")
	}

	saved := svc.SavedItems()
	if len(saved) != 1 {
		t.Fatalf("expected one saved item, got %d", len(saved))
	}
	if len(saved[0].Availability) != 1 || saved[0].Availability[0].CountryCode != "US" {
		t.Fatalf("expected persisted availability entry, got %+v", saved[0].Availability)
	}
}
