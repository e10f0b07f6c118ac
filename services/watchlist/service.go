package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/sourcegraph/conc"

	"watchvault/internal/database"
	"watchvault/models"
	"watchvault/services/catalog"
)

// CatalogClient is the slice of the catalog API the coordinator needs.
type CatalogClient interface {
	Search(ctx context.Context, query string) ([]models.CatalogItem, error)
	FetchAvailability(ctx context.Context, itemID string, countUsage bool) []models.CountryAvailability
}

// Store is the persistence gateway for saved watchlist items.
type Store interface {
	List() ([]models.SavedItem, error)
	Exists(itemID string) (bool, error)
	Save(item models.CatalogItem, availability []models.CountryAvailability) error
	Delete(itemID string) error
	DeleteAll() error
}

// UsageReader exposes the advisory daily call counter for display.
type UsageReader interface {
	Used() int
	Remaining() int
}

var _ CatalogClient = (*catalog.Client)(nil)
var _ Store = (*database.WatchlistRepository)(nil)
var _ UsageReader = (*catalog.UsageTracker)(nil)

// Membership tracks an item's watchlist state. Pending exists so the saved
// predicate answers true optimistically while a save is committing, which
// also absorbs double-submission from rapid repeat taps.
type Membership int

const (
	MembershipUnsaved Membership = iota
	MembershipPending
	MembershipSaved
	MembershipRemoving
)

// Service coordinates catalog search, availability resolution, and watchlist
// persistence. All mutable state is confined behind a single mutex; search
// runs asynchronously and a superseded search can never overwrite the state
// of a newer one.
type Service struct {
	catalog CatalogClient
	store   Store
	usage   UsageReader

	searches conc.WaitGroup

	mu                   sync.Mutex
	cancelSearch         context.CancelFunc
	searchGen            uint64
	results              []models.CatalogItem
	errorMessage         string
	lastSearchErr        error
	selectedAvailability []models.CountryAvailability
	savedItems           []models.SavedItem
	membership           map[string]Membership
	availabilityCache    map[string][]models.CountryAvailability
}

// NewService creates a coordinator and loads the saved-items snapshot. A
// failing initial load is logged, not fatal; the snapshot refreshes on the
// next watchlist operation.
func NewService(catalogClient CatalogClient, store Store, usage UsageReader) *Service {
	s := &Service{
		catalog:           catalogClient,
		store:             store,
		usage:             usage,
		membership:        make(map[string]Membership),
		availabilityCache: make(map[string][]models.CountryAvailability),
	}
	if err := s.RefreshSavedItems(context.Background()); err != nil {
		log.Printf("[watchlist] initial saved items load failed: %v", err)
	}
	return s
}

// Search launches an asynchronous catalog search for title, cancelling any
// search still in flight. The returned channel closes when results or an
// error message have been published. A blank title clears results without
// error and without a network call.
func (s *Service) Search(ctx context.Context, title string) <-chan struct{} {
	done := make(chan struct{})
	trimmed := strings.TrimSpace(title)

	s.mu.Lock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.searchGen++
	gen := s.searchGen
	s.results = nil

	if trimmed == "" {
		s.errorMessage = ""
		s.lastSearchErr = nil
		s.mu.Unlock()
		close(done)
		return done
	}

	searchCtx, cancel := context.WithCancel(ctx)
	s.cancelSearch = cancel
	s.mu.Unlock()

	s.searches.Go(func() {
		defer close(done)
		defer cancel()

		items, err := s.catalog.Search(searchCtx, trimmed)

		s.mu.Lock()
		defer s.mu.Unlock()

		// A newer search superseded this one; discard the response.
		if gen != s.searchGen {
			return
		}

		if err != nil {
			s.lastSearchErr = err
			s.errorMessage = searchErrorMessage(trimmed, err)
			return
		}

		s.lastSearchErr = nil
		s.errorMessage = ""
		s.results = s.mergeSavedStateLocked(items)
	})

	return done
}

func searchErrorMessage(query string, err error) string {
	switch {
	case errors.Is(err, catalog.ErrInvalidQuery):
		return "Invalid search query"
	case errors.Is(err, catalog.ErrMissingCredentials):
		return "Missing API credentials. Check API key and host configuration."
	case errors.Is(err, catalog.ErrEmptyResults):
		return fmt.Sprintf("No results found for %q.", query)
	case errors.Is(err, catalog.ErrDecode):
		return fmt.Sprintf("Failed to process data: %v", err)
	default:
		return fmt.Sprintf("Network error: %v", err)
	}
}

// mergeSavedStateLocked flags already-saved search results and attaches any
// cached availability so the list reflects resolved data immediately.
func (s *Service) mergeSavedStateLocked(items []models.CatalogItem) []models.CatalogItem {
	merged := make([]models.CatalogItem, 0, len(items))
	for _, item := range items {
		if s.isSavedLocked(item.ItemID) {
			item.FromWatchlist = true
		}
		if len(item.Availability) == 0 {
			if cached, ok := s.availabilityCache[item.ItemID]; ok && len(cached) > 0 {
				item.Availability = cached
			}
		}
		merged = append(merged, item)
	}
	return merged
}

// FetchAvailability resolves the country availability for an item: cache
// first, then availability already embedded on the item, then the network.
// Items that originate from the watchlist never reach the network, so saved
// titles cost no API budget.
func (s *Service) FetchAvailability(ctx context.Context, item models.CatalogItem) []models.CountryAvailability {
	s.mu.Lock()

	if cached, ok := s.availabilityCache[item.ItemID]; ok && len(cached) > 0 {
		s.selectedAvailability = cached
		s.mu.Unlock()
		return cached
	}

	if len(item.Availability) > 0 {
		s.availabilityCache[item.ItemID] = item.Availability
		s.backfillResultsLocked(item.ItemID, item.Availability)
		s.selectedAvailability = item.Availability
		s.mu.Unlock()
		return item.Availability
	}

	if item.FromWatchlist {
		cached := s.availabilityCache[item.ItemID]
		s.selectedAvailability = cached
		s.mu.Unlock()
		return cached
	}

	s.mu.Unlock()

	availability := s.catalog.FetchAvailability(ctx, item.ItemID, true)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Cached even when empty so repeat lookups stay off the network.
	s.availabilityCache[item.ItemID] = availability
	s.backfillResultsLocked(item.ItemID, availability)
	s.selectedAvailability = availability
	return availability
}

func (s *Service) backfillResultsLocked(itemID string, availability []models.CountryAvailability) {
	if len(availability) == 0 {
		return
	}
	for i, item := range s.results {
		if item.ItemID == itemID {
			s.results[i] = item.WithAvailability(availability)
		}
	}
}

// SaveToWatchlist persists an item. Saving an item that is already saved or
// mid-save is a no-op. The item reads as saved from the moment this method
// is entered, before the commit completes.
func (s *Service) SaveToWatchlist(ctx context.Context, item models.CatalogItem) error {
	s.mu.Lock()
	if s.isSavedLocked(item.ItemID) {
		s.mu.Unlock()
		return nil
	}
	s.membership[item.ItemID] = MembershipPending

	// Availability to persist: the item's own data wins, then the cache,
	// then whatever detail view was last resolved.
	availability := item.Availability
	if len(availability) == 0 {
		availability = s.availabilityCache[item.ItemID]
	}
	if len(availability) == 0 {
		availability = s.selectedAvailability
	}
	s.mu.Unlock()

	if err := s.store.Save(item, availability); err != nil {
		s.mu.Lock()
		delete(s.membership, item.ItemID)
		s.mu.Unlock()
		return fmt.Errorf("save %s to watchlist: %w", item.ItemID, err)
	}

	if err := s.RefreshSavedItems(ctx); err != nil {
		log.Printf("[watchlist] refresh after save failed: %v", err)
	}
	return nil
}

// RemoveFromWatchlist deletes an item by identifier. Removing an identifier
// that was never saved is a no-op.
func (s *Service) RemoveFromWatchlist(ctx context.Context, itemID string) error {
	s.mu.Lock()
	switch s.membership[itemID] {
	case MembershipSaved:
		s.membership[itemID] = MembershipRemoving
	default:
		// A pending or unknown item simply stops being tracked.
		delete(s.membership, itemID)
	}
	s.mu.Unlock()

	if err := s.store.Delete(itemID); err != nil {
		return fmt.Errorf("remove %s from watchlist: %w", itemID, err)
	}

	if err := s.RefreshSavedItems(ctx); err != nil {
		log.Printf("[watchlist] refresh after remove failed: %v", err)
	}
	return nil
}

// ClearWatchlist removes every saved item.
func (s *Service) ClearWatchlist(ctx context.Context) error {
	if err := s.store.DeleteAll(); err != nil {
		return fmt.Errorf("clear watchlist: %w", err)
	}
	if err := s.RefreshSavedItems(ctx); err != nil {
		log.Printf("[watchlist] refresh after clear failed: %v", err)
	}
	return nil
}

// RefreshSavedItems reloads the saved-items snapshot, reconciles membership
// states against it, and rebuilds the availability cache from persisted data
// so detail views of saved titles stay off the network.
func (s *Service) RefreshSavedItems(_ context.Context) error {
	items, err := s.store.List()
	if err != nil {
		return fmt.Errorf("list saved items: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.savedItems = items

	savedIDs := make(map[string]struct{}, len(items))
	for _, item := range items {
		savedIDs[item.ItemID] = struct{}{}
		s.membership[item.ItemID] = MembershipSaved
		if len(item.Availability) > 0 {
			s.availabilityCache[item.ItemID] = item.Availability
		}
	}

	for id, state := range s.membership {
		if _, ok := savedIDs[id]; ok {
			continue
		}
		// Pending saves are still committing; everything else confirmed
		// absent reverts to unsaved.
		if state != MembershipPending {
			delete(s.membership, id)
		}
	}

	s.refreshResultFlagsLocked()
	return nil
}

func (s *Service) refreshResultFlagsLocked() {
	for i, item := range s.results {
		saved := s.isSavedLocked(item.ItemID)
		item.FromWatchlist = saved
		if saved && len(item.Availability) == 0 {
			if cached, ok := s.availabilityCache[item.ItemID]; ok {
				item.Availability = cached
			}
		}
		s.results[i] = item
	}
}

// IsSaved reports whether the identifier is saved or mid-save.
func (s *Service) IsSaved(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSavedLocked(itemID)
}

func (s *Service) isSavedLocked(itemID string) bool {
	switch s.membership[itemID] {
	case MembershipPending, MembershipSaved:
		return true
	default:
		return false
	}
}

// Results returns a copy of the current search results.
func (s *Service) Results() []models.CatalogItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CatalogItem(nil), s.results...)
}

// SavedItems returns a copy of the saved-items snapshot.
func (s *Service) SavedItems() []models.SavedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SavedItem(nil), s.savedItems...)
}

// SelectedAvailability returns the availability of the last resolved item.
func (s *Service) SelectedAvailability() []models.CountryAvailability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CountryAvailability(nil), s.selectedAvailability...)
}

// ErrorMessage returns the user-facing message of the last search, empty
// when the last search succeeded.
func (s *Service) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorMessage
}

// LastSearchError returns the raw error of the last completed search so
// callers can classify it with errors.Is.
func (s *Service) LastSearchError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSearchErr
}

// UsedCalls returns today's advisory provider call count.
func (s *Service) UsedCalls() int {
	if s.usage == nil {
		return 0
	}
	return s.usage.Used()
}

// RemainingCalls returns how much of the advisory daily allowance is left.
func (s *Service) RemainingCalls() int {
	if s.usage == nil {
		return 0
	}
	return s.usage.Remaining()
}

// Close cancels any in-flight search and waits for it to finish.
func (s *Service) Close() {
	s.mu.Lock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.mu.Unlock()
	s.searches.Wait()
}
