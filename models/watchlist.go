package models

// SavedItem represents a catalog title persisted to the user's watchlist,
// together with its country availability snapshot taken at save time.
type SavedItem struct {
	ItemID       string                `json:"itemId"`
	Title        string                `json:"title"`
	Synopsis     string                `json:"synopsis,omitempty"`
	Img          string                `json:"img,omitempty"`
	Availability []CountryAvailability `json:"availability,omitempty"`
}

// ToCatalogItem converts a persisted watchlist entry back into the transient
// catalog representation used by search and detail flows.
func (s SavedItem) ToCatalogItem() CatalogItem {
	return CatalogItem{
		ItemID:        s.ItemID,
		Title:         s.Title,
		Img:           s.Img,
		Synopsis:      s.Synopsis,
		Availability:  s.Availability,
		FromWatchlist: true,
	}
}
