package models

// CatalogItem represents a searchable movie/TV title returned by the catalog
// provider. Instances are value types: transformations produce copies rather
// than mutating in place.
type CatalogItem struct {
	ItemID   string `json:"itemId"`
	Title    string `json:"title"`
	Img      string `json:"img,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`

	// Availability is populated lazily from the availability endpoint or
	// from persisted watchlist data.
	Availability []CountryAvailability `json:"availability,omitempty"`

	// FromWatchlist marks items hydrated from the local watchlist. Such
	// items must never trigger availability lookups against the network.
	FromWatchlist bool `json:"fromWatchlist,omitempty"`
}

// WithAvailability returns a copy of the item carrying the given availability.
func (c CatalogItem) WithAvailability(availability []CountryAvailability) CatalogItem {
	c.Availability = availability
	return c
}

// CountryAvailability is a country-specific streaming availability entry for
// a catalog item. Country codes are display keys, not unique identifiers.
type CountryAvailability struct {
	CountryCode string `json:"countryCode"`
	Country     string `json:"country"`
	Audio       string `json:"audio,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
}
