package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"watchvault/models"
)

const defaultBaseURL = "https://unogs-unogs-v1.p.rapidapi.com"

// maxSearchResults caps how many rows of a search response are kept.
const maxSearchResults = 5

// Client wraps the catalog provider's search and availability endpoints.
// Both endpoints authenticate with per-request API key headers; every request
// that reaches the network is counted against the daily usage tracker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiHost    string
	usage      *UsageTracker
}

// NewClient creates a catalog client. Credentials may be empty; calls then
// fail with ErrMissingCredentials instead of reaching the network.
func NewClient(apiKey, apiHost string, usage *UsageTracker) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		apiHost:    apiHost,
		usage:      usage,
	}
}

// SetBaseURL overrides the provider endpoint, e.g. to point at a test server
// or a proxy.
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// HasCredentials checks if the client has credentials configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiHost != ""
}

// Usage exposes the daily call tracker for display purposes.
func (c *Client) Usage() *UsageTracker {
	return c.usage
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)
}

type searchResponse struct {
	Results []searchRow `json:"results"`
}

type searchRow struct {
	NetflixID any    `json:"netflix_id"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Img       string `json:"img"`
	Synopsis  string `json:"synopsis"`
}

// itemID extracts the provider identifier, tolerating both string and
// numeric netflix_id values, falling back to the secondary id field and
// finally to a generated opaque identifier.
func (r searchRow) itemID() string {
	switch id := r.NetflixID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatInt(int64(id), 10)
	}
	if r.ID != "" {
		return r.ID
	}
	return uuid.NewString()
}

// Search queries the provider for titles matching query and returns at most
// five results. An empty or whitespace-only query returns no results and no
// error without touching the network.
func (c *Client) Search(ctx context.Context, query string) ([]models.CatalogItem, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, nil
	}

	if !c.HasCredentials() {
		return nil, ErrMissingCredentials
	}

	searchURL := fmt.Sprintf("%s/search/titles?title=%s", c.baseURL, url.QueryEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	c.setHeaders(req)

	c.usage.Increment()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrNetwork, resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if len(parsed.Results) == 0 {
		return nil, ErrEmptyResults
	}

	rows := parsed.Results
	if len(rows) > maxSearchResults {
		rows = rows[:maxSearchResults]
	}

	items := make([]models.CatalogItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.CatalogItem{
			ItemID:   row.itemID(),
			Title:    row.Title,
			Img:      row.Img,
			Synopsis: html.UnescapeString(row.Synopsis),
		})
	}

	return items, nil
}

type availabilityResponse struct {
	Results []struct {
		CountryCode string `json:"country_code"`
		Country     string `json:"country"`
		Audio       string `json:"audio"`
		Subtitle    string `json:"subtitle"`
	} `json:"results"`
}

// FetchAvailability returns the per-country availability for an item.
// Availability is best-effort enrichment: every failure degrades to an empty
// list instead of an error. The daily counter is incremented only when
// countUsage is set and a request is actually issued.
func (c *Client) FetchAvailability(ctx context.Context, itemID string, countUsage bool) []models.CountryAvailability {
	if !c.HasCredentials() {
		log.Printf("[catalog] missing API credentials; cannot fetch availability")
		return nil
	}

	availabilityURL := fmt.Sprintf("%s/title/countries?netflix_id=%s", c.baseURL, url.QueryEscape(itemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, availabilityURL, nil)
	if err != nil {
		log.Printf("[catalog] build availability request for %s: %v", itemID, err)
		return nil
	}
	c.setHeaders(req)

	if countUsage {
		c.usage.Increment()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[catalog] fetch availability for %s: %v", itemID, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("[catalog] availability request for %s failed with status %d", itemID, resp.StatusCode)
		return nil
	}

	var parsed availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Printf("[catalog] decode availability for %s: %v", itemID, err)
		return nil
	}

	availability := make([]models.CountryAvailability, 0, len(parsed.Results))
	for _, row := range parsed.Results {
		availability = append(availability, models.CountryAvailability{
			CountryCode: row.CountryCode,
			Country:     row.Country,
			Audio:       row.Audio,
			Subtitle:    row.Subtitle,
		})
	}

	return availability
}
