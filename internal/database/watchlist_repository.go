package database

import (
	"database/sql"
	"fmt"
	"log"

	"watchvault/models"
)

// WatchlistRepository provides CRUD access to saved watchlist items and their
// country availability records. Each operation commits as a single unit; a
// save that finds the item already present is a no-op.
type WatchlistRepository struct {
	db *sql.DB
}

// NewWatchlistRepository creates a repository around an open connection.
func NewWatchlistRepository(db *sql.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// List returns every saved item with its availability records eagerly loaded.
func (r *WatchlistRepository) List() ([]models.SavedItem, error) {
	rows, err := r.db.Query(`SELECT item_id, title, synopsis, img FROM saved_items ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query saved items: %w", err)
	}
	defer rows.Close()

	var items []models.SavedItem
	for rows.Next() {
		var item models.SavedItem
		if err := rows.Scan(&item.ItemID, &item.Title, &item.Synopsis, &item.Img); err != nil {
			return nil, fmt.Errorf("scan saved item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved items: %w", err)
	}

	for i := range items {
		availability, err := r.listAvailability(items[i].ItemID)
		if err != nil {
			return nil, err
		}
		items[i].Availability = availability
	}

	return items, nil
}

func (r *WatchlistRepository) listAvailability(itemID string) ([]models.CountryAvailability, error) {
	rows, err := r.db.Query(
		`SELECT country_code, country, audio, subtitle FROM saved_availability WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query availability for %s: %w", itemID, err)
	}
	defer rows.Close()

	var availability []models.CountryAvailability
	for rows.Next() {
		var a models.CountryAvailability
		if err := rows.Scan(&a.CountryCode, &a.Country, &a.Audio, &a.Subtitle); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		availability = append(availability, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability: %w", err)
	}

	return availability, nil
}

// Exists reports whether an item with the given identifier is already saved.
func (r *WatchlistRepository) Exists(itemID string) (bool, error) {
	var found int
	err := r.db.QueryRow(`SELECT 1 FROM saved_items WHERE item_id = ? LIMIT 1`, itemID).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check existence of %s: %w", itemID, err)
	}
	return true, nil
}

// Save persists a catalog item and its availability records. Saving an
// identifier that already exists is a no-op, so the watchlist never holds
// duplicates.
func (r *WatchlistRepository) Save(item models.CatalogItem, availability []models.CountryAvailability) error {
	exists, err := r.Exists(item.ItemID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO saved_items (item_id, title, synopsis, img) VALUES (?, ?, ?, ?)`,
		item.ItemID, item.Title, item.Synopsis, item.Img,
	); err != nil {
		return fmt.Errorf("insert saved item %s: %w", item.ItemID, err)
	}

	for _, a := range availability {
		if _, err := tx.Exec(
			`INSERT INTO saved_availability (item_id, country_code, country, audio, subtitle) VALUES (?, ?, ?, ?, ?)`,
			item.ItemID, a.CountryCode, a.Country, a.Audio, a.Subtitle,
		); err != nil {
			return fmt.Errorf("insert availability for %s: %w", item.ItemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save for %s: %w", item.ItemID, err)
	}

	log.Printf("[database] saved %q with %d availability records", item.Title, len(availability))
	return nil
}

// Delete removes a saved item by identifier. Availability records cascade.
// Deleting an identifier that is not present is a no-op.
func (r *WatchlistRepository) Delete(itemID string) error {
	result, err := r.db.Exec(`DELETE FROM saved_items WHERE item_id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("delete saved item %s: %w", itemID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		log.Printf("[database] removed saved item %s", itemID)
	}
	return nil
}

// DeleteAll removes every saved item and, via cascade, all availability rows.
func (r *WatchlistRepository) DeleteAll() error {
	if _, err := r.db.Exec(`DELETE FROM saved_items`); err != nil {
		return fmt.Errorf("clear watchlist: %w", err)
	}
	return nil
}
