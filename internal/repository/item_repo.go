package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"naturequest/internal/database"
	"naturequest/internal/models"
)

// ItemRepository handles the items table and inventory grants
type ItemRepository struct {
	db database.DBTX
}

// NewItemRepository creates a new item repository
func NewItemRepository(db database.DBTX) *ItemRepository {
	return &ItemRepository{db: db}
}

func itemColumns(alias string) string {
	p := alias + "."
	return p + "id, " + p + "name, " + p + "description, " + p + "type, " + p + "rarity, " +
		p + "icon, " + p + "indigenous_name, " + p + "indigenous_meaning, " +
		"COALESCE(" + p + "stats, ''), COALESCE(" + p + "effects, ''), " +
		p + "level_requirement, " + p + "tradable, " + p + "max_stack"
}

func itemDest(item *models.Item, stats, effects *string) []any {
	return []any{
		&item.ID,
		&item.Name,
		&item.Description,
		&item.Type,
		&item.Rarity,
		&item.Icon,
		&item.IndigenousName,
		&item.IndigenousMeaning,
		stats,
		effects,
		&item.LevelRequirement,
		&item.Tradable,
		&item.MaxStack,
	}
}

// decodeItemJSON fills the stats and effects columns, stored as JSON text
func decodeItemJSON(item *models.Item, stats, effects string) error {
	if stats != "" {
		item.Stats = &models.Stats{}
		if err := json.Unmarshal([]byte(stats), item.Stats); err != nil {
			return fmt.Errorf("failed to decode stats of item %s: %w", item.ID, err)
		}
	}
	if effects != "" {
		if err := json.Unmarshal([]byte(effects), &item.Effects); err != nil {
			return fmt.Errorf("failed to decode effects of item %s: %w", item.ID, err)
		}
	}
	return nil
}

func encodeItemJSON(item models.Item) (stats, effects any, err error) {
	if item.Stats != nil {
		b, err := json.Marshal(item.Stats)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode stats of item %s: %w", item.ID, err)
		}
		stats = string(b)
	}
	if len(item.Effects) > 0 {
		b, err := json.Marshal(item.Effects)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode effects of item %s: %w", item.ID, err)
		}
		effects = string(b)
	}
	return stats, effects, nil
}

// SeedCatalog inserts the items that are not in the table yet and returns
// how many were added. Existing rows are left untouched.
func (r *ItemRepository) SeedCatalog(ctx context.Context, items []models.Item) (int, error) {
	added := 0
	for _, item := range items {
		var count int
		err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items WHERE id = ?", item.ID).Scan(&count)
		if err != nil {
			return added, fmt.Errorf("failed to check item %s: %w", item.ID, err)
		}
		if count > 0 {
			continue
		}

		stats, effects, err := encodeItemJSON(item)
		if err != nil {
			return added, err
		}
		query := `
			INSERT INTO items (id, name, description, type, rarity, icon, indigenous_name, indigenous_meaning,
				stats, effects, level_requirement, tradable, max_stack)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = r.db.ExecContext(ctx, query,
			item.ID, item.Name, item.Description, item.Type, item.Rarity, item.Icon,
			item.IndigenousName, item.IndigenousMeaning, stats, effects,
			item.LevelRequirement, item.Tradable, item.MaxStack,
		)
		if err != nil {
			return added, fmt.Errorf("failed to insert item %s: %w", item.ID, err)
		}
		added++
	}
	return added, nil
}

// List returns every item ordered by id
func (r *ItemRepository) List(ctx context.Context) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+itemColumns("items")+" FROM items ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		var stats, effects string
		if err := rows.Scan(itemDest(&item, &stats, &effects)...); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if err := decodeItemJSON(&item, stats, effects); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// GetByID retrieves an item, or nil when it does not exist
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	var stats, effects string
	err := r.db.QueryRowContext(ctx, "SELECT "+itemColumns("items")+" FROM items WHERE id = ?", id).
		Scan(itemDest(&item, &stats, &effects)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if err := decodeItemJSON(&item, stats, effects); err != nil {
		return nil, err
	}
	return &item, nil
}

// Grant adds quantity to the user's stack of itemID, creating it if needed
func (r *ItemRepository) Grant(ctx context.Context, userID, itemID string, quantity int, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE inventory SET quantity = quantity + ? WHERE user_id = ? AND item_id = ?",
		quantity, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	if ok, err := affected(result); err != nil || ok {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO inventory (user_id, item_id, quantity, equipped, acquired_at) VALUES (?, ?, ?, ?, ?)",
		userID, itemID, quantity, false, now)
	if err != nil {
		return fmt.Errorf("failed to insert inventory: %w", err)
	}
	return nil
}
