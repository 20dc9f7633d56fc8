package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/model"
)

// CreateItem posts a new found item. Items always start in ItemStatusFound.
func CreateItem(ctx context.Context, db DBTX, item model.Item) (*model.Item, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, user_id, title, description, category, found_city, found_state, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Title, item.Description, item.Category,
		item.FoundCity, item.FoundState, string(model.ItemStatusFound), item.CreatedAt, item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

const itemSelect = `SELECT i.id, i.user_id, i.title, i.description, i.category, i.found_city, i.found_state,
        i.status, i.created_at, i.updated_at, u.full_name
 FROM items i
 JOIN users u ON u.id = i.user_id`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var description, category, city, state sql.NullString
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Title, &description, &category, &city, &state,
		&item.Status, &item.CreatedAt, &item.UpdatedAt, &item.OwnerName); err != nil {
		return nil, err
	}
	item.Description = description.String
	item.Category = category.String
	item.FoundCity = city.String
	item.FoundState = state.String
	return item, nil
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db DBTX, id string) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ItemFilter narrows ListItems. Zero values match everything.
type ItemFilter struct {
	Status   model.ItemStatus
	Category string
	State    string
	City     string // substring match
	Search   string // substring of title or description
	OwnerID  string
	Limit    int // 0 means no limit
	Offset   int
}

// likePattern wraps s for a substring LIKE match, escaping wildcards.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// ListItems returns items matching the filter, newest first.
func ListItems(ctx context.Context, db DBTX, f ItemFilter) ([]model.Item, error) {
	query := itemSelect + ` WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, string(f.Status))
	}
	if f.Category != "" {
		query += ` AND i.category = ? COLLATE NOCASE`
		args = append(args, f.Category)
	}
	if f.State != "" {
		query += ` AND i.found_state = ? COLLATE NOCASE`
		args = append(args, f.State)
	}
	if f.City != "" {
		query += ` AND i.found_city LIKE ? ESCAPE '\'`
		args = append(args, likePattern(f.City))
	}
	if f.Search != "" {
		query += ` AND (i.title LIKE ? ESCAPE '\' OR i.description LIKE ? ESCAPE '\')`
		pattern := likePattern(f.Search)
		args = append(args, pattern, pattern)
	}
	if f.OwnerID != "" {
		query += ` AND i.user_id = ?`
		args = append(args, f.OwnerID)
	}

	query += ` ORDER BY i.created_at DESC, i.rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ItemUpdate holds the descriptive fields an owner may edit. Nil fields are
// left unchanged. Status is not editable; it only moves through claims.
type ItemUpdate struct {
	Title       *string
	Description *string
	Category    *string
}

// Empty reports whether u changes nothing.
func (u ItemUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil
}

// UpdateItem applies u to an item and reports whether the item exists.
func UpdateItem(ctx context.Context, db DBTX, id string, u ItemUpdate, now time.Time) (bool, error) {
	var sets []string
	var args []any
	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *u.Category)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, now, id)

	result, err := db.ExecContext(ctx,
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating item: %w", err)
	}
	return n == 1, nil
}

// DeleteItem removes an item together with its claims. It reports whether
// the item existed.
func DeleteItem(ctx context.Context, db DBTX, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting item: %w", err)
	}
	return n == 1, nil
}

// SetItemStatus moves an item to status only if it is currently in expected.
// It reports whether the row changed.
func SetItemStatus(ctx context.Context, db DBTX, id string, status, expected model.ItemStatus, now time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), now, id, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating item status: %w", err)
	}
	return n == 1, nil
}
