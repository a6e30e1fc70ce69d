package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ItemRecord is a stored reference item.
type ItemRecord struct {
	ID       int64
	Key      string
	Data     json.RawMessage
	DataHash string
	Version  int
	URIs     []string
}

// CreateItem inserts an item and its URIs in one transaction and returns the
// assigned id.
func (s *Store) CreateItem(ctx context.Context, key string, data json.RawMessage, uris []string) (int64, error) {
	text, hash, err := normalizeItemData(data)
	if err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create item: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO items (key, data, data_hash, version)
		VALUES (?, ?, ?, 1)
	`, key, text, hash)
	if err != nil {
		return 0, fmt.Errorf("create item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create item: last insert id: %w", err)
	}

	for _, uri := range uris {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO item_uris (uri, item_id) VALUES (?, ?)
			ON CONFLICT(uri) DO UPDATE SET item_id = excluded.item_id
		`, uri, id); err != nil {
			return 0, fmt.Errorf("create item: uri %s: %w", uri, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create item: commit: %w", err)
	}
	return id, nil
}

// UpdateItem replaces an item's data. The version is bumped only when the
// canonical data actually changes.
func (s *Store) UpdateItem(ctx context.Context, id int64, data json.RawMessage) error {
	text, hash, err := normalizeItemData(data)
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET data = ?, data_hash = ?,
		    version = CASE WHEN data_hash = ? THEN version ELSE version + 1 END
		WHERE id = ?
	`, text, hash, hash, id)
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update item %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update item %d: %w", id, ErrNotFound)
	}
	return nil
}

// ItemByID returns the item with the given id.
func (s *Store) ItemByID(ctx context.Context, id int64) (ItemRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, data, data_hash, version FROM items WHERE id = ?
	`, id)
	rec, err := scanItem(row)
	if err != nil {
		return ItemRecord{}, fmt.Errorf("item %d: %w", id, err)
	}
	return s.withURIs(ctx, rec)
}

// ItemByURI returns the item a URI points at.
func (s *Store) ItemByURI(ctx context.Context, uri string) (ItemRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.key, i.data, i.data_hash, i.version
		FROM item_uris u JOIN items i ON i.id = u.item_id
		WHERE u.uri = ?
	`, uri)
	rec, err := scanItem(row)
	if err != nil {
		return ItemRecord{}, fmt.Errorf("item %s: %w", uri, err)
	}
	return s.withURIs(ctx, rec)
}

// ListItems returns all items ordered by id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListItems(ctx context.Context) ([]ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, key, data, data_hash, version FROM items ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []ItemRecord{}
	for rows.Next() {
		rec, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	for i := range items {
		if items[i], err = s.withURIs(ctx, items[i]); err != nil {
			return nil, err
		}
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (ItemRecord, error) {
	var rec ItemRecord
	var data string
	if err := row.Scan(&rec.ID, &rec.Key, &data, &rec.DataHash, &rec.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ItemRecord{}, ErrNotFound
		}
		return ItemRecord{}, fmt.Errorf("scan item: %w", err)
	}
	rec.Data = json.RawMessage(data)
	return rec, nil
}

func (s *Store) withURIs(ctx context.Context, rec ItemRecord) (ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uri FROM item_uris WHERE item_id = ? ORDER BY uri COLLATE BINARY ASC
	`, rec.ID)
	if err != nil {
		return ItemRecord{}, fmt.Errorf("query item uris: %w", err)
	}
	defer rows.Close()

	rec.URIs = []string{}
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return ItemRecord{}, fmt.Errorf("scan item uri: %w", err)
		}
		rec.URIs = append(rec.URIs, uri)
	}
	if err := rows.Err(); err != nil {
		return ItemRecord{}, fmt.Errorf("iterate item uris: %w", err)
	}
	return rec, nil
}
