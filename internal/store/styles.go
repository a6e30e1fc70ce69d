package store

import (
	"context"
	"fmt"

	"github.com/roach88/citesync/internal/canon"
)

// StyleRecord is an installed style.
type StyleRecord struct {
	ID         string
	Title      string
	Source     string
	SourceHash string
	Origin     string
}

// PutStyle installs or replaces a style by id.
func (s *Store) PutStyle(ctx context.Context, rec StyleRecord) error {
	hash, err := canon.Hash(canon.DomainStyle, map[string]any{
		"id":     rec.ID,
		"source": rec.Source,
	})
	if err != nil {
		return fmt.Errorf("put style %s: %w", rec.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO styles (style_id, title, source, source_hash, origin)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(style_id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			source_hash = excluded.source_hash,
			origin = excluded.origin
	`, rec.ID, rec.Title, rec.Source, hash, rec.Origin)
	if err != nil {
		return fmt.Errorf("put style %s: %w", rec.ID, err)
	}
	return nil
}

// ListStyles returns installed styles ordered by id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListStyles(ctx context.Context) ([]StyleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT style_id, title, source, source_hash, origin
		FROM styles
		ORDER BY style_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query styles: %w", err)
	}
	defer rows.Close()

	styles := []StyleRecord{}
	for rows.Next() {
		var rec StyleRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Source, &rec.SourceHash, &rec.Origin); err != nil {
			return nil, fmt.Errorf("scan style: %w", err)
		}
		styles = append(styles, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate styles: %w", err)
	}
	return styles, nil
}
