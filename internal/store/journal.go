package store

import (
	"context"
	"fmt"

	"github.com/roach88/citesync/internal/canon"
)

// JournalRecord describes one completed document command.
type JournalRecord struct {
	ID         string
	DocID      string
	Seq        int64
	Command    string
	Status     string
	Writes     int
	Inserted   int
	NewIndices []int
}

// JournalID computes the content-addressed id of a record.
func JournalID(rec JournalRecord) (string, error) {
	indices := make([]any, len(rec.NewIndices))
	for i, n := range rec.NewIndices {
		indices[i] = n
	}
	return canon.Hash(canon.DomainJournal, map[string]any{
		"doc_id":      rec.DocID,
		"seq":         rec.Seq,
		"command":     rec.Command,
		"status":      rec.Status,
		"writes":      rec.Writes,
		"inserted":    rec.Inserted,
		"new_indices": indices,
	})
}

// AppendJournal writes a journal record, computing its id when empty.
// Uses ON CONFLICT DO NOTHING for idempotency: a record with the same id or
// the same (doc_id, seq) is silently ignored and inserted is false.
func (s *Store) AppendJournal(ctx context.Context, rec JournalRecord) (inserted bool, err error) {
	if rec.ID == "" {
		if rec.ID, err = JournalID(rec); err != nil {
			return false, fmt.Errorf("append journal: %w", err)
		}
	}
	indices, err := marshalIndices(rec.NewIndices)
	if err != nil {
		return false, fmt.Errorf("append journal: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (id, doc_id, seq, command, status, writes, inserted, new_indices)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, rec.ID, rec.DocID, rec.Seq, rec.Command, rec.Status, rec.Writes, rec.Inserted, indices)
	if err != nil {
		return false, fmt.Errorf("append journal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append journal: %w", err)
	}
	return n > 0, nil
}

// NextJournalSeq returns the next sequence number for a document.
func (s *Store) NextJournalSeq(ctx context.Context, docID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM journal WHERE doc_id = ?
	`, docID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next journal seq: %w", err)
	}
	return seq, nil
}

// ListJournal returns journal records, for one document when docID is set,
// ordered by doc_id then seq.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListJournal(ctx context.Context, docID string) ([]JournalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, doc_id, seq, command, status, writes, inserted, new_indices
		FROM journal
		WHERE ? = '' OR doc_id = ?
		ORDER BY doc_id COLLATE BINARY ASC, seq ASC
	`, docID, docID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	records := []JournalRecord{}
	for rows.Next() {
		var rec JournalRecord
		var indices string
		if err := rows.Scan(&rec.ID, &rec.DocID, &rec.Seq, &rec.Command, &rec.Status, &rec.Writes, &rec.Inserted, &indices); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		if rec.NewIndices, err = unmarshalIndices(indices); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return records, nil
}
