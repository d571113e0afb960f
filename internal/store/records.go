package store

import (
	"context"
	"fmt"
	"time"
)

// The records table is a per-user document store: one JSONB document per
// (user, kind, id). The portfolio layer owns the document shapes; the store
// only moves bytes.

// ListRecords returns all documents of one kind for a user
func (db *DB) ListRecords(ctx context.Context, userID, kind string) ([][]byte, error) {
	query := `
		SELECT doc
		FROM records
		WHERE user_id = $1 AND kind = $2
		ORDER BY updated_at ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return docs, nil
}

// PutRecord inserts or fully overwrites a document (last write wins)
func (db *DB) PutRecord(ctx context.Context, userID, kind, id string, doc []byte) error {
	query := `
		INSERT INTO records (user_id, kind, id, doc, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, kind, id) DO UPDATE SET
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at
	`
	_, err := db.conn.ExecContext(ctx, query, userID, kind, id, doc, time.Now())
	if err != nil {
		return fmt.Errorf("failed to put record: %w", err)
	}
	return nil
}

// DeleteRecord removes a document by id
func (db *DB) DeleteRecord(ctx context.Context, userID, kind, id string) error {
	query := `DELETE FROM records WHERE user_id = $1 AND kind = $2 AND id = $3`
	result, err := db.conn.ExecContext(ctx, query, userID, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("record not found: %s/%s", kind, id)
	}
	return nil
}
