// Package localcache mirrors the wire-format row set and a small set
// of settings into the local SQLite database. The mirror makes the last
// known trip available when the remote store is unreachable at startup.
package localcache

import (
	"database/sql"
	"fmt"
	"time"
)

// RowCache stores the last serialized snapshot, one table row per wire
// row.
type RowCache struct {
	db *sql.DB
}

// NewRowCache creates a row cache backed by db.
func NewRowCache(db *sql.DB) *RowCache {
	return &RowCache{db: db}
}

// SaveRows replaces the mirrored row set atomically.
func (c *RowCache) SaveRows(rows map[string]string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshot_rows`); err != nil {
		return fmt.Errorf("clear snapshot rows: %w", err)
	}
	now := time.Now().UTC()
	for key, value := range rows {
		if _, err := tx.Exec(
			`INSERT INTO snapshot_rows (key, value, updated_at) VALUES (?, ?, ?)`,
			key, value, now,
		); err != nil {
			return fmt.Errorf("insert snapshot row %q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadRows returns the mirrored row set. An empty map means no snapshot
// has been mirrored yet.
func (c *RowCache) LoadRows() (map[string]string, error) {
	rows, err := c.db.Query(`SELECT key, value FROM snapshot_rows`)
	if err != nil {
		return nil, fmt.Errorf("load snapshot rows: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}
