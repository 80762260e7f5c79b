package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
// Chunks are removed with their document by cascade.
type ChunkStore interface {
	// InsertBatch stores all chunks of an upload in one transaction.
	// Every chunk.ID must be set (UUID) before calling this method.
	InsertBatch(ctx context.Context, chunks []ChunkRecord) error
	// GetByIDs returns the chunks found for ids, keyed by ID. Unknown IDs
	// are absent from the map.
	GetByIDs(ctx context.Context, ids []string) (map[string]ChunkRecord, error)
}

// ChunkRepo implements ChunkStore on SQLite.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// InsertBatch stores chunks atomically: either all rows land or none do.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []ChunkRecord) (err error) {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin chunk transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (id, document_id, chunk_index, heading_path, text) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, c := range chunks {
		if _, err = stmt.ExecContext(ctx, c.ID, c.DocumentID, c.ChunkIndex, c.HeadingPath, c.Text); err != nil {
			return fmt.Errorf("failed to insert chunk %d of document %s: %w", c.ChunkIndex, c.DocumentID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// GetByIDs loads chunks for a set of vector point IDs.
func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []string) (map[string]ChunkRecord, error) {
	found := make(map[string]ChunkRecord, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, document_id, chunk_index, heading_path, text FROM chunks WHERE id IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			c       ChunkRecord
			heading sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &heading, &c.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.HeadingPath = heading.String
		found[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return found, nil
}
