package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// IndexStore defines the interface for local index operations.
type IndexStore interface {
	// Create creates an index with the given name and status.
	Create(ctx context.Context, name, status string) (*LocalIndex, error)
	// GetByID gets an index by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*LocalIndex, error)
	// SetStatus updates an index's status. Returns ErrNotFound if not found.
	SetStatus(ctx context.Context, id, status string) error
	// AddDocuments adds documents to an index; already present ones are ignored.
	AddDocuments(ctx context.Context, indexID string, documentIDs []string) error
	// ListDocumentIDs returns the IDs of an index's documents.
	ListDocumentIDs(ctx context.Context, indexID string) ([]string, error)
}

// IndexRepo provides methods for local index operations.
// It implements the IndexStore interface.
type IndexRepo struct {
	db *sql.DB
}

// NewIndexRepo creates a new IndexRepo.
func NewIndexRepo(db *sql.DB) *IndexRepo {
	return &IndexRepo{db: db}
}

// Create creates an index and returns it with its timestamp.
func (r *IndexRepo) Create(ctx context.Context, name, status string) (*LocalIndex, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO local_indexes (id, name, status) VALUES (?, ?, ?)",
		id, name, status,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert index: %w", err)
	}

	// Get the created index with timestamp
	return r.GetByID(ctx, id)
}

// GetByID gets an index by ID.
func (r *IndexRepo) GetByID(ctx context.Context, id string) (*LocalIndex, error) {
	var index LocalIndex
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, status, created_at FROM local_indexes WHERE id = ?",
		id,
	).Scan(&index.ID, &index.Name, &index.Status, &createdAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	index.CreatedAt, err = parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	return &index, nil
}

// SetStatus updates an index's status.
func (r *IndexRepo) SetStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE local_indexes SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update index status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddDocuments adds documents to an index in one transaction.
func (r *IndexRepo) AddDocuments(ctx context.Context, indexID string, documentIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, documentID := range documentIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO local_index_documents (index_id, document_id) VALUES (?, ?)",
			indexID, documentID,
		); err != nil {
			return fmt.Errorf("failed to add document %s to index: %w", documentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index documents: %w", err)
	}
	return nil
}

// ListDocumentIDs returns an index's document IDs ordered by ID.
// Returns an empty slice if the index has no documents (not an error).
func (r *IndexRepo) ListDocumentIDs(ctx context.Context, indexID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT document_id FROM local_index_documents WHERE index_id = ? ORDER BY document_id",
		indexID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query index documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}
