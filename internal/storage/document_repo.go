package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// DocumentStore defines the interface for uploaded document operations.
type DocumentStore interface {
	// Create stores a new document, assigning a UUID when doc.ID is empty.
	Create(ctx context.Context, doc *LocalDocument) error
	// GetByID gets a document by ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*LocalDocument, error)
	// GetByHash gets the most recent document uploaded with the given
	// content hash. Returns ErrNotFound if there is none.
	GetByHash(ctx context.Context, contentHash string) (*LocalDocument, error)
	// Delete removes a document and, by cascade, its chunks and index
	// memberships. Deleting a missing document is not an error.
	Delete(ctx context.Context, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create stores a new document.
func (r *DocumentRepo) Create(ctx context.Context, doc *LocalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO local_documents (id, filename, content_hash) VALUES (?, ?, ?)",
		doc.ID, doc.Filename, doc.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID gets a document by ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*LocalDocument, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT id, filename, content_hash, created_at FROM local_documents WHERE id = ?",
		id,
	))
}

// GetByHash gets the latest document with the given content hash.
func (r *DocumentRepo) GetByHash(ctx context.Context, contentHash string) (*LocalDocument, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT id, filename, content_hash, created_at FROM local_documents WHERE content_hash = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		contentHash,
	))
}

// Delete removes a document.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM local_documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) scanOne(row *sql.Row) (*LocalDocument, error) {
	var doc LocalDocument
	var createdAt string
	err := row.Scan(&doc.ID, &doc.Filename, &doc.ContentHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.CreatedAt, err = parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
