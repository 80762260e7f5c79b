package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_library_service.go -package=mocks -mock_names=LibraryService=MockLibraryService madison-ai/internal/service LibraryService

import (
	"context"
	"errors"
	"fmt"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/library"
	"madison-ai/internal/rag"
)

// Catalog lists the documents available for selection.
type Catalog interface {
	Scan(ctx context.Context) ([]library.Document, error)
	Lookup(label string) (library.Document, error)
	Read(label string) ([]byte, error)
}

// Prewarmer builds indexes ahead of questions.
type Prewarmer interface {
	Prewarm(ctx context.Context, labels []string, aggregate bool) (rag.PrewarmReport, error)
}

// LibraryService exposes the document library and index prewarming.
type LibraryService interface {
	// ListDocuments returns every document, sorted by label.
	ListDocuments(ctx context.Context) ([]library.Document, error)
	// GetDocument returns one document and its bytes. Returns ErrNotFound
	// for unknown labels.
	GetDocument(ctx context.Context, label string) (library.Document, []byte, error)
	// Prewarm indexes labels (every document when empty) and optionally the
	// all-documents aggregate.
	Prewarm(ctx context.Context, labels []string, aggregate bool) (rag.PrewarmReport, error)
}

type libraryService struct {
	catalog   Catalog
	prewarmer Prewarmer
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(catalog Catalog, prewarmer Prewarmer) LibraryService {
	return &libraryService{catalog: catalog, prewarmer: prewarmer}
}

func (s *libraryService) ListDocuments(ctx context.Context) ([]library.Document, error) {
	docs, err := s.catalog.Scan(ctx)
	if err != nil {
		return nil, WrapError(err, "failed to list documents")
	}
	return docs, nil
}

func (s *libraryService) GetDocument(ctx context.Context, label string) (library.Document, []byte, error) {
	doc, err := s.catalog.Lookup(label)
	if err == nil {
		var data []byte
		if data, err = s.catalog.Read(label); err == nil {
			return doc, data, nil
		}
	}
	if errors.Is(err, library.ErrNotFound) {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "document not found", "label", label)
		return library.Document{}, nil, fmt.Errorf("%w: document %q", ErrNotFound, label)
	}
	return library.Document{}, nil, WrapError(err, "failed to read document")
}

func (s *libraryService) Prewarm(ctx context.Context, labels []string, aggregate bool) (rag.PrewarmReport, error) {
	report, err := s.prewarmer.Prewarm(ctx, selection(labels), aggregate)
	if err != nil {
		return report, WrapError(err, "prewarm completed with errors")
	}
	return report, nil
}
