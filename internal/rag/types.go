package rag

import (
	"madison-ai/internal/citation"
	"madison-ai/internal/indexcache"
	"madison-ai/internal/llm"
)

// FallbackReply is returned when the service produced no usable text.
const FallbackReply = "Sorry, I couldn't find anything in the selected documents to answer that."

// AskRequest is one question against a selection of documents.
type AskRequest struct {
	// Question is the user's current question.
	Question string
	// Documents are the selected document labels, in selection order.
	Documents []string
	// Model overrides the configured answer model when set.
	Model string
	// Conversation holds earlier turns, oldest first, without the question.
	Conversation []llm.Message
}

// AskResponse is the reconciled answer.
type AskResponse struct {
	Reply   string
	Sources []citation.Source
	// Context holds the per-document excerpts used in extract mode.
	Context []string
}

// AggregatePolicy decides the scope for three or more selected documents.
type AggregatePolicy string

const (
	// AggregateAll queries one index spanning every document in the library.
	AggregateAll AggregatePolicy = "all"
	// AggregateSelection queries one index spanning exactly the selection.
	AggregateSelection AggregatePolicy = "selection"
	// AggregateIndividual queries each selected document's own index.
	AggregateIndividual AggregatePolicy = "individual"
)

// DispatchMode selects how a scoped question reaches the service.
type DispatchMode string

const (
	// DispatchIndexed queries the service's retrieval indexes.
	DispatchIndexed DispatchMode = "indexed"
	// DispatchExtract asks for excerpts from each document, then synthesizes.
	DispatchExtract DispatchMode = "extract"
)

// ScopeKind names how a selection was resolved.
type ScopeKind string

const (
	ScopeNone         ScopeKind = "none"
	ScopeDocument     ScopeKind = "document"
	ScopePair         ScopeKind = "pair"
	ScopeAllDocuments ScopeKind = "all_documents"
	ScopeSelection    ScopeKind = "selection"
	ScopeIndividual   ScopeKind = "individual"
)

// Scope is the set of indexes one question runs against.
type Scope struct {
	Kind     ScopeKind
	IndexIDs []string
	// Labels are the documents the question is about, in selection order.
	// After an entity override this is the single preferred document.
	Labels []string
	// Records holds the per-document cache records of Labels.
	Records map[string]indexcache.Record
}

// Empty reports whether the scope has no indexes to query.
func (s Scope) Empty() bool {
	return len(s.IndexIDs) == 0
}
