package rag

import (
	"context"
	"errors"
	"sort"
	"strings"

	"madison-ai/internal/answer"
	"madison-ai/internal/citation"
	"madison-ai/internal/contextutil"
	"madison-ai/internal/indexcache"
	"madison-ai/internal/library"
	"madison-ai/internal/llm"
)

// Engine answers questions against selected documents.
type Engine interface {
	// Ask resolves the selection, queries the service and reconciles the
	// answer's quotes with the service's citations.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// ragEngine implements Engine.
type ragEngine struct {
	aggregator *Aggregator
	dispatcher *Dispatcher
	cache      *indexcache.Cache
	docs       Documents
	mode       DispatchMode
}

// NewEngine creates an Engine.
func NewEngine(aggregator *Aggregator, dispatcher *Dispatcher, cache *indexcache.Cache, docs Documents, mode DispatchMode) Engine {
	if mode == "" {
		mode = DispatchIndexed
	}
	return &ragEngine{
		aggregator: aggregator,
		dispatcher: dispatcher,
		cache:      cache,
		docs:       docs,
		mode:       mode,
	}
}

// Ask answers req.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	logger.InfoContext(ctx, "question received",
		"question_length", len(req.Question),
		"documents", req.Documents,
		"mode", e.mode,
		"turns", len(req.Conversation),
	)

	q := Question{Text: req.Question, Conversation: req.Conversation, Model: req.Model}

	// Missing labels are dropped first in both modes, so a selection with no
	// backing files is answered unscoped.
	if e.mode == DispatchExtract {
		if labels := existingLabels(ctx, e.docs, req.Documents); len(labels) > 0 {
			return e.askExtract(ctx, labels, q)
		}
	}

	scope, err := e.aggregator.Resolve(ctx, req.Documents, req.Question)
	if err != nil {
		return AskResponse{}, err
	}

	if scope.Empty() {
		completion, err := e.dispatcher.Unscoped(ctx, q)
		if err != nil {
			return AskResponse{}, err
		}
		return e.unscopedResponse(ctx, completion), nil
	}

	completion, err := e.dispatcher.Indexed(ctx, scope.IndexIDs, q)
	if err != nil {
		return AskResponse{}, err
	}
	return e.reconcile(ctx, scope, completion), nil
}

func (e *ragEngine) askExtract(ctx context.Context, labels []string, q Question) (AskResponse, error) {
	extraction, err := e.dispatcher.Extract(ctx, labels, q)
	if err != nil {
		return AskResponse{}, err
	}
	reply := extraction.Completion.Text
	if reply == "" {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "no excerpts or answer produced, using fallback reply")
		reply = FallbackReply
	}
	return AskResponse{Reply: reply, Context: extraction.Excerpts}, nil
}

// unscopedResponse never carries sources: nothing was retrieved.
func (e *ragEngine) unscopedResponse(ctx context.Context, completion llm.Completion) AskResponse {
	text := strings.TrimSpace(completion.Text)
	if payload, err := answer.Parse(text); err == nil && payload.Answer != "" {
		text = payload.Answer
	}
	if text == "" {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "empty completion, using fallback reply")
		text = FallbackReply
	}
	return AskResponse{Reply: text}
}

// reconcile turns an indexed completion into the reply and its sources.
// A structured payload supplies the reply and, when it has quotes, sources
// aligned to those quotes. Otherwise the raw text is the reply and the
// service's citations, deduplicated, are the sources.
func (e *ragEngine) reconcile(ctx context.Context, scope Scope, completion llm.Completion) AskResponse {
	logger := contextutil.LoggerFromContext(ctx)

	text := strings.TrimSpace(completion.Text)
	if text == "" {
		logger.WarnContext(ctx, "empty completion, using fallback reply")
		return AskResponse{Reply: FallbackReply}
	}

	annotations := make([]citation.Annotation, 0, len(completion.Citations))
	for _, c := range completion.Citations {
		annotations = append(annotations, citation.Annotation{DocumentID: c.DocumentID, Quote: c.Quote})
	}
	reconciler := e.reconciler(ctx, scope)

	payload, err := answer.Parse(text)
	if err != nil {
		logger.WarnContext(ctx, "completion is not a structured payload, using raw text", "error", err)
		return AskResponse{Reply: text, Sources: reconciler.Sources(annotations)}
	}

	reply := payload.Answer
	if strings.TrimSpace(reply) == "" {
		logger.WarnContext(ctx, "structured payload has an empty answer, using fallback reply")
		reply = FallbackReply
	}

	var sources []citation.Source
	if len(payload.Quotes) > 0 {
		sources = reconciler.Reconcile(payload.Quotes, annotations)
	} else {
		sources = reconciler.Sources(annotations)
	}

	logger.InfoContext(ctx, "answer reconciled", "quotes", len(payload.Quotes), "citations", len(annotations), "sources", len(sources))
	return AskResponse{Reply: reply, Sources: sources}
}

// reconciler builds a citation reconciler over the scope's documents, in
// selection order, with their text loaded for fallback matching.
func (e *ragEngine) reconciler(ctx context.Context, scope Scope) *citation.Reconciler {
	logger := contextutil.LoggerFromContext(ctx)

	selected := make([]citation.Document, 0, len(scope.Labels))
	byID := documentLabels(scope)

	for _, label := range scope.Labels {
		doc := citation.Document{Label: label, DocumentID: scope.Records[label].DocumentID}
		data, err := e.docs.Read(label)
		switch {
		case errors.Is(err, library.ErrNotFound):
			logger.WarnContext(ctx, "document disappeared before reconciliation", "label", label)
		case err != nil:
			logger.WarnContext(ctx, "failed to read document for reconciliation", "label", label, "error", err)
		default:
			doc.Text = string(data)
		}
		selected = append(selected, doc)
	}

	return &citation.Reconciler{
		Selected: selected,
		LabelFor: func(documentID string) (string, bool) {
			if label, ok := byID[documentID]; ok {
				return label, true
			}
			return e.cache.LabelForDocument(ctx, documentID)
		},
	}
}

// documentLabels maps document IDs to labels. Selected labels claim their
// IDs first, in selection order; the remaining records follow in label order,
// so a document shared by identical files always resolves to the same label.
func documentLabels(scope Scope) map[string]string {
	byID := make(map[string]string, len(scope.Records))
	claim := func(label string) {
		id := scope.Records[label].DocumentID
		if _, taken := byID[id]; id != "" && !taken {
			byID[id] = label
		}
	}

	for _, label := range scope.Labels {
		claim(label)
	}
	rest := make([]string, 0, len(scope.Records))
	for label := range scope.Records {
		rest = append(rest, label)
	}
	sort.Strings(rest)
	for _, label := range rest {
		claim(label)
	}
	return byID
}
