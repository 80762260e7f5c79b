package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/indexcache"
	"madison-ai/internal/library"
)

// Aggregator resolves a document selection to a retrieval scope.
type Aggregator struct {
	indexer *Indexer
	docs    Documents
	cache   *indexcache.Cache
	pairs   *indexcache.Cache
	policy  AggregatePolicy
}

// NewAggregator creates an aggregator. Two-document aggregates are kept in
// pairs, which may be the persistent cache or a process-local one.
func NewAggregator(indexer *Indexer, docs Documents, cache, pairs *indexcache.Cache, policy AggregatePolicy) *Aggregator {
	if pairs == nil {
		pairs = cache
	}
	if policy == "" {
		policy = AggregateAll
	}
	return &Aggregator{
		indexer: indexer,
		docs:    docs,
		cache:   cache,
		pairs:   pairs,
		policy:  policy,
	}
}

// Resolve picks the indexes a question about labels should run against:
//
//   - no documents: an empty scope (unscoped completion)
//   - one document: its own index
//   - two documents: a combined index over both
//   - three or more: per the aggregate policy
//
// With one or two documents, a question naming exactly one selected
// document's lexical head narrows the scope to that document. Labels
// without a backing file are dropped before counting.
func (a *Aggregator) Resolve(ctx context.Context, labels []string, question string) (Scope, error) {
	logger := contextutil.LoggerFromContext(ctx)

	selected := a.existing(ctx, labels)
	if len(selected) < 3 {
		if preferred, ok := PreferredDocument(selected, question); ok && len(selected) > 1 {
			logger.InfoContext(ctx, "question names one selected document, narrowing scope", "label", preferred)
			selected = []string{preferred}
		}
	}

	var (
		scope Scope
		err   error
	)
	switch n := len(selected); {
	case n == 0:
		scope = Scope{Kind: ScopeNone}
	case n == 1:
		scope, err = a.single(ctx, selected[0])
	case n == 2:
		scope, err = a.pair(ctx, selected)
	default:
		switch a.policy {
		case AggregateSelection:
			scope, err = a.selection(ctx, selected)
		case AggregateIndividual:
			scope, err = a.individual(ctx, selected)
		default:
			scope, err = a.allDocuments(ctx, selected)
		}
	}
	if err != nil {
		return Scope{}, err
	}

	logger.InfoContext(ctx, "retrieval scope resolved", "kind", scope.Kind, "documents", scope.Labels, "indexes", len(scope.IndexIDs))
	return scope, nil
}

// PreferredDocument returns the single label whose lexical head occurs in
// question, case-insensitively. It reports false when none or several do.
func PreferredDocument(labels []string, question string) (string, bool) {
	q := strings.ToLower(question)
	match := ""
	for _, label := range labels {
		head := library.LexicalHead(label)
		if head == "" || !strings.Contains(q, head) {
			continue
		}
		if match != "" {
			return "", false
		}
		match = label
	}
	return match, match != ""
}

// existing drops duplicates and labels with no backing file, keeping order.
func (a *Aggregator) existing(ctx context.Context, labels []string) []string {
	return existingLabels(ctx, a.docs, labels)
}

// existingLabels trims and deduplicates labels, keeping selection order and
// dropping those with no backing file.
func existingLabels(ctx context.Context, docs Documents, labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if _, dup := seen[label]; dup || label == "" {
			continue
		}
		seen[label] = struct{}{}
		if _, err := docs.Lookup(label); err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "selected document not found, skipping", "label", label, "error", err)
			continue
		}
		out = append(out, label)
	}
	return out
}

func (a *Aggregator) single(ctx context.Context, label string) (Scope, error) {
	rec, _, err := a.indexer.EnsureDocument(ctx, label)
	if errors.Is(err, library.ErrNotFound) {
		return Scope{Kind: ScopeNone}, nil
	}
	if err != nil {
		return Scope{}, err
	}
	return Scope{
		Kind:     ScopeDocument,
		IndexIDs: []string{rec.IndexID},
		Labels:   []string{label},
		Records:  map[string]indexcache.Record{label: rec},
	}, nil
}

func (a *Aggregator) pair(ctx context.Context, labels []string) (Scope, error) {
	records, present, err := a.ensureAll(ctx, labels)
	if err != nil {
		return Scope{}, err
	}
	if len(present) < 2 {
		return a.fromPresent(ctx, present)
	}

	first, second := records[present[0]], records[present[1]]
	key := indexcache.PairKey(first.ContentHash, second.ContentHash)
	combined := strings.TrimPrefix(key, indexcache.PairKeyPrefix)

	rec, err := a.indexer.EnsureAggregate(ctx, a.pairs, key, combined, "pair", documentIDs(present, records))
	if err != nil {
		return Scope{}, err
	}
	return Scope{Kind: ScopePair, IndexIDs: []string{rec.IndexID}, Labels: present, Records: records}, nil
}

func (a *Aggregator) selection(ctx context.Context, labels []string) (Scope, error) {
	records, present, err := a.ensureAll(ctx, labels)
	if err != nil {
		return Scope{}, err
	}
	if len(present) < 2 {
		return a.fromPresent(ctx, present)
	}

	key := indexcache.SelectionKey(hashes(present, records))
	combined := strings.TrimPrefix(key, indexcache.SelectionKeyPrefix)

	rec, err := a.indexer.EnsureAggregate(ctx, a.cache, key, combined, "selection", documentIDs(present, records))
	if err != nil {
		return Scope{}, err
	}
	return Scope{Kind: ScopeSelection, IndexIDs: []string{rec.IndexID}, Labels: present, Records: records}, nil
}

func (a *Aggregator) individual(ctx context.Context, labels []string) (Scope, error) {
	records, present, err := a.ensureAll(ctx, labels)
	if err != nil {
		return Scope{}, err
	}
	scope := Scope{Kind: ScopeIndividual, Labels: present, Records: records}
	for _, label := range present {
		scope.IndexIDs = append(scope.IndexIDs, records[label].IndexID)
	}
	if len(present) == 0 {
		scope.Kind = ScopeNone
	}
	return scope, nil
}

// allDocuments scopes the question to one index spanning the whole library.
// Its combined hash covers every document's current hash in label order, so
// any change anywhere in the library rebuilds it.
func (a *Aggregator) allDocuments(ctx context.Context, selected []string) (Scope, error) {
	logger := contextutil.LoggerFromContext(ctx)

	all, err := a.docs.Labels(ctx)
	if err != nil {
		return Scope{}, fmt.Errorf("failed to list documents: %w", err)
	}

	batch, err := a.indexer.EnsureDocuments(ctx, all)
	for _, label := range selected {
		if _, ok := batch.Records[label]; !ok {
			if err == nil {
				err = fmt.Errorf("selected document %q was not indexed", label)
			}
			return Scope{}, err
		}
	}
	if err != nil {
		logger.WarnContext(ctx, "some library documents failed to index, aggregating the rest", "error", err)
	}

	// Labels() is sorted, so the member order is stable.
	members := make([]string, 0, len(all))
	for _, label := range all {
		if _, ok := batch.Records[label]; ok {
			members = append(members, label)
		}
	}

	combined := indexcache.CombinedHash(hashes(members, batch.Records))
	rec, err := a.indexer.EnsureAggregate(ctx, a.cache, indexcache.AllDocumentsKey, combined, "all-documents", documentIDs(members, batch.Records))
	if err != nil {
		return Scope{}, err
	}
	return Scope{Kind: ScopeAllDocuments, IndexIDs: []string{rec.IndexID}, Labels: selected, Records: batch.Records}, nil
}

// ensureAll indexes labels and returns their records together with the
// labels that still had a backing file, in the given order.
func (a *Aggregator) ensureAll(ctx context.Context, labels []string) (map[string]indexcache.Record, []string, error) {
	batch, err := a.indexer.EnsureDocuments(ctx, labels)
	if err != nil {
		return nil, nil, err
	}
	present := make([]string, 0, len(labels))
	for _, label := range labels {
		if _, ok := batch.Records[label]; ok {
			present = append(present, label)
		}
	}
	return batch.Records, present, nil
}

// fromPresent handles a selection that shrank below two documents because
// files disappeared mid-request.
func (a *Aggregator) fromPresent(ctx context.Context, present []string) (Scope, error) {
	if len(present) == 0 {
		return Scope{Kind: ScopeNone}, nil
	}
	return a.single(ctx, present[0])
}

func hashes(labels []string, records map[string]indexcache.Record) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		out = append(out, records[label].ContentHash)
	}
	return out
}

func documentIDs(labels []string, records map[string]indexcache.Record) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if id := records[label].DocumentID; id != "" {
			out = append(out, id)
		}
	}
	return out
}
