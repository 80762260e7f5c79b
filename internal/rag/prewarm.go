package rag

import (
	"context"
	"fmt"
	"slices"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/library"
)

// Prewarmer builds indexes ahead of questions so the first query over a
// document does not pay for indexing.
type Prewarmer struct {
	indexer    *Indexer
	aggregator *Aggregator
	docs       Documents
}

// NewPrewarmer creates a prewarmer.
func NewPrewarmer(indexer *Indexer, aggregator *Aggregator, docs Documents) *Prewarmer {
	return &Prewarmer{indexer: indexer, aggregator: aggregator, docs: docs}
}

// PrewarmReport summarizes one prewarm run.
type PrewarmReport struct {
	Built   []string `json:"built"`
	Skipped []string `json:"skipped"`
	Missing []string `json:"missing,omitempty"`
	// AggregateIndexID is set when the all-documents aggregate was ensured.
	AggregateIndexID string `json:"aggregateIndexId,omitempty"`
}

// Prewarm indexes labels, or the whole library when labels is empty, and
// optionally the all-documents aggregate. Documents whose content is
// unchanged are skipped. A failure on one document does not stop the others;
// all failures are returned together.
func (p *Prewarmer) Prewarm(ctx context.Context, labels []string, aggregate bool) (PrewarmReport, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(labels) == 0 {
		all, err := p.docs.Labels(ctx)
		if err != nil {
			return PrewarmReport{}, fmt.Errorf("failed to list documents: %w", err)
		}
		labels = all
	}

	batch, err := p.indexer.EnsureDocuments(ctx, labels)
	report := PrewarmReport{Built: batch.Built, Missing: batch.Missing}
	for _, label := range labels {
		if _, ok := batch.Records[label]; ok && !slices.Contains(batch.Built, label) {
			report.Skipped = append(report.Skipped, label)
		}
	}
	slices.Sort(report.Built)
	slices.Sort(report.Missing)

	for _, label := range report.Skipped {
		logger.InfoContext(ctx, "prewarm skip, unchanged", "label", label)
	}
	for _, label := range report.Built {
		logger.InfoContext(ctx, "prewarm built", "label", label, "index_id", batch.Records[label].IndexID)
	}
	if err != nil {
		logger.ErrorContext(ctx, "prewarm failed for some documents", "error", err)
		return report, err
	}

	if aggregate {
		scope, err := p.aggregator.allDocuments(ctx, nil)
		if err != nil {
			return report, fmt.Errorf("failed to build all-documents index: %w", err)
		}
		report.AggregateIndexID = scope.IndexIDs[0]
		logger.InfoContext(ctx, "prewarm aggregate ready", "index_id", report.AggregateIndexID)
	}

	logger.InfoContext(ctx, "prewarm done", "built", len(report.Built), "skipped", len(report.Skipped), "missing", len(report.Missing))
	return report, nil
}

// Watch re-indexes documents as change events arrive, until events is
// closed or ctx is done. Failures are logged and watching continues.
func (p *Prewarmer) Watch(ctx context.Context, events <-chan library.Event, aggregate bool) {
	logger := contextutil.LoggerFromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Op != library.Changed {
				logger.InfoContext(ctx, "document removed, keeping its cached index", "label", ev.Label)
				continue
			}
			if _, err := p.Prewarm(ctx, []string{ev.Label}, aggregate); err != nil {
				logger.ErrorContext(ctx, "re-index after change failed", "label", ev.Label, "error", err)
			}
		}
	}
}
