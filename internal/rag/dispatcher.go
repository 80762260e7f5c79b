package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/library"
	"madison-ai/internal/llm"
)

// answerTemperature is used for every completion the pipeline makes.
const answerTemperature = 0.2

// Dispatcher sends a question to the service in one of three ways: against
// retrieval indexes, as a plain completion, or as per-document extraction
// followed by synthesis.
type Dispatcher struct {
	backend      Backend
	docs         Documents
	waiter       *Waiter
	timeout      time.Duration
	limiter      *rate.Limiter
	extractModel string

	// ready remembers indexes already seen completed.
	ready sync.Map
}

// NewDispatcher creates a dispatcher. limiter throttles extraction calls and
// may be nil. timeout bounds the readiness wait before an indexed query.
func NewDispatcher(backend Backend, docs Documents, waiter *Waiter, timeout time.Duration, limiter *rate.Limiter, extractModel string) *Dispatcher {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &Dispatcher{
		backend:      backend,
		docs:         docs,
		waiter:       waiter,
		timeout:      timeout,
		limiter:      limiter,
		extractModel: extractModel,
	}
}

// Indexed queries the service with retrieval restricted to indexIDs. Indexes
// that are not yet ready are waited for; one that never becomes ready is
// queried anyway.
func (d *Dispatcher) Indexed(ctx context.Context, indexIDs []string, q Question) (llm.Completion, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := d.awaitReady(ctx, indexIDs); err != nil {
		return llm.Completion{}, err
	}

	logger.InfoContext(ctx, "querying indexes", "indexes", indexIDs, "model", q.Model)
	completion, err := d.backend.Query(ctx, llm.QueryRequest{
		IndexIDs:     indexIDs,
		Model:        q.Model,
		Instructions: indexedInstructions,
		Messages:     q.Messages(),
		Temperature:  answerTemperature,
	})
	if err != nil {
		logger.ErrorContext(ctx, "indexed query failed", "error", err)
		return llm.Completion{}, fmt.Errorf("failed to query indexes: %w", err)
	}

	logger.InfoContext(ctx, "indexed query completed", "answer_length", len(completion.Text), "citations", len(completion.Citations))
	return completion, nil
}

// Unscoped answers without retrieval.
func (d *Dispatcher) Unscoped(ctx context.Context, q Question) (llm.Completion, error) {
	logger := contextutil.LoggerFromContext(ctx)

	messages := append([]llm.Message{{Role: "system", Content: unscopedInstructions}}, q.Messages()...)
	text, err := d.backend.Complete(ctx, messages, llm.ChatParams{Model: q.Model, Temperature: answerTemperature})
	if err != nil {
		logger.ErrorContext(ctx, "unscoped completion failed", "error", err)
		return llm.Completion{}, fmt.Errorf("failed to get completion: %w", err)
	}

	logger.InfoContext(ctx, "unscoped completion received", "answer_length", len(text))
	return llm.Completion{Text: strings.TrimSpace(text)}, nil
}

// Extraction is the result of Extract.
type Extraction struct {
	Completion llm.Completion
	// Excerpts are the per-document excerpts, in selection order, each
	// prefixed with its document header.
	Excerpts []string
}

// Extract asks for relevant excerpts from each document concurrently, then
// composes an answer strictly from those excerpts. Documents that report no
// relevant text, or that have no backing file, contribute nothing. When no
// document contributes, no synthesis call is made and the completion is empty.
func (d *Dispatcher) Extract(ctx context.Context, labels []string, q Question) (Extraction, error) {
	logger := contextutil.LoggerFromContext(ctx)

	excerpts := make([]string, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	for i, label := range labels {
		g.Go(func() error {
			excerpt, err := d.extractOne(gctx, label, q)
			if err != nil {
				return err
			}
			excerpts[i] = excerpt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "extraction failed", "error", err)
		return Extraction{}, err
	}

	found := excerpts[:0]
	for _, e := range excerpts {
		if e != "" {
			found = append(found, e)
		}
	}
	logger.InfoContext(ctx, "extraction completed", "documents", len(labels), "with_excerpts", len(found))
	if len(found) == 0 {
		return Extraction{}, nil
	}

	messages := []llm.Message{
		{Role: "system", Content: synthesisInstructions},
		{Role: "user", Content: synthesisPrompt(q, found)},
	}
	text, err := d.backend.Complete(ctx, messages, llm.ChatParams{Model: q.Model, Temperature: answerTemperature})
	if err != nil {
		logger.ErrorContext(ctx, "synthesis failed", "error", err)
		return Extraction{}, fmt.Errorf("failed to synthesize answer: %w", err)
	}

	return Extraction{
		Completion: llm.Completion{Text: strings.TrimSpace(text)},
		Excerpts:   found,
	}, nil
}

func (d *Dispatcher) extractOne(ctx context.Context, label string, q Question) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	doc, err := d.docs.Lookup(label)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			logger.WarnContext(ctx, "selected document not found, skipping", "label", label)
			return "", nil
		}
		return "", err
	}
	data, err := d.docs.Read(label)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			logger.WarnContext(ctx, "selected document not found, skipping", "label", label)
			return "", nil
		}
		return "", err
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	logger.DebugContext(ctx, "extracting from document", "label", label, "bytes", len(data))
	messages := []llm.Message{
		{Role: "system", Content: extractInstructions},
		{Role: "user", Content: extractPrompt(q, doc.Author, doc.Title, string(data))},
	}
	text, err := d.backend.Complete(ctx, messages, llm.ChatParams{Model: d.extractModel, Temperature: answerTemperature})
	if err != nil {
		return "", fmt.Errorf("failed to extract from %q: %w", label, err)
	}

	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(text, noRelevantText) {
		logger.DebugContext(ctx, "no relevant text in document", "label", label)
		return "", nil
	}
	return excerptHeader(doc.Author, doc.Title) + "\n" + text, nil
}

// awaitReady waits, concurrently, for every index not yet known to be ready.
func (d *Dispatcher) awaitReady(ctx context.Context, indexIDs []string) error {
	var g errgroup.Group
	for _, id := range indexIDs {
		if _, ok := d.ready.Load(id); ok {
			continue
		}
		g.Go(func() error {
			state, err := d.waiter.Wait(ctx, id, d.timeout)
			if err != nil {
				return fmt.Errorf("failed to check index %s: %w", id, err)
			}
			switch state {
			case llm.IndexCompleted:
				d.ready.Store(id, struct{}{})
			case llm.IndexFailed:
				contextutil.LoggerFromContext(ctx).WarnContext(ctx, "index reported failed, querying anyway", "index_id", id)
			}
			return nil
		})
	}
	return g.Wait()
}
