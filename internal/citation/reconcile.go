package citation

import "strings"

// UnknownDocument labels a quote that could not be tied to any document.
const UnknownDocument = "unknown"

// Annotation is a retrieval-service citation: the document it points at and
// the passage it quotes.
type Annotation struct {
	DocumentID string
	Quote      string
}

// Document is a selected document that quotes may be attributed to.
type Document struct {
	Label      string
	DocumentID string
	Text       string
}

// Source is a quote attributed to a document, as returned to callers.
type Source struct {
	Document   string `json:"document"`
	DocumentID string `json:"documentId,omitempty"`
	Quote      string `json:"quote"`
}

// Reconciler attributes quotes to documents. Selected must be in the caller's
// selection order; fallbacks prefer earlier documents.
type Reconciler struct {
	Selected []Document
	// LabelFor resolves document IDs outside the selection, e.g. citations
	// returned from an aggregate index. May be nil.
	LabelFor func(documentID string) (string, bool)

	normalized map[int]string
}

// Reconcile pairs every quote with at most one annotation and returns one
// source per quote, in quote order, deduplicated by (documentId, quote).
//
// Quotes are processed in order; each claims the highest scoring annotation
// that no earlier quote has claimed, provided the score reaches
// MatchThreshold. Ties go to the earlier annotation. Unmatched quotes fall
// back to the first selected document whose text contains the quote, then to
// the first selected document, then to UnknownDocument.
func (r *Reconciler) Reconcile(quotes []string, annotations []Annotation) []Source {
	normAnnotations := make([]string, len(annotations))
	for i, a := range annotations {
		normAnnotations[i] = Normalize(a.Quote)
	}
	consumed := make([]bool, len(annotations))

	sources := make([]Source, 0, len(quotes))
	for _, quote := range quotes {
		normQuote := Normalize(quote)

		best := -1
		bestScore := 0.0
		for i := range annotations {
			if consumed[i] {
				continue
			}
			score := similarity(normQuote, normAnnotations[i])
			if score > bestScore {
				best = i
				bestScore = score
			}
		}

		if best >= 0 && bestScore >= MatchThreshold {
			consumed[best] = true
			sources = append(sources, Source{
				Document:   r.label(annotations[best].DocumentID),
				DocumentID: annotations[best].DocumentID,
				Quote:      quote,
			})
			continue
		}

		sources = append(sources, r.fallback(quote, normQuote))
	}

	return Dedup(sources)
}

// Sources converts annotations to sources directly, for answers that carry no
// extracted quotes. Order follows first occurrence.
func (r *Reconciler) Sources(annotations []Annotation) []Source {
	sources := make([]Source, 0, len(annotations))
	for _, a := range annotations {
		if strings.TrimSpace(a.Quote) == "" {
			continue
		}
		sources = append(sources, Source{
			Document:   r.label(a.DocumentID),
			DocumentID: a.DocumentID,
			Quote:      a.Quote,
		})
	}
	return Dedup(sources)
}

// Dedup drops repeated (documentId, quote) pairs, keeping the first
// occurrence. Sources without a document ID are never merged.
func Dedup(sources []Source) []Source {
	seen := make(map[[2]string]struct{}, len(sources))
	result := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s.DocumentID != "" {
			key := [2]string{s.DocumentID, s.Quote}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		result = append(result, s)
	}
	return result
}

func (r *Reconciler) label(documentID string) string {
	if documentID == "" {
		return UnknownDocument
	}
	for _, d := range r.Selected {
		if d.DocumentID == documentID {
			return d.Label
		}
	}
	if r.LabelFor != nil {
		if label, ok := r.LabelFor(documentID); ok {
			return label
		}
	}
	return UnknownDocument
}

func (r *Reconciler) fallback(quote, normQuote string) Source {
	if normQuote != "" {
		for i, d := range r.Selected {
			if strings.Contains(r.normalizedText(i), normQuote) {
				return Source{Document: d.Label, DocumentID: d.DocumentID, Quote: quote}
			}
		}
	}
	if len(r.Selected) > 0 {
		d := r.Selected[0]
		return Source{Document: d.Label, DocumentID: d.DocumentID, Quote: quote}
	}
	return Source{Document: UnknownDocument, Quote: quote}
}

// normalizedText memoizes document normalization for the reconciler's lifetime.
func (r *Reconciler) normalizedText(i int) string {
	if r.normalized == nil {
		r.normalized = make(map[int]string, len(r.Selected))
	}
	if text, ok := r.normalized[i]; ok {
		return text
	}
	text := Normalize(r.Selected[i].Text)
	r.normalized[i] = text
	return text
}
