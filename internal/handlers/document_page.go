package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"madison-ai/internal/contextutil"
	"madison-ai/internal/service"
)

// DocumentPageHandler serves library documents as HTML pages, so source
// links in answers open the quoted book.
type DocumentPageHandler struct {
	library  service.LibraryService
	parser   goldmark.Markdown
	template *template.Template
}

// documentPageData holds template data for rendered document pages.
type documentPageData struct {
	Title   string
	Author  string
	Label   string
	Content template.HTML
}

var documentPage = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}{{if .Author}} by {{.Author}}{{end}}</title>
  <style>
    body {
      font-family: Georgia, 'Times New Roman', serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 820px;
      line-height: 1.7;
      background: #fbf8f1;
      color: #1f2933;
    }
    header {
      margin-bottom: 2rem;
      border-bottom: 1px solid #d9d2c3;
      padding-bottom: 1.5rem;
    }
    h1 {
      margin-top: 0;
      font-size: 2rem;
    }
    pre {
      white-space: pre-wrap;
      font-family: inherit;
    }
    blockquote {
      border-left: 4px solid #b7a98b;
      padding-left: 1rem;
      margin-left: 0;
      color: #52606d;
    }
    .meta {
      color: #7b8794;
      font-size: 0.95rem;
      margin-top: 0.5rem;
    }
    @media (max-width: 640px) {
      body {
        padding: 1rem;
      }
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Title}}</h1>
    <p class="meta">{{if .Author}}{{.Author}} &middot; {{end}}{{.Label}}</p>
  </header>
  <article>{{.Content}}</article>
</body>
</html>`))

// NewDocumentPageHandler creates a new handler for serving documents.
func NewDocumentPageHandler(library service.LibraryService) *DocumentPageHandler {
	return &DocumentPageHandler{
		library: library,
		parser: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Typographer,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
		template: documentPage,
	}
}

// ServeHTTP renders the labelled document. Markdown is converted to HTML;
// plain text is escaped into a preformatted block.
func (h *DocumentPageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	label, err := url.PathUnescape(strings.TrimSpace(chi.URLParam(r, "label")))
	if err != nil {
		http.Error(w, "invalid document label", http.StatusBadRequest)
		return
	}
	if label == "" {
		http.Error(w, "document label is required", http.StatusBadRequest)
		return
	}

	doc, data, err := h.library.GetDocument(ctx, label)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to read document")
		return
	}

	content, err := h.render(doc.Path, data)
	if err != nil {
		logger.ErrorContext(ctx, "failed to render document", "label", label, "error", err)
		http.Error(w, "failed to render document", http.StatusInternalServerError)
		return
	}

	title := doc.Title
	if title == "" {
		title = doc.Label
	}
	pageData := documentPageData{
		Title:   title,
		Author:  doc.Author,
		Label:   doc.Label,
		Content: content,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, pageData); err != nil {
		logger.ErrorContext(ctx, "failed to execute document template", "label", label, "error", err)
	}
}

func (h *DocumentPageHandler) render(path string, data []byte) (template.HTML, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		var buf bytes.Buffer
		if err := h.parser.Convert(data, &buf); err != nil {
			return "", fmt.Errorf("convert markdown: %w", err)
		}
		return template.HTML(buf.String()), nil
	default:
		return template.HTML("<pre>" + template.HTMLEscapeString(string(data)) + "</pre>"), nil
	}
}
