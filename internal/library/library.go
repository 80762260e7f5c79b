// Package library exposes the plain-text documents in the books directory.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a label has no backing file.
var ErrNotFound = errors.New("document not found")

// Separator splits a label into its author and title parts.
const Separator = "--"

// Extensions lists the file types treated as documents, in lookup order.
var Extensions = []string{".txt", ".md"}

// Document describes one document in the library.
type Document struct {
	Label  string `json:"label"`
	Author string `json:"author"`
	Title  string `json:"title"`
	Path   string `json:"-"`
}

// Library resolves labels to files under a single root directory.
type Library struct {
	root    string
	catalog *Catalog
}

// New returns a library rooted at dir. catalog may be nil.
func New(dir string, catalog *Catalog) *Library {
	if catalog == nil {
		catalog = &Catalog{}
	}
	return &Library{root: dir, catalog: catalog}
}

// Root returns the books directory.
func (l *Library) Root() string {
	return l.root
}

// Scan lists every document in the books directory, sorted by label.
// Subdirectories and hidden files are ignored.
func (l *Library) Scan(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read books directory %s: %w", l.root, err)
	}

	paths := make(map[string]string, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !IsDocumentFile(name) {
			continue
		}
		label := LabelFromPath(name)
		if _, dup := paths[label]; !dup {
			paths[label] = filepath.Join(l.root, name)
		}
	}

	docs := make([]Document, 0, len(paths))
	for label, path := range paths {
		// Lookup applies extension precedence when several files share a label.
		if doc, err := l.Lookup(label); err == nil {
			docs = append(docs, doc)
			continue
		}
		docs = append(docs, l.describe(label, path))
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Label < docs[j].Label })
	return docs, nil
}

// Labels returns the sorted labels of every document.
func (l *Library) Labels(ctx context.Context) ([]string, error) {
	docs, err := l.Scan(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(docs))
	for i, d := range docs {
		labels[i] = d.Label
	}
	return labels, nil
}

// Lookup resolves label to a document. It returns ErrNotFound when no file
// backs the label or the label would escape the books directory.
func (l *Library) Lookup(label string) (Document, error) {
	if label == "" || strings.ContainsAny(label, `/\`) || strings.Contains(label, "..") {
		return Document{}, fmt.Errorf("%w: %q", ErrNotFound, label)
	}
	for _, ext := range Extensions {
		path := filepath.Join(l.root, label+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return l.describe(label, path), nil
		}
	}
	// Scan accepts extensions in any case, so Lookup must too.
	if path, ok := l.findFolded(label); ok {
		return l.describe(label, path), nil
	}
	return Document{}, fmt.Errorf("%w: %q", ErrNotFound, label)
}

// findFolded finds a file for label whose extension differs only in case,
// such as "Locke--Treatise.TXT". Extension precedence still applies; among
// equal extensions the lowest file name wins.
func (l *Library) findFolded(label string) (string, bool) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return "", false
	}
	best, bestRank := "", len(Extensions)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || LabelFromPath(name) != label {
			continue
		}
		rank := extensionRank(name)
		if rank < bestRank || (rank == bestRank && rank < len(Extensions) && name < best) {
			best, bestRank = name, rank
		}
	}
	if best == "" {
		return "", false
	}
	return filepath.Join(l.root, best), true
}

// extensionRank is the position of name's extension in Extensions, ignoring
// case, or len(Extensions) when it is not a document extension.
func extensionRank(name string) int {
	ext := strings.ToLower(filepath.Ext(name))
	for i, e := range Extensions {
		if ext == e {
			return i
		}
	}
	return len(Extensions)
}

// Read returns the current bytes of the labelled document.
func (l *Library) Read(label string) ([]byte, error) {
	doc, err := l.Lookup(label)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, label)
		}
		return nil, fmt.Errorf("failed to read %s: %w", doc.Path, err)
	}
	return data, nil
}

func (l *Library) describe(label, path string) Document {
	author, title := ParseLabel(label)
	if entry, ok := l.catalog.Entry(label); ok {
		if entry.Author != "" {
			author = entry.Author
		}
		if entry.Title != "" {
			title = entry.Title
		}
	}
	return Document{Label: label, Author: author, Title: title, Path: path}
}

// IsDocumentFile reports whether name has a document extension.
func IsDocumentFile(name string) bool {
	return extensionRank(name) < len(Extensions)
}

// LabelFromPath derives a label from a file path.
func LabelFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ParseLabel splits "author -- title" into its parts. Underscores read as
// spaces. A label without a separator is all title.
func ParseLabel(label string) (author, title string) {
	before, after, found := strings.Cut(label, Separator)
	if !found {
		return "", clean(label)
	}
	return clean(before), clean(after)
}

// LexicalHead returns the lowercased text preceding the first separator,
// which is how questions usually name a document ("what does Locke say").
// Labels without a separator are their own head.
func LexicalHead(label string) string {
	before, _, _ := strings.Cut(label, Separator)
	return strings.ToLower(clean(before))
}

func clean(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
}
