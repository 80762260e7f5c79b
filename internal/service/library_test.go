package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"madison-ai/internal/library"
	"madison-ai/internal/rag"
	"madison-ai/internal/service"
)

type fakePrewarmer struct {
	labels    []string
	aggregate bool
	report    rag.PrewarmReport
	err       error
}

func (f *fakePrewarmer) Prewarm(_ context.Context, labels []string, aggregate bool) (rag.PrewarmReport, error) {
	f.labels = labels
	f.aggregate = aggregate
	return f.report, f.err
}

func newLibrary(t *testing.T) *library.Library {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"Mill--On_Liberty.txt": "Over himself, over his own body and mind, the individual is sovereign.",
		"Hobbes--Leviathan.md": "# Leviathan\n\nThe life of man.",
		"notes.pdf":            "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return library.New(dir, nil)
}

func TestLibraryService_ListDocuments(t *testing.T) {
	svc := service.NewLibraryService(newLibrary(t), &fakePrewarmer{})

	docs, err := svc.ListDocuments(testContext())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("ListDocuments() = %v, want 2 documents", docs)
	}
	if docs[0].Label != "Hobbes--Leviathan" || docs[0].Author != "Hobbes" {
		t.Errorf("docs[0] = %+v", docs[0])
	}
	if docs[1].Title != "On Liberty" {
		t.Errorf("docs[1].Title = %q, want %q", docs[1].Title, "On Liberty")
	}
}

func TestLibraryService_GetDocument(t *testing.T) {
	svc := service.NewLibraryService(newLibrary(t), &fakePrewarmer{})

	doc, data, err := svc.GetDocument(testContext(), "Hobbes--Leviathan")
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if doc.Title != "Leviathan" || string(data) != "# Leviathan\n\nThe life of man." {
		t.Errorf("GetDocument() = %+v, %q", doc, data)
	}

	for _, label := range []string{"Locke--Second_Treatise", "../etc/passwd", ""} {
		if _, _, err := svc.GetDocument(testContext(), label); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("GetDocument(%q) error = %v, want ErrNotFound", label, err)
		}
	}
}

func TestLibraryService_Prewarm(t *testing.T) {
	prewarmer := &fakePrewarmer{report: rag.PrewarmReport{Built: []string{"Mill--On_Liberty"}}}
	svc := service.NewLibraryService(newLibrary(t), prewarmer)

	report, err := svc.Prewarm(testContext(), []string{"Mill--On_Liberty", "Mill--On_Liberty", ""}, true)
	if err != nil {
		t.Fatalf("Prewarm() error = %v", err)
	}
	if len(report.Built) != 1 {
		t.Errorf("Prewarm() report = %+v", report)
	}
	if len(prewarmer.labels) != 1 || !prewarmer.aggregate {
		t.Errorf("prewarmer called with %v, aggregate %v", prewarmer.labels, prewarmer.aggregate)
	}

	prewarmer.err = errors.New("one document failed")
	if _, err := svc.Prewarm(testContext(), nil, false); err == nil {
		t.Error("Prewarm() expected error, got nil")
	}
}
