package documents

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmrzaf/mockagen/internal/schema"
)

func newRepo(t *testing.T, base string) *FileRepository {
	t.Helper()
	v, err := schema.NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	return NewFileRepository(base, v)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetByPath_RejectsPathTraversal(t *testing.T) {
	base := t.TempDir()
	repo := newRepo(t, base)

	writeFile(t, filepath.Join(base, "ok.yaml"), "name: ok\ndefinitions:\n  - id: n\n    value: {int: [1, 2]}\n")
	doc, err := repo.GetByPath("ok.yaml")
	if err != nil {
		t.Fatalf("expected document load inside base dir, got %v", err)
	}
	if doc.ID != "ok" || doc.SourcePath != "ok.yaml" {
		t.Fatalf("unexpected id/source: %q %q", doc.ID, doc.SourcePath)
	}
	if _, err := repo.GetByPath(filepath.Join(base, "ok.yaml")); err != nil {
		t.Fatalf("expected absolute path inside base dir to load, got %v", err)
	}

	outsideFile := filepath.Join(t.TempDir(), "outside.yaml")
	writeFile(t, outsideFile, "id: bad")
	if _, err := repo.GetByPath(outsideFile); !errors.Is(err, ErrPathTraversal) {
		t.Fatalf("expected traversal rejection for outside absolute path, got %v", err)
	}
	if _, err := repo.GetByPath("../outside.yaml"); !errors.Is(err, ErrPathTraversal) {
		t.Fatalf("expected traversal rejection for relative path escape, got %v", err)
	}
}

func TestListSkipsInvalidDocuments(t *testing.T) {
	base := t.TempDir()
	repo := newRepo(t, base)

	writeFile(t, filepath.Join(base, "b.yaml"), "id: beta\ndefinitions:\n  - id: x\n    value: {literal: y}\n")
	writeFile(t, filepath.Join(base, "a.json"), `{"id": "alpha", "definitions": [{"id": "z", "value": {"uuid": true}}]}`)
	writeFile(t, filepath.Join(base, "broken.yaml"), "id: broken\nentities: []\n")
	writeFile(t, filepath.Join(base, "notes.txt"), "ignored")

	docs, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 || docs[0].ID != "alpha" || docs[1].ID != "beta" {
		t.Fatalf("unexpected documents: %+v", docs)
	}

	if _, err := repo.Get("broken"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for invalid document, got %v", err)
	}
	var ve *schema.ValidationError
	if _, err := repo.GetByPath("broken.yaml"); !errors.As(err, &ve) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestListMissingDirectory(t *testing.T) {
	repo := newRepo(t, filepath.Join(t.TempDir(), "nope"))
	docs, err := repo.List()
	if err != nil || len(docs) != 0 {
		t.Fatalf("expected empty list, got %v, %v", docs, err)
	}
}
