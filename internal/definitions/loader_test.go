package definitions

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmrzaf/mockagen/internal/evaluator"
	"github.com/mmrzaf/mockagen/internal/infra/repos/documents"
	"github.com/mmrzaf/mockagen/internal/registry"
	"github.com/mmrzaf/mockagen/internal/schema"
)

func setup(t *testing.T, files map[string]string) *documents.FileRepository {
	t.Helper()
	base := t.TempDir()
	for name, content := range files {
		p := filepath.Join(base, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	v, err := schema.NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	return documents.NewFileRepository(base, v)
}

func TestResolveMergesIncludes(t *testing.T) {
	repo := setup(t, map[string]string{
		"people.yaml": `
id: people
include: [shared/names.yaml, shared/places.yaml]
definitions:
  - id: greeting
    value:
      join: [{literal: "Hi "}, {ref: first_name}, {literal: " from "}, {ref: town}]
`,
		"shared/names.yaml": `
include: [base.yaml]
definitions:
  - id: first_name
    values: [{literal: Ada}, {literal: Grace}]
`,
		"shared/places.yaml": `
include: [base.yaml]
definitions:
  - id: town
    value: {ref: home}
`,
		"shared/base.yaml": `
definitions:
  - id: home
    value: {literal: Leeds}
`,
	})

	doc, err := repo.GetByPath("people.yaml")
	if err != nil {
		t.Fatal(err)
	}
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := NewLoader(repo).WithClock(func() time.Time { return fixed }).Resolve(doc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(res.Included) != 3 {
		t.Fatalf("expected 3 included documents, got %d", len(res.Included))
	}
	if got := len(res.AllDefinitions()); got != 4 {
		t.Fatalf("expected 4 definitions, got %d", got)
	}

	rows, err := evaluator.GenerateRows(res.Bindings, []string{"greeting"}, 20, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range rows {
		s := row[0].String()
		if s != "Hi Ada from Leeds" && s != "Hi Grace from Leeds" {
			t.Fatalf("unexpected greeting %q", s)
		}
	}
}

func TestResolveRejectsDuplicateAcrossIncludes(t *testing.T) {
	repo := setup(t, map[string]string{
		"main.yaml":  "include: [other.yaml]\ndefinitions:\n  - id: a\n    value: {literal: x}\n",
		"other.yaml": "definitions:\n  - id: a\n    value: {literal: y}\n",
	})
	doc, err := repo.GetByPath("main.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(repo).Resolve(doc); !errors.Is(err, registry.ErrDuplicateIdentifier) {
		t.Fatalf("expected duplicate identifier, got %v", err)
	}
}

func TestResolveRejectsIncludeCycle(t *testing.T) {
	repo := setup(t, map[string]string{
		"a.yaml": "include: [b.yaml]\n",
		"b.yaml": "include: [a.yaml]\n",
	})
	doc, err := repo.GetByPath("a.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(repo).Resolve(doc); !errors.Is(err, ErrIncludeCycle) {
		t.Fatalf("expected include cycle, got %v", err)
	}
}

func TestResolveRejectsEscapingInclude(t *testing.T) {
	repo := setup(t, map[string]string{
		"a.yaml": "include: [../../etc/passwd.yaml]\n",
	})
	doc, err := repo.GetByPath("a.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(repo).Resolve(doc); !errors.Is(err, documents.ErrPathTraversal) {
		t.Fatalf("expected traversal rejection, got %v", err)
	}
}
