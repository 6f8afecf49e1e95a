package validation

import (
	"testing"

	"github.com/mmrzaf/mockagen/internal/definitions"
	"github.com/mmrzaf/mockagen/internal/infra/repos/documents"
	"github.com/mmrzaf/mockagen/internal/schema"
)

func TestRepositoryDocumentsValidate(t *testing.T) {
	sv, err := schema.NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	repo := documents.NewFileRepository("../../documents", sv)
	list, err := repo.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) < 2 {
		t.Fatalf("expected document files, got %d", len(list))
	}

	loader := definitions.NewLoader(repo)
	v := NewValidator()
	for _, doc := range list {
		res, err := loader.Resolve(doc)
		if err != nil {
			t.Fatalf("document %q failed to resolve: %v", doc.ID, err)
		}
		if err := v.ValidateDocument(res); err != nil {
			t.Fatalf("document %q failed validation: %v", doc.ID, err)
		}
	}
}
