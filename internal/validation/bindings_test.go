package validation

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mmrzaf/mockagen/internal/definitions"
	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/evaluator"
	"github.com/mmrzaf/mockagen/internal/generators"
	"github.com/mmrzaf/mockagen/internal/registry"
)

func ref(id string) *domain.ValueSpec { return &domain.ValueSpec{Ref: id} }

func lit(s string) *domain.ValueSpec {
	v := domain.Literal(s)
	return &v
}

func bind(t *testing.T, defs ...domain.Definition) *registry.Bindings {
	t.Helper()
	b, err := evaluator.BuildBindings(defs, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestValidateBindings_Cycle(t *testing.T) {
	b := bind(t,
		domain.Definition{ID: "a", Value: ref("b")},
		domain.Definition{ID: "b", Value: &domain.ValueSpec{Join: []domain.ValueSpec{*lit("x"), *ref("c")}}},
		domain.Definition{ID: "c", Value: ref("a")},
		domain.Definition{ID: "d", Value: lit("free")},
	)

	err := NewValidator().ValidateBindings(b)
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !reflect.DeepEqual(ce.Path, []string{"a", "b", "c", "a"}) {
		t.Fatalf("unexpected cycle path %v", ce.Path)
	}
	if !errors.Is(err, generators.ErrDependencyCycle) {
		t.Fatal("expected CycleError to wrap ErrDependencyCycle")
	}

	if _, err := TopologicalSort(b); !errors.Is(err, generators.ErrDependencyCycle) {
		t.Fatalf("expected topological sort to fail, got %v", err)
	}
}

func TestValidateBindings_Missing(t *testing.T) {
	b := bind(t,
		domain.Definition{ID: "a", Value: ref("ghost")},
		domain.Definition{ID: "b", Value: &domain.ValueSpec{Join: []domain.ValueSpec{*ref("phantom"), *ref("ghost")}}},
	)
	err := NewValidator().ValidateBindings(b)
	var me *registry.MissingIdentifiersError
	if !errors.As(err, &me) {
		t.Fatalf("expected MissingIdentifiersError, got %v", err)
	}
	if !reflect.DeepEqual(me.Names, []string{"ghost", "phantom"}) {
		t.Fatalf("unexpected missing names %v", me.Names)
	}
}

func TestTopologicalSort(t *testing.T) {
	b := bind(t,
		domain.Definition{ID: "greeting", Value: &domain.ValueSpec{Join: []domain.ValueSpec{*ref("name"), *ref("city")}}},
		domain.Definition{ID: "name", Value: lit("Ada")},
		domain.Definition{ID: "city", Value: ref("country")},
		domain.Definition{ID: "country", Value: lit("UK")},
	)
	if err := NewValidator().ValidateBindings(b); err != nil {
		t.Fatal(err)
	}
	order, err := TopologicalSort(b)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"country", "city", "name", "greeting"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestValidateDocument_Tables(t *testing.T) {
	doc := &domain.Document{
		ID: "d",
		Definitions: []domain.Definition{
			{ID: "age", Value: &domain.ValueSpec{Int: []int64{1, 9}}},
		},
		Tables: []domain.Table{
			{Name: "people", Rows: 5, Columns: []domain.Column{{Name: "age", Type: domain.ColumnTypeInt}}},
		},
	}
	res := &definitions.Resolved{Document: doc, Bindings: bind(t, doc.Definitions...)}
	v := NewValidator()
	if err := v.ValidateDocument(res); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}

	doc.Tables = append(doc.Tables, domain.Table{
		Name: "pets", Rows: 5,
		Columns: []domain.Column{{Name: "owner_age", Source: "age"}, {Name: "species"}},
	})
	var me *registry.MissingIdentifiersError
	if err := v.ValidateDocument(res); !errors.As(err, &me) || me.Names[0] != "species" {
		t.Fatalf("expected missing species, got %v", err)
	}

	doc.Tables = []domain.Table{{Name: "select", Rows: 1, Columns: []domain.Column{{Name: "age"}}}}
	if err := v.ValidateDocument(res); err == nil {
		t.Fatal("expected reserved table name to be rejected")
	}

	doc.Tables = []domain.Table{{Name: "t", Rows: 1, TableMode: "merge", Columns: []domain.Column{{Name: "age"}}}}
	if err := v.ValidateDocument(res); err == nil {
		t.Fatal("expected invalid table mode to be rejected")
	}
}
