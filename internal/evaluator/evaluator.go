// Package evaluator turns parsed definitions into Bindings and generates rows
// from them.
package evaluator

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/generators"
	"github.com/mmrzaf/mockagen/internal/registry"
)

// BuildBindings registers every definition. Relative dates resolve against
// now. Any error aborts the whole build.
func BuildBindings(defs []domain.Definition, now time.Time) (*registry.Bindings, error) {
	builder := generators.NewBuilder(now)
	bindings := registry.NewBindings()

	for i, def := range defs {
		if err := addDefinition(builder, bindings, def); err != nil {
			return nil, fmt.Errorf("definition %d (%s): %w", i+1, describe(def), err)
		}
	}
	return bindings, nil
}

func addDefinition(builder *generators.Builder, bindings *registry.Bindings, def domain.Definition) error {
	if def.IsNested() {
		return addNested(builder, bindings, def)
	}

	if def.ID == "" {
		return fmt.Errorf("%w: definition needs an id or a define list", generators.ErrInvalidDefinition)
	}
	if len(def.Using) > 0 {
		return fmt.Errorf("%w: using requires define", generators.ErrInvalidDefinition)
	}

	var (
		gen generators.Generator
		err error
	)
	switch {
	case def.Value != nil && len(def.Values) > 0:
		return fmt.Errorf("%w: set either value or values", generators.ErrInvalidDefinition)
	case def.Value != nil:
		gen, err = builder.FromSpec(*def.Value)
	case len(def.Values) > 0:
		gen, err = builder.FromWeightedValues(def.Values)
	default:
		return fmt.Errorf("%w: no value given", generators.ErrInvalidDefinition)
	}
	if err != nil {
		return err
	}
	return bindings.Add(def.ID, gen)
}

func addNested(builder *generators.Builder, bindings *registry.Bindings, def domain.Definition) error {
	if def.ID != "" || def.Value != nil || len(def.Values) > 0 {
		return fmt.Errorf("%w: nested definitions bind through define only", generators.ErrInvalidDefinition)
	}

	ids := make([]string, 0, len(def.Using)+len(def.Define))
	ids = append(ids, def.Using...)
	ids = append(ids, def.Define...)

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %s appears twice in using/define", generators.ErrInvalidDefinition, id)
		}
		seen[id] = true
	}

	tree, err := builder.NewValueTree(def.NestedClauses, ids)
	if err != nil {
		return err
	}
	for k, id := range def.Define {
		if err := bindings.Add(id, &generators.Nested{Tree: tree, Depth: len(def.Using) + k}); err != nil {
			return err
		}
	}
	return nil
}

func describe(def domain.Definition) string {
	if def.IsNested() {
		return "define " + strings.Join(def.Define, ", ")
	}
	if def.ID == "" {
		return "unnamed"
	}
	return def.ID
}

// GenerateRows builds a column generator for ids and produces n rows from rng.
func GenerateRows(bindings *registry.Bindings, ids []string, n int, rng *rand.Rand) ([][]domain.Value, error) {
	cg, err := bindings.MakeColumnGenerator(ids)
	if err != nil {
		return nil, err
	}
	rows := make([][]domain.Value, 0, n)
	for i := 0; i < n; i++ {
		row, err := cg.GenerateRow(rng)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
