package registry

import (
	"math/rand"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// SelectedDefGen is an entry of a ColumnGenerator. Dependency is set when the
// entry was only pulled in because a requested identifier reads it.
type SelectedDefGen struct {
	DefGen
	Dependency bool
}

// ColumnGenerator produces rows for a fixed list of requested identifiers.
// It never changes after construction, so one instance may serve concurrent
// callers as long as each passes its own random source.
type ColumnGenerator struct {
	entries   []SelectedDefGen
	index     map[string]DefGen
	requested []string
}

// MakeColumnGenerator selects the requested identifiers and, transitively,
// everything they read. Dependencies are placed before their dependents.
// When identifiers are unbound, the error lists all of them.
func (b *Bindings) MakeColumnGenerator(ids []string) (*ColumnGenerator, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cg := &ColumnGenerator{
		index:     make(map[string]DefGen),
		requested: append([]string(nil), ids...),
	}
	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	visited := make(map[string]bool)
	missingSeen := make(map[string]bool)
	var missing []string

	var selectID func(id string)
	selectID = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true

		def, ok := b.defs[id]
		if !ok {
			if !missingSeen[id] {
				missingSeen[id] = true
				missing = append(missing, id)
			}
			return
		}
		for _, dep := range def.Deps {
			selectID(dep)
		}
		cg.entries = append(cg.entries, SelectedDefGen{DefGen: def, Dependency: !requested[id]})
		cg.index[id] = def
	}

	for _, id := range ids {
		selectID(id)
	}

	if len(missing) > 0 {
		return nil, &MissingIdentifiersError{Names: missing}
	}
	return cg, nil
}

// Entries returns the selected generators in evaluation order.
func (cg *ColumnGenerator) Entries() []SelectedDefGen {
	return append([]SelectedDefGen(nil), cg.entries...)
}

// Columns returns the requested identifiers in output order.
func (cg *ColumnGenerator) Columns() []string {
	return append([]string(nil), cg.requested...)
}

// GenerateRow evaluates one row and returns the requested values in the order
// they were requested. A failed row leaves the generator usable.
func (cg *ColumnGenerator) GenerateRow(rng *rand.Rand) ([]domain.Value, error) {
	ctx := newRowContext(cg.index, rng)
	for _, e := range cg.entries {
		if _, err := ctx.Value(e.ID); err != nil {
			return nil, err
		}
	}

	row := make([]domain.Value, len(cg.requested))
	for i, id := range cg.requested {
		row[i] = ctx.values[id]
	}
	return row, nil
}
