package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mmrzaf/mockagen/internal/generators"
)

var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// DefGen is a named generator together with the identifiers it reads.
type DefGen struct {
	ID   string
	Gen  generators.Generator
	Deps []string
}

// MissingIdentifiersError lists every identifier a request needed but that no
// generator is bound to.
type MissingIdentifiersError struct {
	Names []string
}

func (e *MissingIdentifiersError) Error() string {
	return fmt.Sprintf("missing identifiers: %s", strings.Join(e.Names, ", "))
}

func (e *MissingIdentifiersError) Unwrap() error {
	return generators.ErrUnboundIdentifier
}

// Bindings maps identifiers to their generators. It is filled once, possibly
// merged with other sets, and only read afterwards. Add and Merge may still
// run alongside readers.
type Bindings struct {
	mu    sync.RWMutex
	defs  map[string]DefGen
	order []string
}

func NewBindings() *Bindings {
	return &Bindings{
		defs: make(map[string]DefGen),
	}
}

// Add binds id to gen and records its dependencies.
func (b *Bindings) Add(id string, gen generators.Generator) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.defs[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifier, id)
	}
	b.defs[id] = DefGen{ID: id, Gen: gen, Deps: generators.Dependencies(gen)}
	b.order = append(b.order, id)
	return nil
}

func (b *Bindings) Get(id string) (DefGen, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	def, ok := b.defs[id]
	if !ok {
		return DefGen{}, fmt.Errorf("%w: %s", generators.ErrUnboundIdentifier, id)
	}
	return def, nil
}

func (b *Bindings) Has(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.defs[id]
	return ok
}

// List returns identifiers in the order they were bound.
func (b *Bindings) List() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.order...)
}

func (b *Bindings) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

// Definitions returns every binding in the order it was added.
func (b *Bindings) Definitions() []DefGen {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]DefGen, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.defs[id])
	}
	return out
}

// Merge adds every binding of other. Nothing is added when any identifier is
// already bound; all clashing names are reported.
func (b *Bindings) Merge(other *Bindings) error {
	if other == b {
		if b.Len() == 0 {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifier, strings.Join(b.List(), ", "))
	}
	incoming := other.Definitions()

	b.mu.Lock()
	defer b.mu.Unlock()

	var dups []string
	for _, def := range incoming {
		if _, ok := b.defs[def.ID]; ok {
			dups = append(dups, def.ID)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return fmt.Errorf("%w: %s", ErrDuplicateIdentifier, strings.Join(dups, ", "))
	}

	for _, def := range incoming {
		b.defs[def.ID] = def
		b.order = append(b.order, def.ID)
	}
	return nil
}
