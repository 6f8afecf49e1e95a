// Package definitions resolves a document and the documents it includes into
// one set of Bindings.
package definitions

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/evaluator"
	"github.com/mmrzaf/mockagen/internal/registry"
)

var ErrIncludeCycle = errors.New("include cycle")

// Source loads documents by path relative to the document directory.
type Source interface {
	GetByPath(path string) (*domain.Document, error)
}

// Resolved is a document with its includes loaded and bound.
type Resolved struct {
	Document *domain.Document
	// Included lists every included document once, in load order.
	Included []*domain.Document
	Bindings *registry.Bindings
}

// AllDefinitions returns the definitions of the included documents followed
// by the document's own.
func (r *Resolved) AllDefinitions() []domain.Definition {
	var out []domain.Definition
	for _, d := range r.Included {
		out = append(out, d.Definitions...)
	}
	return append(out, r.Document.Definitions...)
}

type Loader struct {
	source Source
	now    func() time.Time
}

func NewLoader(source Source) *Loader {
	return &Loader{source: source, now: time.Now}
}

// WithClock fixes the time relative dates resolve against.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	return &Loader{source: l.source, now: now}
}

// Resolve binds doc's definitions and merges in those of every included
// document. A document included twice through different paths is bound once.
func (l *Loader) Resolve(doc *domain.Document) (*Resolved, error) {
	res := &Resolved{Document: doc}
	st := &resolveState{
		now:     l.now(),
		loaded:  make(map[string]bool),
		loading: make(map[string]bool),
	}

	bindings, err := l.resolve(doc, st, res)
	if err != nil {
		return nil, err
	}
	res.Bindings = bindings
	return res, nil
}

type resolveState struct {
	now     time.Time
	loaded  map[string]bool
	loading map[string]bool
	stack   []string
}

func (l *Loader) resolve(doc *domain.Document, st *resolveState, res *Resolved) (*registry.Bindings, error) {
	key := doc.SourcePath
	if key != "" {
		st.loading[key] = true
		st.stack = append(st.stack, key)
		defer func() {
			delete(st.loading, key)
			st.stack = st.stack[:len(st.stack)-1]
			st.loaded[key] = true
		}()
	}

	bindings, err := evaluator.BuildBindings(doc.Definitions, st.now)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", docLabel(doc), err)
	}

	for _, inc := range doc.Include {
		incPath := path.Clean(path.Join(path.Dir(doc.SourcePath), inc))
		if st.loading[incPath] {
			return nil, fmt.Errorf("%w: %s -> %s", ErrIncludeCycle, strings.Join(st.stack, " -> "), incPath)
		}
		if st.loaded[incPath] {
			continue
		}

		included, err := l.source.GetByPath(incPath)
		if err != nil {
			return nil, fmt.Errorf("document %s: include %s: %w", docLabel(doc), inc, err)
		}
		included.SourcePath = incPath

		incBindings, err := l.resolve(included, st, res)
		if err != nil {
			return nil, err
		}
		res.Included = append(res.Included, included)

		if err := bindings.Merge(incBindings); err != nil {
			return nil, fmt.Errorf("document %s: include %s: %w", docLabel(doc), inc, err)
		}
	}
	return bindings, nil
}

func docLabel(doc *domain.Document) string {
	if doc.SourcePath != "" {
		return doc.SourcePath
	}
	if doc.ID != "" {
		return doc.ID
	}
	return "<inline>"
}
