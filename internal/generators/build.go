package generators

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/timeutil"
)

// Builder converts parsed value specs and nested clauses into generators.
// Relative date bounds are resolved against Now.
type Builder struct {
	Now time.Time
}

func NewBuilder(now time.Time) *Builder {
	return &Builder{Now: now}
}

func (b *Builder) FromSpec(v domain.ValueSpec) (Generator, error) {
	kind, err := v.Kind()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	switch kind {
	case domain.SpecLiteral:
		return NewLiteral(string(*v.Literal)), nil

	case domain.SpecInt:
		switch len(v.Int) {
		case 1:
			return NewIntegerRange(v.Int[0], math.MaxInt64), nil
		case 2:
			return NewIntegerRange(v.Int[0], v.Int[1]), nil
		}
		return nil, fmt.Errorf("%w: int takes 1 or 2 bounds, got %d", ErrInvalidDefinition, len(v.Int))

	case domain.SpecReal:
		if len(v.Real) != 2 {
			return nil, fmt.Errorf("%w: real takes 2 bounds, got %d", ErrInvalidDefinition, len(v.Real))
		}
		if math.IsNaN(v.Real[0]) || math.IsNaN(v.Real[1]) {
			return nil, fmt.Errorf("%w: real bounds must be numbers", ErrInvalidDefinition)
		}
		return NewRealRange(v.Real[0], v.Real[1]), nil

	case domain.SpecString:
		if len(v.Chars) != 2 {
			return nil, fmt.Errorf("%w: string takes 2 length bounds, got %d", ErrInvalidDefinition, len(v.Chars))
		}
		for _, n := range v.Chars {
			if n < 0 || n > MaxStringLength {
				return nil, fmt.Errorf("%w: string length %d is outside [0, %d]", ErrInvalidDefinition, n, MaxStringLength)
			}
		}
		return NewStringRange(v.Chars[0], v.Chars[1]), nil

	case domain.SpecDate:
		if len(v.Date) != 2 {
			return nil, fmt.Errorf("%w: date takes 2 bounds, got %d", ErrInvalidDefinition, len(v.Date))
		}
		from, err := timeutil.ParseDate(v.Date[0], b.Now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		to, err := timeutil.ParseDate(v.Date[1], b.Now)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
		}
		return NewDateRange(from, to), nil

	case domain.SpecRef:
		return &Identifier{ID: v.Ref}, nil

	case domain.SpecJoin:
		if len(v.Join) == 0 {
			return nil, fmt.Errorf("%w: join needs at least one value", ErrInvalidDefinition)
		}
		parts := make([]Generator, 0, len(v.Join))
		for _, p := range v.Join {
			g, err := b.FromSpec(p)
			if err != nil {
				return nil, err
			}
			parts = append(parts, g)
		}
		return &Join{Parts: parts}, nil

	case domain.SpecFaker:
		return NewFaker(v.Faker)

	case domain.SpecUUID:
		return &UUID{}, nil
	}

	return nil, fmt.Errorf("%w: unsupported value kind %q", ErrInvalidDefinition, kind)
}

// FromWeightedValues returns the plain generator for a single unweighted
// value and an Alternation otherwise.
func (b *Builder) FromWeightedValues(values []domain.WeightedValue) (Generator, error) {
	if len(values) == 0 {
		return nil, ErrNoCandidates
	}
	if len(values) == 1 && values[0].Weight == nil {
		return b.FromSpec(values[0].ValueSpec)
	}

	candidates := make([]WeightedGenerator, 0, len(values))
	for _, v := range values {
		g, err := b.FromSpec(v.ValueSpec)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, WeightedGenerator{Weight: v.Weight, Gen: g})
	}
	return NewAlternation(candidates)
}

var errTooManyLevels = errors.New("clauses nest deeper than the identifiers they bind")

// NewValueTree builds the shared tree for a nested definition. ids lists the
// using identifiers followed by the defined ones; each clause level consumes
// one of them.
func (b *Builder) NewValueTree(clauses domain.NestedClauses, ids []string) (*ValueTree, error) {
	root, err := b.treeNode(clauses, ids)
	if err != nil {
		return nil, err
	}
	return &ValueTree{root: root, ids: append([]string(nil), ids...)}, nil
}

func (b *Builder) treeNode(c domain.NestedClauses, ids []string) (TreeNode, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, errTooManyLevels)
	}

	switch {
	case len(c.Match) > 0 && len(c.Assign) > 0:
		return nil, fmt.Errorf("%w: level for %q mixes match and assign clauses", ErrInvalidDefinition, ids[0])

	case len(c.Match) > 0:
		node := &MatchNode{ID: ids[0]}
		for _, mc := range c.Match {
			if len(mc.When) == 0 {
				return nil, fmt.Errorf("%w: match clause on %q has no matchers", ErrInvalidDefinition, ids[0])
			}
			child, err := b.treeNode(mc.NestedClauses, ids[1:])
			if err != nil {
				return nil, err
			}
			matchers := make([]MatchExpr, len(mc.When))
			for i, lit := range mc.When {
				matchers[i] = MatchExpr{Literal: lit}
			}
			node.Arms = append(node.Arms, Arm{Matchers: matchers, Child: child})
		}
		if c.Wildcard != nil {
			child, err := b.treeNode(*c.Wildcard, ids[1:])
			if err != nil {
				return nil, err
			}
			node.Wildcard = child
		}
		return node, nil

	case len(c.Assign) > 0:
		if c.Wildcard != nil {
			return nil, fmt.Errorf("%w: wildcard on %q needs match clauses", ErrInvalidDefinition, ids[0])
		}
		return b.assignNode(c.Assign, ids)

	default:
		return nil, fmt.Errorf("%w: no clauses for %q", ErrInvalidDefinition, ids[0])
	}
}

func (b *Builder) assignNode(clauses []domain.AssignClause, ids []string) (*AssignNode, error) {
	node := &AssignNode{ID: ids[0]}
	candidates := make([]WeightedGenerator, 0, len(clauses))
	for _, cl := range clauses {
		g, err := b.FromWeightedValues(cl.Values)
		if err != nil {
			return nil, fmt.Errorf("assigning %q: %w", ids[0], err)
		}
		candidates = append(candidates, WeightedGenerator{Weight: cl.Weight, Gen: g})

		if len(cl.Assign) == 0 {
			continue
		}
		if len(ids) < 2 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, errTooManyLevels)
		}
		matchers, err := RestateMatchExprs(cl.Values)
		if err != nil {
			return nil, fmt.Errorf("assigning %q: %w", ids[0], err)
		}
		child, err := b.assignNode(cl.Assign, ids[1:])
		if err != nil {
			return nil, err
		}
		node.Arms = append(node.Arms, Arm{Matchers: matchers, Child: child})
	}

	alt, err := NewAlternation(candidates)
	if err != nil {
		return nil, fmt.Errorf("assigning %q: %w", ids[0], err)
	}
	node.Gen = alt
	return node, nil
}
