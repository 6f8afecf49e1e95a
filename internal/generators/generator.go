package generators

import (
	"fmt"
	"math/rand"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// Generator is an immutable value producer. The set of implementations is
// closed; Generate dispatches over all of them.
type Generator interface {
	isGenerator()
}

// Context resolves the value of another identifier within the row currently
// being generated. Implementations generate the identifier on first use and
// return the cached value afterwards.
type Context interface {
	Value(id string) (domain.Value, error)
}

func (*IntegerRange) isGenerator() {}
func (*RealRange) isGenerator()    {}
func (*DateRange) isGenerator()    {}
func (*StringRange) isGenerator()  {}
func (*Literal) isGenerator()      {}
func (*UUID) isGenerator()         {}
func (*Faker) isGenerator()        {}
func (*Identifier) isGenerator()   {}
func (*Join) isGenerator()         {}
func (*Alternation) isGenerator()  {}
func (*Nested) isGenerator()       {}

// Generate produces one value from g. Leaf generators only draw from rng;
// Identifier, Join, Alternation and Nested may read other identifiers through
// ctx.
func Generate(g Generator, rng *rand.Rand, ctx Context) (domain.Value, error) {
	switch g := g.(type) {
	case *IntegerRange:
		return g.generate(rng), nil
	case *RealRange:
		return g.generate(rng), nil
	case *DateRange:
		return g.generate(rng), nil
	case *StringRange:
		return g.generate(rng), nil
	case *Literal:
		return g.Value, nil
	case *UUID:
		return g.generate(rng)
	case *Faker:
		return g.generate(rng), nil
	case *Identifier:
		return ctx.Value(g.ID)
	case *Join:
		return g.generate(rng, ctx)
	case *Alternation:
		return Generate(g.pick(rng.Float64()*100), rng, ctx)
	case *Nested:
		return g.Tree.valueAtDepth(rng, ctx, g.Depth)
	default:
		panic(fmt.Sprintf("generators: unhandled generator %T", g))
	}
}
