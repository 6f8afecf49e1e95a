package generators

import (
	"math/rand"
	"strings"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// Identifier yields the value another identifier has in the current row.
type Identifier struct {
	ID string
}

// Join generates each part left to right and concatenates their display
// forms.
type Join struct {
	Parts []Generator
}

func (g *Join) generate(rng *rand.Rand, ctx Context) (domain.Value, error) {
	var sb strings.Builder
	for _, part := range g.Parts {
		v, err := Generate(part, rng, ctx)
		if err != nil {
			return domain.Value{}, err
		}
		sb.WriteString(v.String())
	}
	return domain.StringValue(sb.String()), nil
}
