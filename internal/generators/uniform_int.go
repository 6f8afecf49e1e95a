package generators

import (
	"math"
	"math/rand"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// IntegerRange draws uniformly from [From, To].
type IntegerRange struct {
	From int64
	To   int64
}

// NewIntegerRange accepts bounds in either order.
func NewIntegerRange(a, b int64) *IntegerRange {
	return &IntegerRange{From: min(a, b), To: max(a, b)}
}

func (g *IntegerRange) generate(rng *rand.Rand) domain.Value {
	return domain.IntValue(uniformInt64(rng, g.From, g.To))
}

// uniformInt64 returns a uniform draw from [from, to] for any from <= to,
// including spans wider than math.MaxInt64.
func uniformInt64(rng *rand.Rand, from, to int64) int64 {
	span := uint64(to) - uint64(from)
	if span < math.MaxInt64 {
		return from + rng.Int63n(int64(span)+1)
	}
	for {
		u := rng.Uint64()
		if u <= span {
			return int64(uint64(from) + u)
		}
	}
}
