package generators

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/mmrzaf/mockagen/internal/domain"
)

// UUID yields version 4 UUIDs read from the row's random source, so seeded
// runs reproduce them.
type UUID struct{}

func (g *UUID) generate(rng *rand.Rand) (domain.Value, error) {
	u, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return domain.Value{}, err
	}
	return domain.StringValue(u.String()), nil
}
