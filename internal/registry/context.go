package registry

import (
	"fmt"
	"math/rand"

	"github.com/mmrzaf/mockagen/internal/domain"
	"github.com/mmrzaf/mockagen/internal/generators"
)

// rowContext holds the values generated so far for one row. Each identifier
// is generated at most once; later reads return the cached value.
type rowContext struct {
	defs     map[string]DefGen
	rng      *rand.Rand
	values   map[string]domain.Value
	inFlight map[string]bool
}

func newRowContext(defs map[string]DefGen, rng *rand.Rand) *rowContext {
	return &rowContext{
		defs:     defs,
		rng:      rng,
		values:   make(map[string]domain.Value, len(defs)),
		inFlight: make(map[string]bool),
	}
}

func (c *rowContext) Value(id string) (domain.Value, error) {
	if v, ok := c.values[id]; ok {
		return v, nil
	}
	if c.inFlight[id] {
		return domain.Value{}, fmt.Errorf("%w: %s reads itself", generators.ErrDependencyCycle, id)
	}
	def, ok := c.defs[id]
	if !ok {
		return domain.Value{}, fmt.Errorf("%w: %s", generators.ErrUnboundIdentifier, id)
	}

	c.inFlight[id] = true
	v, err := generators.Generate(def.Gen, c.rng, c)
	delete(c.inFlight, id)
	if err != nil {
		return domain.Value{}, fmt.Errorf("generating %s: %w", id, err)
	}

	c.bind(id, v)
	return v, nil
}

func (c *rowContext) bind(id string, v domain.Value) {
	if _, ok := c.values[id]; ok {
		panic(fmt.Sprintf("registry: %s bound twice in one row", id))
	}
	c.values[id] = v
}
