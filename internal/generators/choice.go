package generators

import (
	"fmt"
	"math"
)

// WeightTolerance bounds floating point drift when checking that weights add
// up to 100.
const WeightTolerance = 1e-9

// WeightedGenerator is a candidate of an Alternation. A nil Weight takes an
// equal share of whatever percentage the explicit weights leave over.
type WeightedGenerator struct {
	Weight *float64
	Gen    Generator
}

// Alternation picks one candidate per call with probability proportional to
// its effective weight.
type Alternation struct {
	weights []float64
	bounds  []float64
	gens    []Generator
	// last is the final candidate with a positive weight.
	last int
}

// EffectiveWeights resolves implicit weights: unweighted entries share
// (100 - sum of explicit weights) equally. The result always sums to 100.
func EffectiveWeights(weights []*float64) ([]float64, error) {
	if len(weights) == 0 {
		return nil, ErrNoCandidates
	}

	explicit := 0.0
	implicitCount := 0
	for _, w := range weights {
		if w == nil {
			implicitCount++
			continue
		}
		if math.IsNaN(*w) || *w < 0 || *w > 100 {
			return nil, fmt.Errorf("%w: %v is outside [0, 100]", ErrInvalidWeight, *w)
		}
		explicit += *w
	}

	if explicit > 100+WeightTolerance {
		return nil, fmt.Errorf("%w: explicit weights sum to %v", ErrInvalidWeight, explicit)
	}
	if implicitCount == 0 && math.Abs(explicit-100) > WeightTolerance {
		return nil, fmt.Errorf("%w: weights sum to %v, expected 100", ErrInvalidWeight, explicit)
	}

	implicit := 0.0
	if implicitCount > 0 {
		implicit = max(100-explicit, 0) / float64(implicitCount)
	}

	out := make([]float64, len(weights))
	for i, w := range weights {
		if w == nil {
			out[i] = implicit
		} else {
			out[i] = *w
		}
	}
	return out, nil
}

// NewAlternation builds the cumulative lookup in declaration order. The bound
// of the last candidate with a positive weight is pinned to 100 so every draw
// in [0, 100) selects one and trailing zero weights are never chosen.
func NewAlternation(candidates []WeightedGenerator) (*Alternation, error) {
	raw := make([]*float64, len(candidates))
	for i, c := range candidates {
		raw[i] = c.Weight
	}
	weights, err := EffectiveWeights(raw)
	if err != nil {
		return nil, err
	}

	a := &Alternation{
		weights: weights,
		bounds:  make([]float64, len(candidates)),
		gens:    make([]Generator, len(candidates)),
	}
	cumulative := 0.0
	for i, c := range candidates {
		cumulative += weights[i]
		a.bounds[i] = cumulative
		a.gens[i] = c.Gen
		if weights[i] > 0 {
			a.last = i
		}
	}
	for i := a.last; i < len(a.bounds); i++ {
		a.bounds[i] = 100
	}
	return a, nil
}

// Weights returns the effective weight of each candidate.
func (a *Alternation) Weights() []float64 {
	return append([]float64(nil), a.weights...)
}

func (a *Alternation) Candidates() []Generator {
	return append([]Generator(nil), a.gens...)
}

// Index returns the candidate chosen for draw in [0, 100): the first one, in
// declaration order, whose cumulative weight is strictly greater than draw.
func (a *Alternation) Index(draw float64) int {
	for i := 0; i < a.last; i++ {
		if draw < a.bounds[i] {
			return i
		}
	}
	return a.last
}

func (a *Alternation) pick(draw float64) Generator {
	return a.gens[a.Index(draw)]
}
