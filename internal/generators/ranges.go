package generators

import (
	"math/rand"
	"time"

	"github.com/mmrzaf/mockagen/internal/domain"
)

// RealRange draws uniformly from [From, To]. Both bounds can be produced.
type RealRange struct {
	From float64
	To   float64
}

func NewRealRange(a, b float64) *RealRange {
	return &RealRange{From: min(a, b), To: max(a, b)}
}

// realSteps is the number of evenly spaced points in [0, 1] a draw picks
// from; 2^53 keeps every step exactly representable.
const realSteps = 1 << 53

func (g *RealRange) generate(rng *rand.Rand) domain.Value {
	u := float64(rng.Int63n(realSteps+1)) / realSteps
	v := g.From*(1-u) + g.To*u
	return domain.RealValue(max(g.From, min(v, g.To)))
}

// DateRange draws a calendar date uniformly from [From, From+Days].
type DateRange struct {
	From time.Time
	Days int64
}

func NewDateRange(a, b time.Time) *DateRange {
	from, _ := domain.DateValue(a).AsDate()
	to, _ := domain.DateValue(b).AsDate()
	if to.Before(from) {
		from, to = to, from
	}
	return &DateRange{From: from, Days: (to.Unix() - from.Unix()) / secondsPerDay}
}

// To returns the inclusive upper bound.
func (g *DateRange) To() time.Time {
	return g.From.AddDate(0, 0, int(g.Days))
}

func (g *DateRange) generate(rng *rand.Rand) domain.Value {
	offset := rng.Int63n(g.Days + 1)
	return domain.DateValue(g.From.AddDate(0, 0, int(offset)))
}

const secondsPerDay = 24 * 60 * 60

// MaxStringLength caps the length bound of a string range.
const MaxStringLength = 1 << 16

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// StringRange produces random alphanumeric strings whose length is drawn
// from [MinLen, MaxLen]. Bounds are clamped to [0, MaxStringLength].
type StringRange struct {
	MinLen int64
	MaxLen int64
}

func NewStringRange(a, b int64) *StringRange {
	lo, hi := max(min(a, b), 0), max(a, b, 0)
	lo, hi = min(lo, MaxStringLength), min(hi, MaxStringLength)
	return &StringRange{MinLen: lo, MaxLen: hi}
}

func (g *StringRange) generate(rng *rand.Rand) domain.Value {
	n := uniformInt64(rng, g.MinLen, g.MaxLen)
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphanumeric[rng.Intn(len(alphanumeric))]
	}
	return domain.StringValue(string(buf))
}
