package generators

import "github.com/mmrzaf/mockagen/internal/domain"

// Literal always yields the same value.
type Literal struct {
	Value domain.Value
}

func NewLiteral(s string) *Literal {
	return &Literal{Value: domain.StringValue(s)}
}
