package generators

import "errors"

var (
	ErrUnboundIdentifier         = errors.New("unbound identifier")
	ErrNoMatchForValue           = errors.New("no match for value")
	ErrNoChildrenForTree         = errors.New("no children for tree")
	ErrExpectedValueFoundMatcher = errors.New("expected value, found matcher")
	ErrInvalidMatchExprCast      = errors.New("value cannot be used as a match expression")
	ErrDependencyCycle           = errors.New("dependency cycle")
	ErrNoCandidates              = errors.New("weighted set has no candidates")
	ErrInvalidWeight             = errors.New("invalid weight")
	ErrInvalidDefinition         = errors.New("invalid definition")
)
