package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ValueSpec is a parsed value expression. Exactly one field is set.
type ValueSpec struct {
	Literal *Scalar     `json:"literal,omitempty" yaml:"literal,omitempty"`
	Int     []int64     `json:"int,omitempty" yaml:"int,omitempty"`
	Real    []float64   `json:"real,omitempty" yaml:"real,omitempty"`
	Chars   []int64     `json:"string,omitempty" yaml:"string,omitempty"`
	Date    []string    `json:"date,omitempty" yaml:"date,omitempty"`
	Ref     string      `json:"ref,omitempty" yaml:"ref,omitempty"`
	Join    []ValueSpec `json:"join,omitempty" yaml:"join,omitempty"`
	Faker   string      `json:"faker,omitempty" yaml:"faker,omitempty"`
	UUID    bool        `json:"uuid,omitempty" yaml:"uuid,omitempty"`
}

type SpecKind string

const (
	SpecLiteral SpecKind = "literal"
	SpecInt     SpecKind = "int"
	SpecReal    SpecKind = "real"
	SpecString  SpecKind = "string"
	SpecDate    SpecKind = "date"
	SpecRef     SpecKind = "ref"
	SpecJoin    SpecKind = "join"
	SpecFaker   SpecKind = "faker"
	SpecUUID    SpecKind = "uuid"
)

var ErrEmptyValueSpec = errors.New("value has no content")

// Kind reports which expression the spec holds and rejects specs that set
// zero or several of them.
func (v ValueSpec) Kind() (SpecKind, error) {
	var kinds []SpecKind
	if v.Literal != nil {
		kinds = append(kinds, SpecLiteral)
	}
	if v.Int != nil {
		kinds = append(kinds, SpecInt)
	}
	if v.Real != nil {
		kinds = append(kinds, SpecReal)
	}
	if v.Chars != nil {
		kinds = append(kinds, SpecString)
	}
	if v.Date != nil {
		kinds = append(kinds, SpecDate)
	}
	if v.Ref != "" {
		kinds = append(kinds, SpecRef)
	}
	if v.Join != nil {
		kinds = append(kinds, SpecJoin)
	}
	if v.Faker != "" {
		kinds = append(kinds, SpecFaker)
	}
	if v.UUID {
		kinds = append(kinds, SpecUUID)
	}
	switch len(kinds) {
	case 0:
		return "", ErrEmptyValueSpec
	case 1:
		return kinds[0], nil
	default:
		return "", fmt.Errorf("value sets more than one of %v", kinds)
	}
}

// WeightedValue is a value with an optional percentage weight in [0,100].
type WeightedValue struct {
	Weight    *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	ValueSpec `yaml:",inline"`
}

// Definition is either a single definition (ID with Value or Values) or a
// nested definition (optional Using ids, Define ids and nested clauses).
type Definition struct {
	ID     string          `json:"id,omitempty" yaml:"id,omitempty"`
	Value  *ValueSpec      `json:"value,omitempty" yaml:"value,omitempty"`
	Values []WeightedValue `json:"values,omitempty" yaml:"values,omitempty"`

	Using         []string `json:"using,omitempty" yaml:"using,omitempty"`
	Define        []string `json:"define,omitempty" yaml:"define,omitempty"`
	NestedClauses `yaml:",inline"`
}

func (d Definition) IsNested() bool { return len(d.Define) > 0 }

// Identifiers returns the names this definition binds.
func (d Definition) Identifiers() []string {
	if d.IsNested() {
		return d.Define
	}
	return []string{d.ID}
}

// NestedClauses holds one level of a nested definition: either match clauses
// (with an optional wildcard) or assign clauses.
type NestedClauses struct {
	Match    []MatchClause  `json:"match,omitempty" yaml:"match,omitempty"`
	Wildcard *NestedClauses `json:"wildcard,omitempty" yaml:"wildcard,omitempty"`
	Assign   []AssignClause `json:"assign,omitempty" yaml:"assign,omitempty"`
}

type MatchClause struct {
	When          Scalars `json:"when" yaml:"when"`
	NestedClauses `yaml:",inline"`
}

type AssignClause struct {
	Weight *float64        `json:"weight,omitempty" yaml:"weight,omitempty"`
	Values []WeightedValue `json:"values" yaml:"values"`
	Assign []AssignClause  `json:"assign,omitempty" yaml:"assign,omitempty"`
}

func Literal(s string) ValueSpec {
	lit := Scalar(s)
	return ValueSpec{Literal: &lit}
}

// Scalar is literal text. In JSON it also accepts numbers and booleans and
// keeps their source text, matching how YAML scalars decode.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Scalar(str)
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.(type) {
	case float64, bool:
		*s = Scalar(bytes.TrimSpace(data))
		return nil
	}
	return fmt.Errorf("literal must be a string, number or boolean, got %s", data)
}

type Scalars []string

func (s *Scalars) UnmarshalJSON(data []byte) error {
	var items []Scalar
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Scalars, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	*s = out
	return nil
}

func Weighted(weight float64, v ValueSpec) WeightedValue {
	return WeightedValue{Weight: &weight, ValueSpec: v}
}

func Unweighted(v ValueSpec) WeightedValue { return WeightedValue{ValueSpec: v} }
