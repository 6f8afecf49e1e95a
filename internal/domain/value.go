package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the serialized form of date values.
const DateLayout = "2006-01-02"

type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindReal
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindDate:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one generated field: a string, a 64-bit integer, a 64-bit float or
// a calendar date. The zero Value is the empty string.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
	d    time.Time
}

func StringValue(s string) Value { return Value{kind: KindString, s: s} }

func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

func RealValue(f float64) Value { return Value{kind: KindReal, f: f} }

// DateValue drops the clock part of t and keeps the calendar date in UTC.
func DateValue(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, d: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

func (v Value) AsReal() (float64, bool) { return v.f, v.kind == KindReal }

func (v Value) AsDate() (time.Time, bool) { return v.d, v.kind == KindDate }

// String returns the display form used by joins and text outputs.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDate:
		return v.d.Format(DateLayout)
	default:
		return v.s
	}
}

// Native returns the value as a database driver argument.
func (v Value) Native() interface{} {
	switch v.kind {
	case KindInt:
		return v.i
	case KindReal:
		return v.f
	case KindDate:
		return v.d
	default:
		return v.s
	}
}

// Serializable returns a JSON/YAML friendly representation; dates become
// YYYY-MM-DD strings.
func (v Value) Serializable() interface{} {
	if v.kind == KindDate {
		return v.d.Format(DateLayout)
	}
	return v.Native()
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindReal:
		return v.f == o.f
	case KindDate:
		return v.d.Equal(o.d)
	default:
		return v.s == o.s
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Serializable())
}

func (v Value) MarshalYAML() (interface{}, error) {
	return v.Serializable(), nil
}
