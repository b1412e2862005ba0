// Package evaluator implements the minijs tree-walking evaluator.
package evaluator

import (
	"fmt"
	"math"
	"strconv"

	"github.com/thomasrohde/minijs/pkg/diagnostics"
)

// Type discriminates the runtime value variants.
type Type int

const (
	TypeNull Type = iota
	TypeNumber
	TypeString
	TypeBoolean
	TypeIdentifier
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	case TypeIdentifier:
		return "identifier"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Value is the interface for all minijs runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	Type() Type
	// Raw returns the underlying Go payload: nil, float64, string, bool, or the identifier name.
	Raw() any
	// String renders the value the way print does.
	String() string
	value() // sealed marker
}

// Null represents absence.
type Null struct{}

func (Null) Type() Type     { return TypeNull }
func (Null) Raw() any       { return nil }
func (Null) String() string { return "null" }
func (Null) value()         {}

// Number is a float64 numeric value.
type Number struct {
	Value float64
}

func (n Number) Type() Type     { return TypeNumber }
func (n Number) Raw() any       { return n.Value }
func (n Number) String() string { return FormatNumber(n.Value) }
func (Number) value()           {}

// String is a text value. Quote delimiters are never part of Value.
type String struct {
	Value string
}

func (s String) Type() Type     { return TypeString }
func (s String) Raw() any       { return s.Value }
func (s String) String() string { return s.Value }
func (String) value()           {}

// Boolean is a true/false value.
type Boolean struct {
	Value bool
}

func (b Boolean) Type() Type     { return TypeBoolean }
func (b Boolean) Raw() any       { return b.Value }
func (b Boolean) String() string { return strconv.FormatBool(b.Value) }
func (Boolean) value()           {}

// Identifier is an unresolved reference to a binding.
type Identifier struct {
	Name string
}

func (i Identifier) Type() Type     { return TypeIdentifier }
func (i Identifier) Raw() any       { return i.Name }
func (i Identifier) String() string { return i.Name }
func (Identifier) value()           {}

// NewNull creates a null value.
func NewNull() Value {
	return Null{}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) Value {
	return Number{Value: n}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Boolean{Value: b}
}

// NewIdentifier creates an identifier reference.
func NewIdentifier(name string) Value {
	return Identifier{Name: name}
}

// NumberFromLiteral builds a Number from its source text.
func NumberFromLiteral(text string) (Number, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Number{}, &RuntimeError{
			Code:    diagnostics.EType,
			Message: fmt.Sprintf("malformed number literal %q", text),
		}
	}
	return Number{Value: f}, nil
}

// StringFromLiteral builds a String from its quoted source text.
func StringFromLiteral(text string) String {
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	return String{Value: text}
}

// BooleanFromLiteral builds a Boolean from "true" or "false".
func BooleanFromLiteral(text string) (Boolean, error) {
	switch text {
	case "true":
		return Boolean{Value: true}, nil
	case "false":
		return Boolean{Value: false}, nil
	}
	return Boolean{}, &RuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("malformed boolean literal %q, expected true or false", text),
	}
}

// FormatNumber formats a float64 as an integer string if it's a whole number.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) && !math.IsNaN(n) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', 0, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// --- Number operations. Both operands are numbers; the evaluator checks first. ---

func (n Number) Add(o Number) Number      { return Number{Value: n.Value + o.Value} }
func (n Number) Minus(o Number) Number    { return Number{Value: n.Value - o.Value} }
func (n Number) Multiply(o Number) Number { return Number{Value: n.Value * o.Value} }

// Divide follows IEEE-754: x/0 is ±Inf and 0/0 is NaN.
func (n Number) Divide(o Number) Number { return Number{Value: n.Value / o.Value} }

func (n Number) GreaterThan(o Number) Boolean    { return Boolean{Value: n.Value > o.Value} }
func (n Number) GreaterOrEqual(o Number) Boolean { return Boolean{Value: n.Value >= o.Value} }
func (n Number) LessThan(o Number) Boolean       { return Boolean{Value: n.Value < o.Value} }
func (n Number) LessOrEqual(o Number) Boolean    { return Boolean{Value: n.Value <= o.Value} }
func (n Number) EqualTo(o Number) Boolean        { return Boolean{Value: n.Value == o.Value} }
func (n Number) NotEqualTo(o Number) Boolean     { return Boolean{Value: n.Value != o.Value} }

// --- Boolean operations ---

func (b Boolean) And(o Boolean) Boolean        { return Boolean{Value: b.Value && o.Value} }
func (b Boolean) Or(o Boolean) Boolean         { return Boolean{Value: b.Value || o.Value} }
func (b Boolean) EqualTo(o Boolean) Boolean    { return Boolean{Value: b.Value == o.Value} }
func (b Boolean) NotEqualTo(o Boolean) Boolean { return Boolean{Value: b.Value != o.Value} }
