package eval

import (
	"fmt"
	"strings"

	"github.com/adamtc007/data-designer-sub001/pkg/adl/ast"
)

// Kind identifies the runtime type of a Value.
type Kind int

// Value kinds.
const (
	KindNull Kind = iota
	KindNumber
	KindString
	KindBool
	KindList
)

var kindNames = map[Kind]string{
	KindNull:   "null",
	KindNumber: "number",
	KindString: "string",
	KindBool:   "bool",
	KindList:   "list",
}

// String returns the kind name used in error messages.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Value is one runtime value: a number, string, bool, null, or list.
// The zero Value is Null. Values are immutable; treat the slice returned by
// AsList as read-only.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	list []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// ListOf returns a list value holding the given elements.
func ListOf(elems ...Value) Value {
	return Value{kind: KindList, list: elems}
}

// FromAny converts a plain Go value, such as one decoded from YAML or JSON,
// into a Value. Integers widen to float64; nested slices become lists. Maps
// and every other type are rejected: the language has no map values.
func FromAny(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case float64:
		return Number(x), nil
	case string:
		return String(x), nil
	case Value:
		return x, nil
	case []any:
		elems := make([]Value, len(x))
		for i, e := range x {
			ev, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			elems[i] = ev
		}
		return ListOf(elems...), nil
	default:
		return Null(), fmt.Errorf("unsupported value type %T", v)
	}
}

// Kind returns the runtime type of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull returns true for the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsNumber returns the numeric content, if the value is a number.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsString returns the string content, if the value is a string.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsBool returns the boolean content, if the value is a bool.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsList returns the elements, if the value is a list.
func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

// Display renders the value the way concatenation sees it: strings verbatim,
// numbers in minimal decimal form, booleans as true/false, null as "null",
// lists in bracketed comma form. This is the language's only implicit
// conversion.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindNumber:
		return ast.FormatNumber(v.num)
	case KindString:
		return v.str
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, elem := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(elem.Display())
		}
		sb.WriteByte(']')
		return sb.String()
	}
	return "invalid"
}

// String renders the value for logs and test output. It differs from Display
// only in quoting strings, so value kinds stay distinguishable.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return "\"" + v.str + "\""
	case KindList:
		var sb strings.Builder
		sb.WriteByte('[')
		for i, elem := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(elem.String())
		}
		sb.WriteByte(']')
		return sb.String()
	}
	return v.Display()
}

// Equal reports deep equality. Values of different kinds are never equal;
// comparing across kinds is not an error here because == must answer false,
// not fail.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}
