package eval

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Func is one registered built-in. Arity is declared, not checked in Apply:
// the evaluator rejects calls outside [MinArgs, MaxArgs] before invoking it.
// MaxArgs of -1 means unbounded.
type Func struct {
	Name    string
	MinArgs int
	MaxArgs int
	Apply   func(args []Value) (Value, *Error)
}

// Registry maps upper-cased function names to implementations. Function name
// resolution is case-insensitive throughout the language.
type Registry struct {
	funcs map[string]Func
}

// NewRegistry creates a registry holding the given functions.
func NewRegistry(fns ...Func) *Registry {
	r := &Registry{funcs: make(map[string]Func, len(fns))}
	r.Register(fns...)
	return r
}

// Register adds functions to the registry. A later registration under the
// same name replaces the earlier one.
func (r *Registry) Register(fns ...Func) {
	for _, f := range fns {
		r.funcs[strings.ToUpper(f.Name)] = f
	}
}

// Lookup resolves a function name.
func (r *Registry) Lookup(name string) (Func, bool) {
	f, ok := r.funcs[strings.ToUpper(name)]
	return f, ok
}

// Names returns the registered names, sorted, for tooling and suggestions.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AllFunctions returns the complete built-in set.
func AllFunctions() []Func {
	var out []Func
	out = append(out, StringFunctions()...)
	out = append(out, NumberFunctions()...)
	out = append(out, CoreFunctions()...)
	out = append(out, RegexFunctions()...)
	return out
}

// StringFunctions returns the built-ins the strings extension contributes.
func StringFunctions() []Func {
	return []Func{
		{Name: "CONCAT", MinArgs: 1, MaxArgs: -1, Apply: fnConcat},
		{Name: "SUBSTRING", MinArgs: 2, MaxArgs: 3, Apply: fnSubstring},
		{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Apply: fnUpper},
		{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Apply: fnLower},
		{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Apply: fnTrim},
		{Name: "LENGTH", MinArgs: 1, MaxArgs: 1, Apply: fnLength},
		{Name: "LEN", MinArgs: 1, MaxArgs: 1, Apply: fnLength},
		{Name: "TO_STRING", MinArgs: 1, MaxArgs: 1, Apply: fnToString},
	}
}

// NumberFunctions returns the built-ins the arithmetic extension contributes.
func NumberFunctions() []Func {
	return []Func{
		{Name: "ABS", MinArgs: 1, MaxArgs: 1, Apply: numeric1("ABS", math.Abs)},
		{Name: "ROUND", MinArgs: 1, MaxArgs: 1, Apply: numeric1("ROUND", math.Round)},
		{Name: "FLOOR", MinArgs: 1, MaxArgs: 1, Apply: numeric1("FLOOR", math.Floor)},
		{Name: "CEIL", MinArgs: 1, MaxArgs: 1, Apply: numeric1("CEIL", math.Ceil)},
		{Name: "MIN", MinArgs: 1, MaxArgs: -1, Apply: fnMin},
		{Name: "MAX", MinArgs: 1, MaxArgs: -1, Apply: fnMax},
		{Name: "SUM", MinArgs: 1, MaxArgs: -1, Apply: fnSum},
		{Name: "AVG", MinArgs: 1, MaxArgs: -1, Apply: fnAvg},
		{Name: "TO_NUMBER", MinArgs: 1, MaxArgs: 1, Apply: fnToNumber},
	}
}

// CoreFunctions returns the built-ins available whenever function calls are
// enabled at all: predicates, conversions, and list access.
func CoreFunctions() []Func {
	return []Func{
		{Name: "COUNT", MinArgs: 0, MaxArgs: -1, Apply: fnCount},
		{Name: "HAS", MinArgs: 1, MaxArgs: 1, Apply: fnHas},
		{Name: "IS_NULL", MinArgs: 1, MaxArgs: 1, Apply: fnIsNull},
		{Name: "IS_EMPTY", MinArgs: 1, MaxArgs: 1, Apply: fnIsEmpty},
		{Name: "TO_BOOLEAN", MinArgs: 1, MaxArgs: 1, Apply: fnToBoolean},
		{Name: "FIRST", MinArgs: 1, MaxArgs: 1, Apply: fnFirst},
		{Name: "LAST", MinArgs: 1, MaxArgs: 1, Apply: fnLast},
		{Name: "GET", MinArgs: 2, MaxArgs: 2, Apply: fnGet},
	}
}

// RegexFunctions returns the built-ins the regex extension contributes.
// MATCHES as a function compiles its pattern per call; only the operator form
// caches compilation on the node.
func RegexFunctions() []Func {
	return []Func{
		{Name: "MATCHES", MinArgs: 2, MaxArgs: 2, Apply: fnMatches},
	}
}

func fnConcat(args []Value) (Value, *Error) {
	var sb strings.Builder
	for _, arg := range args {
		sb.WriteString(arg.Display())
	}
	return String(sb.String()), nil
}

func fnSubstring(args []Value) (Value, *Error) {
	text := args[0].Display()
	start, err := wantIndex("SUBSTRING start", args[1])
	if err != nil {
		return Null(), err
	}
	runes := []rune(text)
	if start >= len(runes) {
		return String(""), nil
	}
	runes = runes[start:]
	if len(args) == 3 {
		length, err := wantIndex("SUBSTRING length", args[2])
		if err != nil {
			return Null(), err
		}
		if length < len(runes) {
			runes = runes[:length]
		}
	}
	return String(string(runes)), nil
}

func fnUpper(args []Value) (Value, *Error) {
	return String(strings.ToUpper(args[0].Display())), nil
}

func fnLower(args []Value) (Value, *Error) {
	return String(strings.ToLower(args[0].Display())), nil
}

func fnTrim(args []Value) (Value, *Error) {
	return String(strings.TrimSpace(args[0].Display())), nil
}

func fnLength(args []Value) (Value, *Error) {
	switch args[0].Kind() {
	case KindString:
		s, _ := args[0].AsString()
		return Number(float64(utf8.RuneCountInString(s))), nil
	case KindList:
		elems, _ := args[0].AsList()
		return Number(float64(len(elems))), nil
	}
	return Number(float64(utf8.RuneCountInString(args[0].Display()))), nil
}

func fnToString(args []Value) (Value, *Error) {
	return String(args[0].Display()), nil
}

func numeric1(name string, fn func(float64) float64) func([]Value) (Value, *Error) {
	return func(args []Value) (Value, *Error) {
		n, ok := args[0].AsNumber()
		if !ok {
			return Null(), typeErr("%s requires a number, got %s", name, args[0].Kind())
		}
		return Number(fn(n)), nil
	}
}

func fnMin(args []Value) (Value, *Error) {
	best := args[0]
	for _, arg := range args[1:] {
		c, err := compareOrdered(arg, best)
		if err != nil {
			return Null(), err
		}
		if c < 0 {
			best = arg
		}
	}
	return best, nil
}

func fnMax(args []Value) (Value, *Error) {
	best := args[0]
	for _, arg := range args[1:] {
		c, err := compareOrdered(arg, best)
		if err != nil {
			return Null(), err
		}
		if c > 0 {
			best = arg
		}
	}
	return best, nil
}

// sumArgs adds every number in args, descending one level into lists.
func sumArgs(name string, args []Value) (total float64, n int, err *Error) {
	for _, arg := range args {
		switch arg.Kind() {
		case KindNumber:
			v, _ := arg.AsNumber()
			total += v
			n++
		case KindList:
			elems, _ := arg.AsList()
			for _, elem := range elems {
				v, ok := elem.AsNumber()
				if !ok {
					return 0, 0, typeErr("%s requires numeric values, got %s", name, elem.Kind())
				}
				total += v
				n++
			}
		default:
			return 0, 0, typeErr("%s requires numeric values, got %s", name, arg.Kind())
		}
	}
	return total, n, nil
}

func fnSum(args []Value) (Value, *Error) {
	total, _, err := sumArgs("SUM", args)
	if err != nil {
		return Null(), err
	}
	return Number(total), nil
}

func fnAvg(args []Value) (Value, *Error) {
	total, n, err := sumArgs("AVG", args)
	if err != nil {
		return Null(), err
	}
	if n == 0 {
		return Null(), typeErr("AVG requires at least one numeric value")
	}
	return Number(total / float64(n)), nil
}

func fnToNumber(args []Value) (Value, *Error) {
	switch args[0].Kind() {
	case KindNumber:
		return args[0], nil
	case KindBool:
		if b, _ := args[0].AsBool(); b {
			return Number(1), nil
		}
		return Number(0), nil
	case KindString:
		s, _ := args[0].AsString()
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Null(), typeErr("cannot convert %q to a number", s)
		}
		return Number(n), nil
	}
	return Null(), typeErr("cannot convert %s to a number", args[0].Kind())
}

func fnCount(args []Value) (Value, *Error) {
	n := 0
	for _, arg := range args {
		switch arg.Kind() {
		case KindList:
			elems, _ := arg.AsList()
			n += len(elems)
		case KindNull:
			// Nulls do not count.
		default:
			n++
		}
	}
	return Number(float64(n)), nil
}

func fnHas(args []Value) (Value, *Error) {
	return Bool(!args[0].IsNull()), nil
}

func fnIsNull(args []Value) (Value, *Error) {
	return Bool(args[0].IsNull()), nil
}

func fnIsEmpty(args []Value) (Value, *Error) {
	switch args[0].Kind() {
	case KindNull:
		return Bool(true), nil
	case KindString:
		s, _ := args[0].AsString()
		return Bool(s == ""), nil
	case KindList:
		elems, _ := args[0].AsList()
		return Bool(len(elems) == 0), nil
	}
	return Bool(false), nil
}

// fnToBoolean is the one place truthiness exists in the language, and only
// because the caller asked for the conversion by name.
func fnToBoolean(args []Value) (Value, *Error) {
	switch args[0].Kind() {
	case KindBool:
		return args[0], nil
	case KindNumber:
		n, _ := args[0].AsNumber()
		return Bool(n != 0), nil
	case KindString:
		s, _ := args[0].AsString()
		return Bool(s != "" && !strings.EqualFold(s, "false")), nil
	case KindList:
		elems, _ := args[0].AsList()
		return Bool(len(elems) != 0), nil
	}
	return Bool(false), nil
}

func fnFirst(args []Value) (Value, *Error) {
	elems, ok := args[0].AsList()
	if !ok {
		return Null(), typeErr("FIRST requires a list, got %s", args[0].Kind())
	}
	if len(elems) == 0 {
		return Null(), nil
	}
	return elems[0], nil
}

func fnLast(args []Value) (Value, *Error) {
	elems, ok := args[0].AsList()
	if !ok {
		return Null(), typeErr("LAST requires a list, got %s", args[0].Kind())
	}
	if len(elems) == 0 {
		return Null(), nil
	}
	return elems[len(elems)-1], nil
}

func fnGet(args []Value) (Value, *Error) {
	elems, ok := args[0].AsList()
	if !ok {
		return Null(), typeErr("GET requires a list, got %s", args[0].Kind())
	}
	idx, err := wantIndex("GET index", args[1])
	if err != nil {
		return Null(), err
	}
	if idx >= len(elems) {
		return Null(), nil
	}
	return elems[idx], nil
}

func fnMatches(args []Value) (Value, *Error) {
	s, ok := args[0].AsString()
	if !ok {
		return Null(), typeErr("MATCHES requires a string value, got %s", args[0].Kind())
	}
	pattern, ok := args[1].AsString()
	if !ok {
		return Null(), typeErr("MATCHES requires a string pattern, got %s", args[1].Kind())
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Null(), errf(ErrInvalidPattern, zeroSpan, "invalid pattern %q: %v", pattern, err)
	}
	return Bool(re.MatchString(s)), nil
}

// wantIndex extracts a non-negative integer from a numeric value.
func wantIndex(what string, v Value) (int, *Error) {
	n, ok := v.AsNumber()
	if !ok {
		return 0, typeErr("%s must be a number, got %s", what, v.Kind())
	}
	if n < 0 || n != math.Trunc(n) {
		return 0, typeErr("%s must be a non-negative integer, got %s", what, v.Display())
	}
	return int(n), nil
}

func typeErr(format string, args ...interface{}) *Error {
	return errf(ErrTypeMismatch, zeroSpan, format, args...)
}
