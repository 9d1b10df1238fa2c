package synth

import (
	"fmt"
	"strings"
)

// valueType describes one Go type a node may accept or return. Every type can
// be reduced to an int and built back from one, so any input/output pair has
// a transformation that compiles without imports.
type valueType struct {
	name    string
	literal func(seed int) string
	toInt   func(expr string) string
	fromInt []func(x string) string
}

var catalog = []valueType{
	{
		name:    "int",
		literal: func(seed int) string { return fmt.Sprintf("%d", seed%20+1) },
		toInt:   func(e string) string { return e },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("(%s) * 2", x) },
			func(x string) string { return fmt.Sprintf("(%s) + 7", x) },
		},
	},
	{
		name:    "float64",
		literal: func(seed int) string { return fmt.Sprintf("%d.5", seed%10) },
		toInt:   func(e string) string { return fmt.Sprintf("int(%s)", e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("float64(%s) / 2", x) },
			func(x string) string { return fmt.Sprintf("float64(%s) * 1.5", x) },
		},
	},
	{
		name:    "string",
		literal: func(seed int) string { return fmt.Sprintf("%q", word(seed)) },
		toInt:   func(e string) string { return fmt.Sprintf("len(%s)", e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("string(rune('a' + ((%s)%%26+26)%%26))", x) },
			func(x string) string { return fmt.Sprintf("\"v\" + string(rune('0' + ((%s)%%10+10)%%10))", x) },
		},
	},
	{
		name: "bool",
		literal: func(seed int) string {
			if seed%2 == 0 {
				return "true"
			}
			return "false"
		},
		toInt: func(e string) string { return fmt.Sprintf("map[bool]int{true: 1, false: 0}[%s]", e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("(%s)%%2 == 0", x) },
			func(x string) string { return fmt.Sprintf("(%s) > 10", x) },
		},
	},
	{
		name:    "[]int",
		literal: func(seed int) string { return fmt.Sprintf("[]int{%d, %d, %d}", seed%5, seed%5+1, seed%5+2) },
		toInt:   func(e string) string { return fmt.Sprintf("len(%s)", e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("[]int{%s, (%s) + 1}", x, x) },
			func(x string) string { return fmt.Sprintf("[]int{(%s) * 3}", x) },
		},
	},
	{
		name:    "map[string]int",
		literal: func(seed int) string { return fmt.Sprintf("map[string]int{%q: %d}", word(seed), seed%50) },
		toInt:   func(e string) string { return fmt.Sprintf("len(%s)", e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("map[string]int{\"value\": %s}", x) },
			func(x string) string { return fmt.Sprintf("map[string]int{\"size\": %s, \"double\": (%s) * 2}", x, x) },
		},
	},
	{
		name:    "[2]int",
		literal: func(seed int) string { return fmt.Sprintf("[2]int{%d, %d}", seed%10*10, seed%10*10+10) },
		toInt:   func(e string) string { return fmt.Sprintf("%s[0] + %s[1]", e, e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("[2]int{%s, (%s) * 2}", x, x) },
		},
	},
	{
		name:    "map[int]struct{}",
		literal: func(seed int) string { return fmt.Sprintf("map[int]struct{}{%d: {}, %d: {}}", seed%7, seed%7+1) },
		toInt:   func(e string) string { return fmt.Sprintf("len(%s)", e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("map[int]struct{}{%s: {}}", x) },
		},
	},
	{
		name:    "complex128",
		literal: func(seed int) string { return fmt.Sprintf("complex(%d, %d)", seed%5+1, seed%3+1) },
		toInt:   func(e string) string { return fmt.Sprintf("int(real(%s))", e) },
		fromInt: []func(string) string{
			func(x string) string { return fmt.Sprintf("complex(float64(%s), 1)", x) },
		},
	},
}

// TypeNames lists the value types nodes may declare
func TypeNames() []string {
	names := make([]string, len(catalog))
	for i, t := range catalog {
		names[i] = t.name
	}
	return names
}

// IsValueType reports whether name is one of TypeNames
func IsValueType(name string) bool {
	_, ok := lookupType(name)
	return ok
}

func lookupType(name string) (valueType, bool) {
	for _, t := range catalog {
		if t.name == name {
			return t, true
		}
	}
	return valueType{}, false
}

// Literal returns a constant expression of the named type
func Literal(typeName string, seed int) (string, error) {
	t, ok := lookupType(typeName)
	if !ok {
		return "", fmt.Errorf("unknown value type %q", typeName)
	}
	if seed < 0 {
		seed = -seed
	}
	return t.literal(seed), nil
}

// Transformation returns an expression converting the variable parameter of
// type in into a value of type out
func Transformation(in, out string, variant int) (string, error) {
	from, ok := lookupType(in)
	if !ok {
		return "", fmt.Errorf("unknown value type %q", in)
	}
	to, ok := lookupType(out)
	if !ok {
		return "", fmt.Errorf("unknown value type %q", out)
	}
	if variant < 0 {
		variant = -variant
	}
	build := to.fromInt[variant%len(to.fromInt)]
	return build(from.toInt("parameter")), nil
}

func word(seed int) string {
	var b strings.Builder
	for i := 0; i < 5; i++ {
		b.WriteByte(byte('a' + (seed*7+i*13)%26))
	}
	return b.String()
}
