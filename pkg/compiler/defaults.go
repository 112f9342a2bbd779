package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"lute/declc-go/pkg/runtime"
)

// DefaultThunk compiles a default expression from declaration text into a
// deferred value producer. Scalar literals evaluate in-process; anything else
// stays a host expression, carried through codegen verbatim and rejected if
// an in-process constructor tries to force it.
func DefaultThunk(expr string) runtime.Thunk {
	if value, ok := literalValue(expr); ok {
		return func(*runtime.Instance) (any, error) { return value, nil }
	}
	return func(*runtime.Instance) (any, error) {
		return nil, fmt.Errorf("default expression %q requires host evaluation", expr)
	}
}

// IsScalarLiteral reports whether a default expression is a scalar literal
// that evaluates in-process, with no host involvement.
func IsScalarLiteral(expr string) bool {
	_, ok := literalValue(expr)
	return ok
}

func literalValue(expr string) (any, bool) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "undef":
		return nil, true
	case "true":
		return true, true
	case "false":
		return false, true
	}
	if len(expr) >= 2 {
		if q := expr[0]; (q == '\'' || q == '"') && expr[len(expr)-1] == q {
			body := expr[1 : len(expr)-1]
			if !strings.ContainsRune(body, rune(q)) && !strings.ContainsRune(body, '\\') {
				return body, true
			}
		}
	}
	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(expr, 64); err == nil {
		return f, true
	}
	return nil, false
}
