package hint

import "fmt"

// Registry resolves hint leaves that are not primitives. HasClass answers for
// class short-names registered with the declaration compiler; SymbolExists is
// the external existence oracle for host-defined types.
type Registry interface {
	HasClass(name string) bool
	SymbolExists(name string) bool
}

// ValidationError reports a hint leaf rejected at definition time.
type ValidationError struct {
	Leaf string
	Msg  string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalidLeaf(name string) *ValidationError {
	return &ValidationError{Leaf: name, Msg: fmt.Sprintf("%s is not a valid type hint", name)}
}

func invalidContainer(name string) *ValidationError {
	return &ValidationError{Leaf: name, Msg: fmt.Sprintf("%s cannot be parameterised with [...]", name)}
}

// Validate checks every leaf of the hint against the fixed primitives, the
// registered class names, and the external oracle. reg may be nil, in which
// case only primitives are accepted.
func Validate(h *Hint, reg Registry) error {
	return validateHint(h, reg, false)
}

func validateHint(h *Hint, reg Registry, insideObject bool) error {
	if h == nil || len(h.Alts) == 0 {
		return &ValidationError{Msg: "empty type hint"}
	}
	for _, alt := range h.Alts {
		if err := validateExpr(alt, reg, insideObject); err != nil {
			return err
		}
	}
	return nil
}

func validateExpr(expr Expr, reg Registry, insideObject bool) error {
	switch e := expr.(type) {
	case *Leaf:
		return validateLeaf(e.Name, reg)
	case *Container:
		if !IsContainerCapable(e.Name) {
			return invalidContainer(e.Name)
		}
		return validateHint(e.Elem, reg, insideObject)
	case *Object:
		if insideObject {
			return &ValidationError{Msg: "object hints do not nest"}
		}
		for _, f := range e.Fields {
			if err := validateHint(f.Value, reg, true); err != nil {
				return err
			}
		}
		return nil
	default:
		return &ValidationError{Msg: fmt.Sprintf("unsupported hint node %T", expr)}
	}
}

func validateLeaf(name string, reg Registry) error {
	if IsPrimitive(name) {
		return nil
	}
	if reg != nil {
		if reg.HasClass(name) {
			return nil
		}
		if reg.SymbolExists(name) {
			return nil
		}
	}
	return invalidLeaf(name)
}
