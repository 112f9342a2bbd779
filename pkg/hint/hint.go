package hint

import (
	"fmt"
	"strings"
)

// Kind identifies the hint expression category.
type Kind int

const (
	KindLeaf Kind = iota
	KindContainer
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindContainer:
		return "container"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Expr is the shared behaviour for hint expression nodes.
type Expr interface {
	Kind() Kind
	String() string
}

// Hint is a top-level hint: a non-empty list of alternative expressions.
// Alternatives are not deduplicated and are never checked for overlap.
type Hint struct {
	Alts []Expr
}

func (h *Hint) String() string {
	parts := make([]string, 0, len(h.Alts))
	for _, alt := range h.Alts {
		parts = append(parts, alt.String())
	}
	return strings.Join(parts, "|")
}

// Leaf is a bare type name such as `int` or a class short-name.
type Leaf struct {
	Name string
}

func (l *Leaf) Kind() Kind     { return KindLeaf }
func (l *Leaf) String() string { return l.Name }

// Container is a bracket-parameterised hint such as `array[int|str]`.
type Container struct {
	Name string
	Elem *Hint
}

func (c *Container) Kind() Kind { return KindContainer }

func (c *Container) String() string {
	return fmt.Sprintf("%s[%s]", c.Name, c.Elem.String())
}

// ObjectField is one `name: hint` entry of an inline object hint.
type ObjectField struct {
	Name  string
	Value *Hint
}

// Object is an inline object hint such as `{x: int, y: str}`. Object hints
// are one level deep: an object may not appear anywhere inside another object.
type Object struct {
	Fields []ObjectField
}

func (o *Object) Kind() Kind { return KindObject }

func (o *Object) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Primitive leaf names accepted without consulting any registry.
var primitives = map[string]struct{}{
	"int":       {},
	"str":       {},
	"bool":      {},
	"undef":     {},
	"num":       {},
	"scalar":    {},
	"array":     {},
	"hash":      {},
	"coderef":   {},
	"object":    {},
	"hashref":   {},
	"arrayref":  {},
	"scalarref": {},
}

// Names allowed in container (bracketed) position.
var containerCapable = map[string]struct{}{
	"array":    {},
	"hash":     {},
	"arrayref": {},
	"hashref":  {},
}

// IsPrimitive reports whether name is one of the fixed primitive leaves.
func IsPrimitive(name string) bool {
	_, ok := primitives[name]
	return ok
}

// IsContainerCapable reports whether name may be used with brackets.
func IsContainerCapable(name string) bool {
	_, ok := containerCapable[name]
	return ok
}
