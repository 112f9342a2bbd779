// Package codegen turns a source unit's declarations into host runtime
// registrations. Declarations are scanned and compiled in one pass, then each
// fragment is replaced in the emitted text by generated host code; everything
// between fragments passes through byte for byte. Replacements keep the
// original fragment's newline count so diagnostics in the emitted unit
// report the author's line numbers.
package codegen

import (
	"fmt"
	"strings"

	"lute/declc-go/pkg/compiler"
	"lute/declc-go/pkg/decl"
)

// runtimeNS is the host-side namespace the generated registration calls
// resolve against.
const runtimeNS = "__declc"

// Rewrite compiles every declaration in source into the space and returns the
// unit's emitted text with each declaration replaced by its generated host
// code. The first definition or syntax error aborts the unit.
func Rewrite(unit, source string, space *compiler.Space) (string, error) {
	frags, err := decl.ScanUnit(source)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(source))
	pos := 0
	for _, frag := range frags {
		if err := space.DefineFromDecl(unit, frag.Node); err != nil {
			return "", err
		}
		out.WriteString(source[pos:frag.Start])
		original := source[frag.Start:frag.End]
		replacement, err := render(unit, frag.Node, space)
		if err != nil {
			return "", err
		}
		padded, err := padNewlines(replacement, original)
		if err != nil {
			return "", err
		}
		out.WriteString(padded)
		pos = frag.End
	}
	out.WriteString(source[pos:])
	return out.String(), nil
}

// render produces the host code a declaration compiles to. Generated
// statements for one fragment are joined by spaces so the only newlines in a
// replacement are the ones carried inside verbatim host expressions and
// bodies.
func render(unit string, node decl.Node, space *compiler.Space) (string, error) {
	switch n := node.(type) {
	case *decl.ClassDecl:
		fq := compiler.FQName(unit, n.Name)
		parts := []string{fmt.Sprintf("%s::class(%s);", runtimeNS, strings.Join(classArgs(fq, space), ", "))}
		for _, attr := range n.Attributes {
			access := compiler.AccessOf(attr.Modifier)
			args := []string{quote(fq), quote(attr.Name), quote(access.String()), quote(attr.HintText)}
			if attr.HasDefault && compiler.IsScalarLiteral(attr.DefaultExpr) {
				args = append(args, strings.TrimSpace(attr.DefaultExpr))
			}
			parts = append(parts, fmt.Sprintf("%s::has(%s);", runtimeNS, strings.Join(args, ", ")))
		}
		for _, attr := range n.Attributes {
			if attr.HasDefault && !compiler.IsScalarLiteral(attr.DefaultExpr) {
				parts = append(parts, fmt.Sprintf("%s::default('%s', '%s', function (self) { return %s; });",
					runtimeNS, fq, attr.Name, strings.TrimSpace(attr.DefaultExpr)))
			}
		}
		for _, fn := range n.Functions {
			parts = append(parts, fmt.Sprintf("%s::method('%s', '%s', function (%s) %s);",
				runtimeNS, fq, fn.Name, paramList(fn.Params), fn.Body))
		}
		return strings.Join(parts, " "), nil
	case *decl.AttributeDecl:
		if n.HasDefault && !compiler.IsScalarLiteral(n.DefaultExpr) {
			return fmt.Sprintf("%s::attr('%s', '%s', function (self) { return %s; });",
				runtimeNS, unit, n.Name, strings.TrimSpace(n.DefaultExpr)), nil
		}
		return fmt.Sprintf("%s::attr('%s', '%s');", runtimeNS, unit, n.Name), nil
	case *decl.FunctionDecl:
		// Hints are documentation only: the emitted function is the
		// declaration minus its hint annotations.
		return fmt.Sprintf("function %s(%s) %s", n.Name, paramList(n.Params), n.Body), nil
	case *decl.BindDecl:
		return fmt.Sprintf("bind %s = %s;", n.Name, strings.TrimSpace(n.Expr)), nil
	default:
		return "", fmt.Errorf("no code generation for %s", node.NodeType())
	}
}

// classArgs lists the registration arguments for a class: its qualified name
// followed by every resolved parent, compiled ancestors first, then opaque
// host-defined ones. Parents come from the registered descriptor so that
// short names written in the source resolve to the same class the compiler
// bound them to.
func classArgs(fq string, space *compiler.Space) []string {
	args := []string{quote(fq)}
	cls, ok := space.Lookup(fq)
	if !ok {
		return args
	}
	for _, p := range cls.Parents {
		args = append(args, quote(p.FQName))
	}
	for _, p := range cls.ExternalParents {
		args = append(args, quote(p))
	}
	return args
}

func quote(s string) string {
	return "'" + s + "'"
}

func paramList(params []*decl.ParamDecl) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

// padNewlines appends blank lines until the replacement spans as many lines
// as the fragment it replaces. Generated code never exceeds the original's
// newline count: the only newlines it can contain come from verbatim spans
// of the fragment itself.
func padNewlines(replacement, original string) (string, error) {
	want := strings.Count(original, "\n")
	have := strings.Count(replacement, "\n")
	if have > want {
		return "", fmt.Errorf("generated code spans %d lines, fragment only %d", have+1, want+1)
	}
	return replacement + strings.Repeat("\n", want-have), nil
}
