package compiler

import (
	"lute/declc-go/pkg/decl"
	"lute/declc-go/pkg/runtime"
)

// AccessOf maps a declaration modifier to its access level. `attribute` is
// the public synonym.
func AccessOf(mod decl.Modifier) runtime.Access {
	switch mod {
	case decl.ModPrivate:
		return runtime.AccessPrivate
	case decl.ModProtected:
		return runtime.AccessProtected
	case decl.ModReadOnly:
		return runtime.AccessReadOnly
	case decl.ModLazy:
		return runtime.AccessLazy
	case decl.ModInitVar:
		return runtime.AccessInitVar
	default:
		return runtime.AccessPublic
	}
}

// DefineFromDecl registers one parsed declaration into the space. Class and
// bare-attribute declarations build descriptors; function and bind
// declarations only have their hints validated, since hints carry no runtime
// behaviour.
func (s *Space) DefineFromDecl(unit string, node decl.Node) error {
	switch n := node.(type) {
	case *decl.ClassDecl:
		spec := ClassSpec{Name: n.Name, Parents: n.Parents}
		for _, a := range n.Attributes {
			attrSpec := AttributeSpec{
				Name:   a.Name,
				Access: AccessOf(a.Modifier),
				Hint:   a.HintText,
			}
			if a.HasDefault {
				attrSpec.Default = DefaultThunk(a.DefaultExpr)
			}
			spec.Attributes = append(spec.Attributes, attrSpec)
		}
		if _, _, err := s.DefineClass(unit, spec); err != nil {
			return err
		}
		for _, fn := range n.Functions {
			if err := s.validateFunctionHints(unit, fn); err != nil {
				return err
			}
		}
		return nil
	case *decl.AttributeDecl:
		spec := AttributeSpec{
			Name:   n.Name,
			Access: AccessOf(n.Modifier),
			Hint:   n.HintText,
		}
		if n.HasDefault {
			spec.Default = DefaultThunk(n.DefaultExpr)
		}
		_, err := s.DefineBareAttribute(unit, spec)
		return err
	case *decl.FunctionDecl:
		return s.validateFunctionHints(unit, n)
	case *decl.BindDecl:
		if n.HintText == "" {
			return nil
		}
		if err := s.ValidateHint(unit, n.HintText); err != nil {
			return runtime.Definitionf(n.Name, "bind '%s': %v", n.Name, err)
		}
		return nil
	default:
		return runtime.Definitionf("", "unsupported declaration %s", node.NodeType())
	}
}

func (s *Space) validateFunctionHints(unit string, fn *decl.FunctionDecl) error {
	for _, p := range fn.Params {
		if p.HintText == "" {
			continue
		}
		if err := s.ValidateHint(unit, p.HintText); err != nil {
			return runtime.Definitionf(fn.Name, "function '%s', parameter '%s': %v", fn.Name, p.Name, err)
		}
	}
	if fn.ReturnHint != "" {
		if err := s.ValidateHint(unit, fn.ReturnHint); err != nil {
			return runtime.Definitionf(fn.Name, "function '%s' return hint: %v", fn.Name, err)
		}
	}
	return nil
}
