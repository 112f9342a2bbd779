package compiler

import (
	"lute/declc-go/pkg/hint"
	"lute/declc-go/pkg/runtime"
)

// AttributeSpec is one attribute of a class being defined programmatically.
type AttributeSpec struct {
	Name    string
	Access  runtime.Access
	Hint    string // hint text, validated at definition time; empty for none
	Default runtime.Thunk
}

// ClassSpec is the input to DefineClass: the parsed class header and body.
type ClassSpec struct {
	Name          string
	Parents       []string
	Attributes    []AttributeSpec
	Methods       map[string]runtime.Method
	PostConstruct runtime.PostHook
}

// Constructor builds instances of a defined class from an external-name
// argument mapping.
type Constructor func(args map[string]any) (*runtime.Instance, error)

// DefineClass compiles a class declaration into the space: it derives the
// unit-scoped name, rejects redefinition, resolves parents, compiles the
// attribute table, flattens ancestors, and returns the sealed class together
// with its constructor. A failed definition is fatal to the unit; the
// partially registered name stays claimed.
func (s *Space) DefineClass(unit string, spec ClassSpec) (*runtime.Class, Constructor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fq := FQName(unit, spec.Name)
	if _, exists := s.classes[fq]; exists {
		return nil, nil, runtime.Definitionf(spec.Name, "class %s is already defined", fq)
	}

	c := runtime.NewClass(unit, spec.Name, fq)
	s.classes[fq] = c
	if s.units[unit] == nil {
		s.units[unit] = make(map[string]string)
	}
	s.units[unit][spec.Name] = fq
	s.shorts[spec.Name] = fq

	for _, parentName := range spec.Parents {
		if parent, ok := s.resolveLocked(unit, parentName); ok {
			c.Parents = append(c.Parents, parent)
			continue
		}
		if s.symbolExistsLocked(parentName) {
			c.ExternalParents = append(c.ExternalParents, parentName)
			continue
		}
		return nil, nil, runtime.Definitionf(parentName, "parent class '%s' of %s cannot be resolved", parentName, fq)
	}

	reg := unitRegistry{space: s, unit: unit}
	for _, attrSpec := range spec.Attributes {
		attr, err := compileAttribute(attrSpec, c, reg)
		if err != nil {
			return nil, nil, err
		}
		if err := c.AddAttribute(attr); err != nil {
			return nil, nil, err
		}
	}
	for name, m := range spec.Methods {
		c.Methods[name] = m
	}
	c.PostConstruct = spec.PostConstruct

	Flatten(c)
	ctor := func(args map[string]any) (*runtime.Instance, error) {
		return New(c, args)
	}
	return c, ctor, nil
}

// compileAttribute compiles one attribute declaration into its descriptor.
// classContext may be a plain container, in which case defaults defer to
// first read.
func compileAttribute(spec AttributeSpec, classContext *runtime.Class, reg hint.Registry) (*runtime.Attribute, error) {
	attr := &runtime.Attribute{
		ExternalName: spec.Name,
		InternalKey:  runtime.MangleKey(classContext.FQName, spec.Name, spec.Access),
		Access:       spec.Access,
		Default:      spec.Default,
		Lazy:         spec.Access == runtime.AccessLazy,
		DeferDefault: spec.Access == runtime.AccessLazy || classContext.IsPlain,
		Defining:     classContext,
	}
	if spec.Hint != "" {
		parsed, err := hint.Parse(spec.Hint)
		if err != nil {
			return nil, runtime.Definitionf(spec.Name, "attribute '%s': %v", spec.Name, err)
		}
		if err := hint.Validate(parsed, reg); err != nil {
			return nil, runtime.Definitionf(spec.Name, "attribute '%s': %v", spec.Name, err)
		}
		attr.Hint = parsed
	}
	return attr, nil
}

// DefineBareAttribute compiles an attribute declared outside any class into
// the unit's implicit plain container. Its default, if any, is deferred to
// first read.
func (s *Space) DefineBareAttribute(unit string, spec AttributeSpec) (*runtime.Attribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plain := s.plains[unit]
	if plain == nil {
		plain = runtime.NewClass(unit, unit, unit)
		plain.IsPlain = true
		s.plains[unit] = plain
		s.singles[unit] = runtime.NewInstance(plain)
	}
	reg := unitRegistry{space: s, unit: unit}
	attr, err := compileAttribute(spec, plain, reg)
	if err != nil {
		return nil, err
	}
	if err := plain.AddAttribute(attr); err != nil {
		return nil, err
	}
	if attr.Default != nil {
		s.singles[unit].RawSet(attr.InternalKey, attr.Default)
	}
	return attr, nil
}

// PlainInstance exposes the storage of a unit's bare attributes.
func (s *Space) PlainInstance(unit string) (*runtime.Instance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.singles[unit]
	return inst, ok
}

// ValidateHint parses and validates freestanding hint text (function
// parameters, return hints, binds) against the unit's view of the space.
// Hints are documentation only; validation is their sole runtime cost.
func (s *Space) ValidateHint(unit, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parsed, err := hint.Parse(text)
	if err != nil {
		return err
	}
	return hint.Validate(parsed, unitRegistry{space: s, unit: unit})
}
