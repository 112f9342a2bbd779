package runtime

import "sort"

// Class is the immutable-after-flattening descriptor for a compiled class.
// A plain class (IsPlain) is the implicit container for bare attributes
// declared outside any class body; it has no constructor protocol.
type Class struct {
	ShortName string
	Unit      string
	FQName    string
	// Parents holds compiler-defined ancestors in declared order. Opaque
	// external ancestors contribute no attributes and appear only in
	// ExternalParents.
	Parents         []*Class
	ExternalParents []string
	Methods         map[string]Method
	PostConstruct   PostHook
	IsPlain         bool

	attrs      map[string]*Attribute // internal key -> descriptor
	byExternal map[string]*Attribute // external name -> descriptor
	flattened  bool
}

// NewClass creates an empty class descriptor. Attributes are added during the
// definition phase and the descriptor is sealed by SetFlattened.
func NewClass(unit, shortName, fqName string) *Class {
	return &Class{
		ShortName:  shortName,
		Unit:       unit,
		FQName:     fqName,
		Methods:    make(map[string]Method),
		attrs:      make(map[string]*Attribute),
		byExternal: make(map[string]*Attribute),
	}
}

// AddAttribute registers a locally declared attribute. Two attributes in the
// same declaration may not share an external name.
func (c *Class) AddAttribute(attr *Attribute) error {
	if c.flattened {
		return Definitionf(attr.ExternalName, "class %s is already flattened", c.FQName)
	}
	if _, exists := c.byExternal[attr.ExternalName]; exists {
		return Definitionf(attr.ExternalName, "attribute '%s' is already declared in %s", attr.ExternalName, c.FQName)
	}
	c.attrs[attr.InternalKey] = attr
	c.byExternal[attr.ExternalName] = attr
	return nil
}

// Adopt copies an ancestor attribute into the table during flattening,
// keeping the original internal key. Locally declared attributes are never
// overwritten; the first descriptor seen for an external name wins.
func (c *Class) Adopt(attr *Attribute) bool {
	if _, exists := c.byExternal[attr.ExternalName]; exists {
		return false
	}
	c.attrs[attr.InternalKey] = attr
	c.byExternal[attr.ExternalName] = attr
	return true
}

// ByExternal looks up an attribute by its accessor-visible name.
func (c *Class) ByExternal(name string) (*Attribute, bool) {
	attr, ok := c.byExternal[name]
	return attr, ok
}

// ByInternal looks up an attribute by its storage key.
func (c *Class) ByInternal(key string) (*Attribute, bool) {
	attr, ok := c.attrs[key]
	return attr, ok
}

// Attributes returns the flattened attribute table ordered by external name.
func (c *Class) Attributes() []*Attribute {
	names := make([]string, 0, len(c.byExternal))
	for name := range c.byExternal {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Attribute, 0, len(names))
	for _, name := range names {
		out = append(out, c.byExternal[name])
	}
	return out
}

// InternalKeyFor maps an external name to its storage key.
func (c *Class) InternalKeyFor(name string) (string, bool) {
	if attr, ok := c.byExternal[name]; ok {
		return attr.InternalKey, true
	}
	return "", false
}

// ExternalNameFor maps a storage key back to its accessor-visible name.
func (c *Class) ExternalNameFor(key string) (string, bool) {
	if attr, ok := c.attrs[key]; ok {
		return attr.ExternalName, true
	}
	return "", false
}

// DescendsFrom reports whether c is anc or inherits from it through
// compiler-defined ancestors.
func (c *Class) DescendsFrom(anc *Class) bool {
	if c == anc {
		return true
	}
	for _, p := range c.Parents {
		if p.DescendsFrom(anc) {
			return true
		}
	}
	return false
}

// SetFlattened seals the descriptor after inheritance resolution.
func (c *Class) SetFlattened() { c.flattened = true }

// Flattened reports whether the descriptor has been sealed.
func (c *Class) Flattened() bool { return c.flattened }
