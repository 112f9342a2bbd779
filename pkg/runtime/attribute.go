package runtime

import (
	"fmt"

	"lute/declc-go/pkg/hint"
)

// Access identifies the declared access level of an attribute.
type Access int

const (
	AccessPublic Access = iota
	AccessPrivate
	AccessProtected
	AccessReadOnly
	AccessLazy
	AccessInitVar
)

func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessPrivate:
		return "private"
	case AccessProtected:
		return "protected"
	case AccessReadOnly:
		return "readonly"
	case AccessLazy:
		return "lazy"
	case AccessInitVar:
		return "initvar"
	default:
		return fmt.Sprintf("unknown_access_%d", int(a))
	}
}

// Mangled reports whether the access level hides the internal key behind the
// defining class's qualified name.
func (a Access) Mangled() bool {
	switch a {
	case AccessPrivate, AccessProtected, AccessReadOnly:
		return true
	default:
		return false
	}
}

// Thunk is a deferred value producer registered as an attribute default. It
// receives the instance under construction (or under first read, for lazy and
// bare attributes).
type Thunk func(*Instance) (any, error)

// Method is a host method attached to a class. Override hooks use the same
// shape: a read hook takes no extra arguments, a write hook takes the value.
type Method func(*Instance, ...any) (any, error)

// PostHook is the post-construction hook. It receives the original argument
// mapping so it can consume initvars and derive cross-field state.
type PostHook func(*Instance, map[string]any) error

// Attribute is the compiled descriptor for one declared attribute.
type Attribute struct {
	ExternalName string
	InternalKey  string
	Access       Access
	Hint         *hint.Hint
	Default      Thunk
	// Lazy defers the default to first read and rejects all writes.
	Lazy bool
	// DeferDefault forces the default on first read instead of at
	// construction. Set for lazy attributes and bare attributes that live
	// outside a full class.
	DeferDefault bool
	// Defining is the class that declared the attribute. Private-level
	// identity checks resolve against it even after the descriptor is
	// inherited into a subclass.
	Defining *Class
	// ReadHook and WriteHook are the override hooks resolved once at
	// flattening time, so accessors never probe for them per call.
	ReadHook  Method
	WriteHook Method
}

// MangleKey derives the internal storage key for an attribute of the given
// access level. Mangled keys embed the defining class's qualified name; they
// are a naming convention, not a capability boundary, and stay reachable
// through raw keyed access.
func MangleKey(definingFQ, name string, access Access) string {
	if access.Mangled() {
		return definingFQ + "::" + name
	}
	return name
}

func (a *Attribute) checkVisibility(from *Class) error {
	switch a.Access {
	case AccessPrivate:
		if from != a.Defining {
			return Accessf(a.ExternalName, "attribute '%s' is private to %s", a.ExternalName, a.Defining.FQName)
		}
	case AccessProtected:
		if from == nil || !from.DescendsFrom(a.Defining) {
			return Accessf(a.ExternalName, "attribute '%s' is protected by %s", a.ExternalName, a.Defining.FQName)
		}
	}
	return nil
}
