package runtime

// Instance is one constructed object: an internal-key to value mapping tagged
// with its class descriptor. Instances exclusively own their stored values
// except where a value is a shared reference.
type Instance struct {
	class  *Class
	fields map[string]any

	// Re-entrancy guards: while an override hook for an attribute runs, the
	// accessor falls through to storage instead of dispatching to the hook
	// again.
	inRead  map[string]bool
	inWrite map[string]bool
}

// NewInstance allocates an empty instance of the given class. Construction
// semantics (defaults, hooks, required checks) live in the class compiler;
// this is the raw allocation used by it and by interop code.
func NewInstance(c *Class) *Instance {
	return &Instance{
		class:   c,
		fields:  make(map[string]any),
		inRead:  make(map[string]bool),
		inWrite: make(map[string]bool),
	}
}

// Class returns the descriptor the instance was constructed from.
func (inst *Instance) Class() *Class { return inst.class }

// RawGet reads internal storage by key, bypassing all access control. This is
// the deliberate interop escape hatch: mangled keys are a naming convention,
// not a capability boundary.
func (inst *Instance) RawGet(key string) (any, bool) {
	v, ok := inst.fields[key]
	return v, ok
}

// RawSet writes internal storage by key, bypassing all access control.
func (inst *Instance) RawSet(key string, value any) {
	inst.fields[key] = value
}

// RawKeys returns the currently populated internal keys.
func (inst *Instance) RawKeys() []string {
	keys := make([]string, 0, len(inst.fields))
	for k := range inst.fields {
		keys = append(keys, k)
	}
	return keys
}

// Get reads an attribute through its generated accessor. from identifies the
// class whose code is performing the access; external callers pass nil.
func (inst *Instance) Get(name string, from *Class) (any, error) {
	attr, ok := inst.class.ByExternal(name)
	if !ok {
		return nil, Accessf(name, "class %s has no attribute '%s'", inst.class.FQName, name)
	}
	if attr.Access == AccessInitVar {
		return nil, Accessf(name, "initvar '%s' is not stored on instances of %s", name, inst.class.FQName)
	}
	if err := attr.checkVisibility(from); err != nil {
		return nil, err
	}
	if attr.ReadHook != nil && !inst.inRead[name] {
		inst.inRead[name] = true
		defer delete(inst.inRead, name)
		return attr.ReadHook(inst)
	}
	value := inst.fields[attr.InternalKey]
	if th, ok := value.(Thunk); ok {
		// Deferred default still pending: evaluate with the instance as
		// argument. No caching is added at this layer.
		return th(inst)
	}
	return value, nil
}

// Set writes an attribute through its generated accessor, subject to the same
// visibility rules as Get. Readonly and lazy attributes reject every write,
// including from the defining class.
func (inst *Instance) Set(name string, value any, from *Class) error {
	attr, ok := inst.class.ByExternal(name)
	if !ok {
		return Accessf(name, "class %s has no attribute '%s'", inst.class.FQName, name)
	}
	if attr.Access == AccessInitVar {
		return Accessf(name, "initvar '%s' is not stored on instances of %s", name, inst.class.FQName)
	}
	if err := attr.checkVisibility(from); err != nil {
		return err
	}
	switch attr.Access {
	case AccessReadOnly:
		return Accessf(name, "attribute '%s' is readonly", name)
	case AccessLazy:
		return Accessf(name, "attribute '%s' is lazy and cannot be assigned", name)
	}
	return inst.DispatchWrite(attr, value)
}

// DispatchWrite routes a value through the attribute's write hook when one is
// resolved and the hook is not already executing, and stores directly
// otherwise. The constructor uses it for argument assignment, which bypasses
// the readonly and lazy checks that apply to accessor writes.
func (inst *Instance) DispatchWrite(attr *Attribute, value any) error {
	if attr.WriteHook != nil && !inst.inWrite[attr.ExternalName] {
		inst.inWrite[attr.ExternalName] = true
		defer delete(inst.inWrite, attr.ExternalName)
		_, err := attr.WriteHook(inst, value)
		return err
	}
	inst.fields[attr.InternalKey] = value
	return nil
}
