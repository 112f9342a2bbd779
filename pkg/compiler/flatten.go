package compiler

import "lute/declc-go/pkg/runtime"

// linearize builds the ancestor traversal order: the class itself first, then
// for each ancestor its parents in reverse declared order, depth-first. This
// is a best-effort flattening, not a real method-resolution order: diamond
// fan-in resolves to whichever descriptor is seen first.
func linearize(c *runtime.Class) []*runtime.Class {
	order := []*runtime.Class{c}
	var walk func(*runtime.Class)
	walk = func(k *runtime.Class) {
		for i := len(k.Parents) - 1; i >= 0; i-- {
			p := k.Parents[i]
			order = append(order, p)
			walk(p)
		}
	}
	walk(c)
	return order
}

// Flatten merges ancestor attribute tables into the class in place and seals
// it. Only compiler-defined ancestors contribute; opaque external parents
// carry no attribute table. Inherited descriptors are shared verbatim,
// hint, default thunk, and internal key included, so private-level identity
// checks keep resolving against the attribute's true defining class.
func Flatten(c *runtime.Class) {
	order := linearize(c)
	for _, anc := range order[1:] {
		for _, attr := range anc.Attributes() {
			c.Adopt(attr)
		}
	}
	resolveHooks(c, order)
	c.SetFlattened()
}

// resolveHooks hoists the override-hook probe to flattening time: each
// locally declared attribute records its read/write hook once, instead of
// the accessor probing for one on every call.
func resolveHooks(c *runtime.Class, order []*runtime.Class) {
	for _, attr := range c.Attributes() {
		if attr.Defining != c {
			continue
		}
		if m := methodFor(order, "get_"+attr.ExternalName); m != nil {
			attr.ReadHook = m
		}
		if m := methodFor(order, "set_"+attr.ExternalName); m != nil {
			attr.WriteHook = m
		}
	}
}

func methodFor(order []*runtime.Class, name string) runtime.Method {
	for _, c := range order {
		if m, ok := c.Methods[name]; ok {
			return m
		}
	}
	return nil
}
