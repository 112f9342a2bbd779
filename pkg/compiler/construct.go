package compiler

import (
	"fmt"

	"lute/declc-go/pkg/runtime"
)

// New runs the multi-phase construction protocol for a flattened class:
//
//  1. materialize registered defaults for unsupplied attributes, without
//     forcing deferred thunks;
//  2. assign supplied arguments, rejecting names that match no attribute and
//     dispatching write hooks where resolved;
//  3. run the post-construction hook with the original argument mapping;
//  4. fail on any non-initvar attribute still unset;
//  5. force every remaining non-lazy thunk, exactly once, with the instance
//     as argument.
func New(c *runtime.Class, args map[string]any) (*runtime.Instance, error) {
	if c.IsPlain {
		return nil, fmt.Errorf("%s is a plain container, not a constructible class", c.FQName)
	}
	if !c.Flattened() {
		return nil, fmt.Errorf("%s is not flattened; register it through a class space first", c.FQName)
	}
	inst := runtime.NewInstance(c)

	for _, attr := range c.Attributes() {
		if attr.Access == runtime.AccessInitVar {
			continue
		}
		if _, supplied := args[attr.ExternalName]; supplied {
			continue
		}
		if attr.Default != nil {
			inst.RawSet(attr.InternalKey, attr.Default)
		}
	}

	for name, value := range args {
		attr, ok := c.ByExternal(name)
		if !ok {
			return nil, runtime.Argumentf(name, "unknown constructor argument '%s' for class %s", name, c.FQName)
		}
		if attr.Access == runtime.AccessInitVar {
			// Initvars reach the post-construction hook through args and
			// are never stored as instance state.
			continue
		}
		if err := inst.DispatchWrite(attr, value); err != nil {
			return nil, err
		}
	}

	if c.PostConstruct != nil {
		if err := c.PostConstruct(inst, args); err != nil {
			return nil, err
		}
	}

	for _, attr := range c.Attributes() {
		if attr.Access == runtime.AccessInitVar {
			continue
		}
		if _, set := inst.RawGet(attr.InternalKey); !set {
			return nil, runtime.Argumentf(attr.ExternalName, "required parameter '%s' missing for class %s", attr.ExternalName, c.FQName)
		}
	}

	for _, attr := range c.Attributes() {
		value, ok := inst.RawGet(attr.InternalKey)
		if !ok {
			continue
		}
		th, pending := value.(runtime.Thunk)
		if !pending || attr.DeferDefault {
			continue
		}
		forced, err := th(inst)
		if err != nil {
			return nil, err
		}
		inst.RawSet(attr.InternalKey, forced)
	}

	return inst, nil
}
