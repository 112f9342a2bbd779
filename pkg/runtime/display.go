package runtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numericScalar = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// String renders the canonical display form: Name(k1=>v1, k2=>v2, ...) with
// external names sorted, nested instances rendered recursively, numeric
// scalars bare, other scalars quoted, and `undef` for absent values.
func (inst *Instance) String() string {
	var b strings.Builder
	b.WriteString(inst.class.ShortName)
	b.WriteByte('(')
	first := true
	for _, attr := range inst.class.Attributes() {
		if attr.Access == AccessInitVar {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(attr.ExternalName)
		b.WriteString("=>")
		value, ok := inst.fields[attr.InternalKey]
		if !ok {
			b.WriteString("undef")
			continue
		}
		b.WriteString(renderValue(value))
	}
	b.WriteByte(')')
	return b.String()
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "undef"
	case Thunk:
		// A still-deferred default has no observable value yet.
		return "undef"
	case *Instance:
		return v.String()
	case bool:
		return strconv.Quote(strconv.FormatBool(v))
	}
	s := fmt.Sprintf("%v", value)
	if numericScalar.MatchString(s) {
		return s
	}
	return strconv.Quote(s)
}
