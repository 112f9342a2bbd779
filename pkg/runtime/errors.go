package runtime

import "fmt"

// DefinitionError reports a malformed or conflicting declaration. Definition
// failures are fatal to the compilation unit that raised them.
type DefinitionError struct {
	Name string
	Msg  string
}

func (e *DefinitionError) Error() string { return e.Msg }

// Definitionf builds a DefinitionError naming the offending declaration.
func Definitionf(name, format string, args ...any) *DefinitionError {
	return &DefinitionError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// ArgumentError reports a bad constructor invocation: an argument matching no
// attribute, or a required attribute left unset.
type ArgumentError struct {
	Name string
	Msg  string
}

func (e *ArgumentError) Error() string { return e.Msg }

// Argumentf builds an ArgumentError naming the offending argument.
func Argumentf(name, format string, args ...any) *ArgumentError {
	return &ArgumentError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// AccessError reports a visibility or writability violation on a generated
// accessor. It is raised at access time and propagated to the caller.
type AccessError struct {
	Name string
	Msg  string
}

func (e *AccessError) Error() string { return e.Msg }

// Accessf builds an AccessError naming the offending attribute.
func Accessf(name, format string, args ...any) *AccessError {
	return &AccessError{Name: name, Msg: fmt.Sprintf(format, args...)}
}
