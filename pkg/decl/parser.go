package decl

import (
	"fmt"
	"strings"
)

// SyntaxError reports malformed declaration text.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) lineAt(pos int) int {
	return 1 + strings.Count(s.src[:pos], "\n")
}

func (s *scanner) errorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: s.lineAt(s.pos), Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) skipTrivia() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			s.pos++
		case c == '#':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

func isWordStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isWordByte(c byte) bool {
	return isWordStart(c) || c >= '0' && c <= '9'
}

func (s *scanner) word() string {
	start := s.pos
	if s.pos < len(s.src) && isWordStart(s.src[s.pos]) {
		s.pos++
		for s.pos < len(s.src) && isWordByte(s.src[s.pos]) {
			s.pos++
		}
	}
	return s.src[start:s.pos]
}

// qualifiedWord consumes `name` or `ns::name`, for parent classes defined
// outside the package.
func (s *scanner) qualifiedWord() string {
	start := s.pos
	if s.word() == "" {
		return ""
	}
	for strings.HasPrefix(s.src[s.pos:], "::") {
		probe := s.pos + 2
		if probe >= len(s.src) || !isWordStart(s.src[probe]) {
			break
		}
		s.pos = probe
		s.word()
	}
	return s.src[start:s.pos]
}

func (s *scanner) consume(ch byte) bool {
	s.skipTrivia()
	if s.pos < len(s.src) && s.src[s.pos] == ch {
		s.pos++
		return true
	}
	return false
}

// skipString consumes a single- or double-quoted host string literal with
// backslash escapes. The opening quote is at s.pos.
func (s *scanner) skipString() error {
	quote := s.src[s.pos]
	s.pos++
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == '\\' {
			s.pos += 2
			continue
		}
		s.pos++
		if c == quote {
			return nil
		}
	}
	return s.errorf("unterminated string literal")
}

// rawUntil consumes host text up to (not including) the first byte of stops
// found at bracket depth zero, honouring strings and comments. The consumed
// text is returned trimmed.
func (s *scanner) rawUntil(stops string) (string, error) {
	start := s.pos
	depth := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\'' || c == '"':
			if err := s.skipString(); err != nil {
				return "", err
			}
			continue
		case c == '#':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			continue
		case c == '(' || c == '[' || c == '{':
			if depth == 0 && strings.IndexByte(stops, c) >= 0 {
				return strings.TrimSpace(s.src[start:s.pos]), nil
			}
			depth++
		case c == ')' || c == ']' || c == '}':
			if depth == 0 && strings.IndexByte(stops, c) >= 0 {
				return strings.TrimSpace(s.src[start:s.pos]), nil
			}
			depth--
			if depth < 0 {
				return "", s.errorf("unbalanced '%c'", c)
			}
		default:
			if depth == 0 && strings.IndexByte(stops, c) >= 0 {
				return strings.TrimSpace(s.src[start:s.pos]), nil
			}
		}
		s.pos++
	}
	return "", s.errorf("expected one of %q before end of input", stops)
}

// balancedBlock consumes a `{ ... }` block, returning the raw text including
// the outer braces.
func (s *scanner) balancedBlock() (string, error) {
	s.skipTrivia()
	if s.pos >= len(s.src) || s.src[s.pos] != '{' {
		return "", s.errorf("expected '{'")
	}
	start := s.pos
	depth := 0
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case '\'', '"':
			if err := s.skipString(); err != nil {
				return "", err
			}
			continue
		case '#':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				s.pos++
				return s.src[start:s.pos], nil
			}
		}
		s.pos++
	}
	return "", s.errorf("unterminated block")
}

// ParseFragment parses one declaration starting at offset start, which must
// point at a trigger keyword. It returns the node and the offset one past the
// consumed fragment.
func ParseFragment(src string, start int) (Node, int, error) {
	s := &scanner{src: src, pos: start}
	s.skipTrivia()
	kwPos := s.pos
	kw := s.word()
	var (
		node Node
		err  error
	)
	switch {
	case kw == "class":
		node, err = s.parseClass(kwPos)
	case kw == "function":
		node, err = s.parseFunction(kwPos)
	case kw == "bind":
		node, err = s.parseBind(kwPos)
	case IsModifier(kw):
		node, err = s.parseAttribute(Modifier(kw), kwPos)
	default:
		return nil, start, s.errorf("unknown declaration keyword %q", kw)
	}
	if err != nil {
		return nil, start, err
	}
	return node, s.pos, nil
}

func (s *scanner) parseAttribute(mod Modifier, kwPos int) (*AttributeDecl, error) {
	s.skipTrivia()
	name := s.word()
	if name == "" {
		return nil, s.errorf("%s declaration requires a name", mod)
	}
	hintText := ""
	if s.consume(':') {
		text, err := s.rawUntil("=;")
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, s.errorf("attribute '%s' has an empty type hint", name)
		}
		hintText = text
	}
	if s.consume(';') {
		return NewAttributeDecl(mod, name, hintText, "", false, s.lineAt(kwPos)), nil
	}
	if !s.consume('=') {
		return nil, s.errorf("attribute '%s' must end with ';' or '= <default>;'", name)
	}
	expr, err := s.rawUntil(";")
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return nil, s.errorf("attribute '%s' has an empty default", name)
	}
	s.pos++ // the ';'
	return NewAttributeDecl(mod, name, hintText, expr, true, s.lineAt(kwPos)), nil
}

func (s *scanner) parseFunction(kwPos int) (*FunctionDecl, error) {
	s.skipTrivia()
	name := s.word()
	if name == "" {
		return nil, s.errorf("function declaration requires a name")
	}
	if !s.consume('(') {
		return nil, s.errorf("function '%s' requires a parameter list", name)
	}
	var params []*ParamDecl
	s.skipTrivia()
	if !s.consume(')') {
		for {
			s.skipTrivia()
			paramName := s.word()
			if paramName == "" {
				return nil, s.errorf("expected parameter name in function '%s'", name)
			}
			paramHint := ""
			if s.consume(':') {
				text, err := s.rawUntil(",)")
				if err != nil {
					return nil, err
				}
				paramHint = text
			}
			params = append(params, NewParamDecl(paramName, paramHint))
			if s.consume(',') {
				continue
			}
			if s.consume(')') {
				break
			}
			return nil, s.errorf("expected ',' or ')' in parameter list of '%s'", name)
		}
	}
	returnHint := ""
	if s.consume(':') {
		text, err := s.rawUntil("{")
		if err != nil {
			return nil, err
		}
		returnHint = text
	}
	body, err := s.balancedBlock()
	if err != nil {
		return nil, err
	}
	return NewFunctionDecl(name, params, returnHint, body, s.lineAt(kwPos)), nil
}

func (s *scanner) parseBind(kwPos int) (*BindDecl, error) {
	s.skipTrivia()
	name := s.word()
	if name == "" {
		return nil, s.errorf("bind declaration requires a name")
	}
	hintText := ""
	if s.consume(':') {
		text, err := s.rawUntil("=")
		if err != nil {
			return nil, err
		}
		hintText = text
	}
	if !s.consume('=') {
		return nil, s.errorf("bind '%s' requires '= <expr>;'", name)
	}
	expr, err := s.rawUntil(";")
	if err != nil {
		return nil, err
	}
	if expr == "" {
		return nil, s.errorf("bind '%s' has an empty expression", name)
	}
	s.pos++ // the ';'
	return NewBindDecl(name, hintText, expr, s.lineAt(kwPos)), nil
}

func (s *scanner) parseClass(kwPos int) (*ClassDecl, error) {
	s.skipTrivia()
	name := s.word()
	if name == "" {
		return nil, s.errorf("class declaration requires a name")
	}
	var parents []string
	s.skipTrivia()
	if strings.HasPrefix(s.src[s.pos:], "extends") {
		probe := *s
		probe.pos += len("extends")
		if probe.pos < len(probe.src) && isWordByte(probe.src[probe.pos]) {
			return nil, s.errorf("expected '{' or 'extends' after class name")
		}
		s.pos = probe.pos
		for {
			s.skipTrivia()
			parent := s.qualifiedWord()
			if parent == "" {
				return nil, s.errorf("class '%s' extends requires a parent name", name)
			}
			parents = append(parents, parent)
			if !s.consume(',') {
				break
			}
		}
	}
	if !s.consume('{') {
		return nil, s.errorf("class '%s' requires a body", name)
	}
	var (
		attrs []*AttributeDecl
		fns   []*FunctionDecl
	)
	for {
		s.skipTrivia()
		if s.consume('}') {
			return NewClassDecl(name, parents, attrs, fns, s.lineAt(kwPos)), nil
		}
		if s.pos >= len(s.src) {
			return nil, s.errorf("unterminated body of class '%s'", name)
		}
		memberPos := s.pos
		kw := s.word()
		switch {
		case kw == "function":
			fn, err := s.parseFunction(memberPos)
			if err != nil {
				return nil, err
			}
			fns = append(fns, fn)
		case IsModifier(kw):
			attr, err := s.parseAttribute(Modifier(kw), memberPos)
			if err != nil {
				return nil, err
			}
			attrs = append(attrs, attr)
		default:
			return nil, s.errorf("unexpected %q in body of class '%s'", kw, name)
		}
	}
}
