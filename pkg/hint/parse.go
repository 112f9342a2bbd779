package hint

import (
	"fmt"
	"strings"
	"unicode"
)

// maxDepth bounds bracket recursion so malformed input fails fast instead of
// blowing the stack.
const maxDepth = 100

// ParseError reports malformed hint text.
type ParseError struct {
	Text string
	Pos  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("hint %q: %s (at offset %d)", e.Text, e.Msg, e.Pos)
}

type parser struct {
	src string
	pos int
}

// Parse parses hint text into a Hint tree.
//
// Grammar:
//
//	hint := alt ('|' alt)*
//	alt  := name | name '[' hint ']' | '{' field ':' hint (',' field ':' hint)* '}'
func Parse(text string) (*Hint, error) {
	p := &parser{src: text}
	h, err := p.parseHint(0)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return h, nil
}

func (p *parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Text: p.src, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseHint(depth int) (*Hint, error) {
	if depth > maxDepth {
		return nil, p.errorf("hint nesting exceeds depth limit %d", maxDepth)
	}
	first, err := p.parseAlt(depth)
	if err != nil {
		return nil, err
	}
	alts := []Expr{first}
	for {
		p.skipSpace()
		if !p.consume('|') {
			break
		}
		alt, err := p.parseAlt(depth)
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	return &Hint{Alts: alts}, nil
}

func (p *parser) parseAlt(depth int) (Expr, error) {
	p.skipSpace()
	if p.consume('{') {
		return p.parseObject(depth)
	}
	name, ok := p.ident()
	if !ok {
		return nil, p.errorf("expected type name")
	}
	p.skipSpace()
	if p.consume('[') {
		elem, err := p.parseHint(depth + 1)
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consume(']') {
			return nil, p.errorf("expected ']' to close %s[...]", name)
		}
		return &Container{Name: name, Elem: elem}, nil
	}
	return &Leaf{Name: name}, nil
}

func (p *parser) parseObject(depth int) (Expr, error) {
	obj := &Object{}
	for {
		p.skipSpace()
		field, ok := p.ident()
		if !ok {
			return nil, p.errorf("expected field name in object hint")
		}
		p.skipSpace()
		if !p.consume(':') {
			return nil, p.errorf("expected ':' after field %q", field)
		}
		value, err := p.parseHint(depth + 1)
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, ObjectField{Name: field, Value: value})
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			return obj, nil
		}
		return nil, p.errorf("expected ',' or '}' in object hint")
	}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		if !unicode.IsSpace(rune(p.src[p.pos])) {
			return
		}
		p.pos++
	}
}

func (p *parser) consume(ch byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *parser) ident() (string, bool) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' && p.pos > start || c == ':' && strings.HasPrefix(p.src[p.pos:], "::") {
			if c == ':' {
				p.pos += 2
				continue
			}
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", false
	}
	return p.src[start:p.pos], true
}
