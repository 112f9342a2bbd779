package decl

// Fragment is one recognized declaration within a source unit, with the byte
// span it occupies. Text between fragments is host code the compiler passes
// through untouched.
type Fragment struct {
	Node  Node
	Start int
	End   int
}

func isTrigger(word string) bool {
	switch word {
	case "class", "function", "bind":
		return true
	default:
		return IsModifier(word)
	}
}

// ScanUnit walks a source unit and parses every declaration introduced by a
// trigger keyword at the top level. Strings, comments, and brace blocks of
// plain host code are skipped wholesale.
func ScanUnit(src string) ([]Fragment, error) {
	s := &scanner{src: src}
	var frags []Fragment
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\'' || c == '"':
			if err := s.skipString(); err != nil {
				return nil, err
			}
		case c == '#':
			for s.pos < len(s.src) && s.src[s.pos] != '\n' {
				s.pos++
			}
		case c == '{':
			if _, err := s.balancedBlock(); err != nil {
				return nil, err
			}
		case isWordStart(c):
			wordStart := s.pos
			w := s.word()
			if !isTrigger(w) {
				continue
			}
			node, end, err := ParseFragment(s.src, wordStart)
			if err != nil {
				return nil, err
			}
			frags = append(frags, Fragment{Node: node, Start: wordStart, End: end})
			s.pos = end
		default:
			s.pos++
		}
	}
	return frags, nil
}
