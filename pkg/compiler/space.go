package compiler

import (
	"sync"

	"lute/declc-go/pkg/runtime"
)

// Oracle answers existence checks for host-defined symbols, used to accept
// hint leaves and parent classes the compiler itself never saw.
type Oracle func(name string) bool

// Space is the class-space context for one compiler run: every registry the
// declaration phase mutates lives here, never in package globals. Definition
// is append-only; classes are added and sealed, never removed. The mutex
// serializes definition-phase writes for concurrent hosts; construction of
// already-flattened classes reads the space without locking.
type Space struct {
	mu sync.Mutex
	// classes maps fully-qualified names; units and shorts map short names
	// per declaring unit and space-wide (last registration wins).
	classes map[string]*runtime.Class
	units   map[string]map[string]string
	shorts  map[string]string
	// plains holds the implicit container per unit for bare attributes,
	// singles the container's storage.
	plains  map[string]*runtime.Class
	singles map[string]*runtime.Instance
	oracle  Oracle
}

// NewSpace creates an empty class space. oracle may be nil.
func NewSpace(oracle Oracle) *Space {
	return &Space{
		classes: make(map[string]*runtime.Class),
		units:   make(map[string]map[string]string),
		shorts:  make(map[string]string),
		plains:  make(map[string]*runtime.Class),
		singles: make(map[string]*runtime.Instance),
		oracle:  oracle,
	}
}

// FQName derives the fully-qualified name of a class declared in a unit.
// Scoping by unit keeps the same short name in unrelated units from
// colliding.
func FQName(unit, shortName string) string {
	return unit + "::" + shortName
}

// Lookup returns a class by fully-qualified name.
func (s *Space) Lookup(fq string) (*runtime.Class, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[fq]
	return c, ok
}

// Resolve resolves a short name contextually: the declaring unit first, then
// the latest registration anywhere in the space.
func (s *Space) Resolve(unit, shortName string) (*runtime.Class, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveLocked(unit, shortName)
}

func (s *Space) resolveLocked(unit, shortName string) (*runtime.Class, bool) {
	if names, ok := s.units[unit]; ok {
		if fq, ok := names[shortName]; ok {
			return s.classes[fq], true
		}
	}
	if fq, ok := s.shorts[shortName]; ok {
		return s.classes[fq], true
	}
	return nil, false
}

// ClassCount reports how many classes the space holds, excluding the
// implicit plain containers.
func (s *Space) ClassCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.classes)
}

func (s *Space) symbolExistsLocked(name string) bool {
	return s.oracle != nil && s.oracle(name)
}

// unitRegistry adapts the space to hint.Registry for one unit. It is only
// used while the definition mutex is already held.
type unitRegistry struct {
	space *Space
	unit  string
}

func (r unitRegistry) HasClass(name string) bool {
	_, ok := r.space.resolveLocked(r.unit, name)
	return ok
}

func (r unitRegistry) SymbolExists(name string) bool {
	return r.space.symbolExistsLocked(name)
}
