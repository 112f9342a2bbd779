package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"lute/declc-go/pkg/codegen"
	"lute/declc-go/pkg/compiler"
)

// CompiledUnit is one source unit after declaration rewriting.
type CompiledUnit struct {
	// Path is the unit's manifest-relative source path.
	Path string
	// Name is the unit name its declarations were registered under.
	Name string
	// Output is the emitted host source.
	Output string
}

// CompileUnits compiles the manifest's units in declared order into one
// shared space. Symbols outside the package resolve through the manifest's
// oracle list. Compilation stops at the first failing unit: a failed
// definition leaves its name claimed, so continuing would cascade.
func CompileUnits(m *Manifest) (*compiler.Space, []CompiledUnit, error) {
	if len(m.Units) == 0 {
		return nil, nil, fmt.Errorf("package %s declares no units", m.Name)
	}
	space := compiler.NewSpace(m.OracleFunc())
	units := make([]CompiledUnit, 0, len(m.Units))
	for _, unitPath := range m.Units {
		src, err := os.ReadFile(filepath.Join(m.Dir(), filepath.FromSlash(unitPath)))
		if err != nil {
			return nil, nil, fmt.Errorf("unit %s: %w", unitPath, err)
		}
		name := UnitName(unitPath)
		out, err := codegen.Rewrite(name, string(src), space)
		if err != nil {
			return nil, nil, fmt.Errorf("unit %s: %w", unitPath, err)
		}
		units = append(units, CompiledUnit{Path: unitPath, Name: name, Output: out})
	}
	return space, units, nil
}

// Build compiles the package and writes each emitted unit under outDir,
// mirroring the manifest-relative layout. It returns the written paths in
// unit order.
func Build(m *Manifest, outDir string) ([]string, error) {
	_, units, err := CompileUnits(m)
	if err != nil {
		return nil, err
	}
	written := make([]string, 0, len(units))
	for _, unit := range units {
		dest := filepath.Join(outDir, filepath.FromSlash(unit.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return written, fmt.Errorf("unit %s: prepare output: %w", unit.Path, err)
		}
		if err := os.WriteFile(dest, []byte(unit.Output), 0o644); err != nil {
			return written, fmt.Errorf("unit %s: write output: %w", unit.Path, err)
		}
		written = append(written, dest)
	}
	return written, nil
}

// Check compiles the package without writing output, returning the number of
// classes defined across all units.
func Check(m *Manifest) (int, error) {
	space, _, err := CompileUnits(m)
	if err != nil {
		return 0, err
	}
	return space.ClassCount(), nil
}
