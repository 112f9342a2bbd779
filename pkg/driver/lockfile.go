package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lockfile records the resolved state of a package's dependencies
// (package.lock). It pins git dependencies to exact revisions so installs
// reproduce.
type Lockfile struct {
	Path     string           `yaml:"-"`
	Root     string           `yaml:"root"`
	Tool     string           `yaml:"tool"`
	Packages []*LockedPackage `yaml:"packages"`
}

// LockedPackage is one resolved dependency entry.
type LockedPackage struct {
	Name    string `yaml:"name"`
	Source  string `yaml:"source"`
	Version string `yaml:"version,omitempty"`
	Rev     string `yaml:"rev,omitempty"`
}

// NewLockfile returns an empty lockfile for the named root package.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{Root: root, Tool: tool}
}

// LoadLockfile reads and parses package.lock. A missing file surfaces as
// os.ErrNotExist so callers can distinguish "never installed" from damage.
func LoadLockfile(path string) (*Lockfile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var lock Lockfile
	if err := decoder.Decode(&lock); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("lockfile: %s is empty", path)
		}
		return nil, fmt.Errorf("lockfile: parse %s: %w", path, err)
	}
	lock.Path = path
	return &lock, nil
}

// WriteLockfile serialises the lockfile with entries sorted by name.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nothing to write")
	}
	sort.Slice(lock.Packages, func(i, j int) bool {
		return lock.Packages[i].Name < lock.Packages[j].Name
	})
	data, err := yaml.Marshal(lock)
	if err != nil {
		return fmt.Errorf("lockfile: encode: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("lockfile: prepare %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	lock.Path = path
	return nil
}

// Package looks up a locked entry by name, case-insensitively.
func (l *Lockfile) Package(name string) (*LockedPackage, bool) {
	key := sanitizeName(name)
	for _, pkg := range l.Packages {
		if pkg != nil && sanitizeName(pkg.Name) == key {
			return pkg, true
		}
	}
	return nil, false
}

// SetPackage inserts or replaces an entry, reporting whether the lockfile
// changed as a result.
func (l *Lockfile) SetPackage(entry *LockedPackage) bool {
	if entry == nil {
		return false
	}
	key := sanitizeName(entry.Name)
	for i, pkg := range l.Packages {
		if pkg != nil && sanitizeName(pkg.Name) == key {
			if *pkg == *entry {
				return false
			}
			l.Packages[i] = entry
			return true
		}
	}
	l.Packages = append(l.Packages, entry)
	return true
}

// Remove drops entries whose names are in the given set, reporting whether
// anything was removed.
func (l *Lockfile) Remove(names []string) bool {
	if len(names) == 0 {
		return false
	}
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[sanitizeName(name)] = struct{}{}
	}
	kept := l.Packages[:0]
	removed := false
	for _, pkg := range l.Packages {
		if pkg == nil {
			continue
		}
		if _, ok := drop[sanitizeName(pkg.Name)]; ok {
			removed = true
			continue
		}
		kept = append(kept, pkg)
	}
	l.Packages = kept
	return removed
}

// GitSource formats the source field for a git dependency.
func GitSource(url string) string { return "git:" + url }

// PathSource formats the source field for a path dependency.
func PathSource(rel string) string { return "path:" + filepath.ToSlash(rel) }

// IsPathSource reports whether the entry came from a path override.
func (p *LockedPackage) IsPathSource() bool {
	return strings.HasPrefix(p.Source, "path:")
}
