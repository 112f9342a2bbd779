package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Installer resolves a manifest's dependencies into the cache directory and
// records the outcome in a lockfile.
type Installer struct {
	manifest *Manifest
	cacheDir string
}

// NewInstaller prepares dependency resolution for a loaded manifest. cacheDir
// is where git checkouts live (DECLC_HOME).
func NewInstaller(manifest *Manifest, cacheDir string) *Installer {
	return &Installer{manifest: manifest, cacheDir: cacheDir}
}

// CheckoutDir returns where a named dependency is (or would be) checked out.
func (in *Installer) CheckoutDir(name string) string {
	return filepath.Join(in.cacheDir, "deps", sanitizeName(name))
}

// Install resolves every declared dependency, updating lock in place. A
// locked git revision is reused when still reachable, so repeat installs are
// reproducible; entries for dependencies no longer in the manifest are
// pruned. It returns whether the lockfile changed, plus one log line per
// dependency.
func (in *Installer) Install(lock *Lockfile) (bool, []string, error) {
	changed := false
	var logs []string

	var stale []string
	for _, pkg := range lock.Packages {
		if pkg == nil {
			continue
		}
		if _, ok := in.manifest.Dependencies[pkg.Name]; !ok {
			stale = append(stale, pkg.Name)
		}
	}
	if lock.Remove(stale) {
		changed = true
		for _, name := range stale {
			logs = append(logs, fmt.Sprintf("%s: removed (no longer in manifest)", name))
		}
	}

	for _, name := range in.manifest.DependencyNames() {
		spec := in.manifest.Dependencies[name]
		if spec == nil {
			continue
		}
		switch {
		case spec.Path != "":
			entry, err := in.resolvePath(name, spec)
			if err != nil {
				return changed, logs, err
			}
			if lock.SetPackage(entry) {
				changed = true
			}
			logs = append(logs, fmt.Sprintf("%s: using path %s", name, spec.Path))
		case spec.Git != "":
			entry, err := in.resolveGit(name, spec, lock)
			if err != nil {
				return changed, logs, err
			}
			if lock.SetPackage(entry) {
				changed = true
			}
			logs = append(logs, fmt.Sprintf("%s: checked out %s", name, shortRev(entry.Rev)))
		default:
			return changed, logs, fmt.Errorf("dependency %q: no package registry exists; specify git or path", name)
		}
	}
	return changed, logs, nil
}

func (in *Installer) resolvePath(name string, spec *DependencySpec) (*LockedPackage, error) {
	dir := spec.Path
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(in.manifest.Dir(), filepath.FromSlash(spec.Path))
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: path %s: %w", name, spec.Path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dependency %q: path %s is not a directory", name, spec.Path)
	}
	version := spec.Version
	if depManifest, err := LoadManifest(filepath.Join(dir, "package.yml")); err == nil {
		version = depManifest.Version
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	return &LockedPackage{
		Name:    name,
		Source:  PathSource(spec.Path),
		Version: version,
	}, nil
}

func (in *Installer) resolveGit(name string, spec *DependencySpec, lock *Lockfile) (*LockedPackage, error) {
	dir := in.CheckoutDir(name)
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainClone(dir, false, &git.CloneOptions{URL: spec.Git})
	}
	if err != nil {
		return nil, fmt.Errorf("dependency %q: clone %s: %w", name, spec.Git, err)
	}

	revision := in.desiredRevision(name, spec, lock)
	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		if fetchErr := repo.Fetch(&git.FetchOptions{Tags: git.AllTags}); fetchErr != nil && !errors.Is(fetchErr, git.NoErrAlreadyUpToDate) {
			return nil, fmt.Errorf("dependency %q: fetch %s: %w", name, spec.Git, fetchErr)
		}
		hash, err = repo.ResolveRevision(plumbing.Revision(revision))
		if err != nil {
			return nil, fmt.Errorf("dependency %q: resolve %q: %w", name, revision, err)
		}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("dependency %q: worktree: %w", name, err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return nil, fmt.Errorf("dependency %q: checkout %s: %w", name, hash, err)
	}

	return &LockedPackage{
		Name:   name,
		Source: GitSource(spec.Git),
		Rev:    hash.String(),
	}, nil
}

// desiredRevision picks what to check out: a still-valid locked revision
// first, then the manifest's pin, then the remote default head.
func (in *Installer) desiredRevision(name string, spec *DependencySpec, lock *Lockfile) string {
	if locked, ok := lock.Package(name); ok && locked.Rev != "" && locked.Source == GitSource(spec.Git) {
		return locked.Rev
	}
	switch {
	case spec.Rev != "":
		return spec.Rev
	case spec.Tag != "":
		return "refs/tags/" + spec.Tag
	case spec.Branch != "":
		return "refs/remotes/origin/" + spec.Branch
	default:
		return "HEAD"
	}
}

func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
