package driver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const testTool = "declc 0.0.0-test"

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(dir, ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(rel)
		return err
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "declc",
			Email: "declc@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.yml")
	writeFile(t, path, `
name: geometry
version: 0.3.0
license: MIT
authors:
  - Ada
units:
  - src/shapes.lute
  - src/main.lute
oracle:
  - Host::Base
  - JSON::*
dependencies:
  vectors:
    git: https://example.com/vectors.git
    tag: v1.2.0
  local:
    path: ../local
`)
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Name != "geometry" || m.Version != "0.3.0" {
		t.Fatalf("header fields: %+v", m)
	}
	if len(m.Units) != 2 || m.Units[0] != "src/shapes.lute" {
		t.Fatalf("units: %v", m.Units)
	}
	if len(m.Dependencies) != 2 {
		t.Fatalf("dependencies: %v", m.Dependencies)
	}
	if dep := m.Dependencies["vectors"]; dep.Git == "" || dep.Tag != "v1.2.0" {
		t.Fatalf("vectors dep: %+v", dep)
	}

	oracle := m.OracleFunc()
	if !oracle("Host::Base") {
		t.Fatalf("exact oracle entry not matched")
	}
	if !oracle("JSON::encode") || !oracle("JSON::PP::decode") {
		t.Fatalf("wildcard oracle entry not matched")
	}
	if oracle("Host::Other") || oracle("JSON") {
		t.Fatalf("oracle matched symbols it should not")
	}
}

func TestLoadManifestAggregatesValidationIssues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.yml")
	writeFile(t, path, `
version: 1.0.0
units:
  - /abs/unit.lute
oracle:
  - "not a symbol"
dependencies:
  broken:
    path: ../x
    git: https://example.com/x.git
`)
	_, err := LoadManifest(path)
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	joined := verr.Error()
	for _, want := range []string{
		"name must be provided",
		"must be a path relative to the manifest",
		"not a symbol or namespace wildcard",
		"path overrides cannot specify version or git source",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing issue %q in:\n%s", want, joined)
		}
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.yml")
	writeFile(t, path, `
name: app
targets:
  main:
    type: executable
`)
	if _, err := LoadManifest(path); err == nil {
		t.Fatalf("expected unknown-field failure")
	}
}

func TestUnitName(t *testing.T) {
	cases := map[string]string{
		"src/shapes.lute": "shapes",
		"main.lute":       "main",
		"lib/deep/a.b.lt": "a.b",
	}
	for in, want := range cases {
		if got := UnitName(in); got != want {
			t.Errorf("UnitName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.lock")

	lock := NewLockfile("geometry", testTool)
	if !lock.SetPackage(&LockedPackage{Name: "vectors", Source: GitSource("https://example.com/v.git"), Rev: "abc123"}) {
		t.Fatalf("first SetPackage reported no change")
	}
	if lock.SetPackage(&LockedPackage{Name: "vectors", Source: GitSource("https://example.com/v.git"), Rev: "abc123"}) {
		t.Fatalf("identical SetPackage reported change")
	}
	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}

	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if loaded.Root != "geometry" || loaded.Tool != testTool {
		t.Fatalf("header fields: %+v", loaded)
	}
	pkg, ok := loaded.Package("Vectors")
	if !ok || pkg.Rev != "abc123" {
		t.Fatalf("locked package: %+v ok=%v", pkg, ok)
	}

	if _, err := LoadLockfile(filepath.Join(dir, "missing.lock")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing lockfile error = %v", err)
	}
}

func TestInstallerPathDependency(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	depDir := filepath.Join(root, "dep")
	writeFile(t, filepath.Join(appDir, "package.yml"), `
name: app
version: 0.1.0
units:
  - main.lute
dependencies:
  dep:
    path: ../dep
`)
	writeFile(t, filepath.Join(depDir, "package.yml"), `
name: dep
version: 0.2.0
units:
  - dep.lute
`)

	manifest, err := LoadManifest(filepath.Join(appDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	lock := NewLockfile(manifest.Name, testTool)
	installer := NewInstaller(manifest, filepath.Join(root, ".declc"))

	changed, logs, err := installer.Install(lock)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile change for new dependency")
	}
	if len(logs) == 0 {
		t.Fatalf("expected log output")
	}
	pkg, ok := lock.Package("dep")
	if !ok {
		t.Fatalf("dep not locked: %+v", lock.Packages)
	}
	if !pkg.IsPathSource() || pkg.Version != "0.2.0" {
		t.Fatalf("lock entry: %+v", pkg)
	}

	changed, _, err = installer.Install(lock)
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if changed {
		t.Fatalf("repeat install should not change the lockfile")
	}
}

func TestInstallerGitDependency(t *testing.T) {
	root := t.TempDir()
	upstream := filepath.Join(root, "upstream")
	writeFile(t, filepath.Join(upstream, "vectors.lute"), `class Vec2 { public x = 0; public y = 0; }`)
	rev := initGitRepo(t, upstream)

	appDir := filepath.Join(root, "app")
	writeFile(t, filepath.Join(appDir, "package.yml"), `
name: app
version: 0.1.0
units:
  - main.lute
dependencies:
  vectors:
    git: `+upstream+`
    rev: `+rev+`
`)

	manifest, err := LoadManifest(filepath.Join(appDir, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	cacheDir := filepath.Join(root, ".declc")
	lock := NewLockfile(manifest.Name, testTool)
	installer := NewInstaller(manifest, cacheDir)

	changed, _, err := installer.Install(lock)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile change")
	}
	pkg, ok := lock.Package("vectors")
	if !ok || pkg.Rev != rev {
		t.Fatalf("lock entry: %+v (want rev %s)", pkg, rev)
	}
	checkout := filepath.Join(installer.CheckoutDir("vectors"), "vectors.lute")
	if _, err := os.Stat(checkout); err != nil {
		t.Fatalf("checkout missing: %v", err)
	}

	changed, _, err = installer.Install(lock)
	if err != nil {
		t.Fatalf("second Install: %v", err)
	}
	if changed {
		t.Fatalf("locked revision should be reused unchanged")
	}
}

func TestInstallerRejectsRegistryOnlyDependency(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.yml"), `
name: app
units:
  - main.lute
dependencies:
  mystery:
    version: 1.0.0
`)
	manifest, err := LoadManifest(filepath.Join(root, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	installer := NewInstaller(manifest, filepath.Join(root, ".declc"))
	if _, _, err := installer.Install(NewLockfile(manifest.Name, testTool)); err == nil {
		t.Fatalf("expected registry error")
	} else if !strings.Contains(err.Error(), "no package registry") {
		t.Fatalf("unexpected error %q", err)
	}
}

func TestInstallerPrunesStaleEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.yml"), `
name: app
units:
  - main.lute
`)
	manifest, err := LoadManifest(filepath.Join(root, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	lock := NewLockfile(manifest.Name, testTool)
	lock.SetPackage(&LockedPackage{Name: "gone", Source: GitSource("https://example.com/gone.git"), Rev: "dead"})

	installer := NewInstaller(manifest, filepath.Join(root, ".declc"))
	changed, _, err := installer.Install(lock)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if !changed {
		t.Fatalf("expected lockfile change from pruning")
	}
	if len(lock.Packages) != 0 {
		t.Fatalf("stale entry survived: %+v", lock.Packages)
	}
}

func TestCompileUnitsAndBuild(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "shapes.lute"), `
class Shape {
	public name;
	readonly kind : str = 'generic';
}
`)
	writeFile(t, filepath.Join(root, "src", "main.lute"), `
class Circle extends Shape {
	public radius : num = 1;
}
say("done");
`)
	writeFile(t, filepath.Join(root, "package.yml"), `
name: shapes
version: 0.1.0
units:
  - src/shapes.lute
  - src/main.lute
`)

	manifest, err := LoadManifest(filepath.Join(root, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	space, units, err := CompileUnits(manifest)
	if err != nil {
		t.Fatalf("CompileUnits: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("units compiled: %d", len(units))
	}
	if _, ok := space.Lookup("shapes::Shape"); !ok {
		t.Fatalf("Shape not registered")
	}
	circle, ok := space.Lookup("main::Circle")
	if !ok {
		t.Fatalf("Circle not registered")
	}
	// Cross-unit parent resolution through the space-wide short name table.
	if _, found := circle.ByExternal("name"); !found {
		t.Fatalf("Circle did not inherit Shape's attributes")
	}

	outDir := filepath.Join(root, "build")
	written, err := Build(manifest, outDir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("written: %v", written)
	}
	emitted, err := os.ReadFile(filepath.Join(outDir, "src", "main.lute"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(emitted), "__declc::class('main::Circle', 'shapes::Shape');") {
		t.Fatalf("registration missing:\n%s", emitted)
	}
	src, _ := os.ReadFile(filepath.Join(root, "src", "main.lute"))
	if strings.Count(string(emitted), "\n") != strings.Count(string(src), "\n") {
		t.Fatalf("emitted unit changed line count")
	}

	count, err := Check(manifest)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if count != 2 {
		t.Fatalf("class count = %d, want 2", count)
	}
}

func TestCompileUnitsUsesOracleForParents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bridge.lute"), `
class Adapter extends Host::Widget {
	public label = 'x';
}
`)
	writeFile(t, filepath.Join(root, "package.yml"), `
name: bridge
units:
  - bridge.lute
oracle:
  - Host::*
`)
	manifest, err := LoadManifest(filepath.Join(root, "package.yml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	space, _, err := CompileUnits(manifest)
	if err != nil {
		t.Fatalf("CompileUnits: %v", err)
	}
	adapter, ok := space.Lookup("bridge::Adapter")
	if !ok {
		t.Fatalf("Adapter not registered")
	}
	if len(adapter.ExternalParents) != 1 || adapter.ExternalParents[0] != "Host::Widget" {
		t.Fatalf("external parents: %v", adapter.ExternalParents)
	}
}
