package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"lute/declc-go/pkg/driver"
)

const cliToolVersion = "declc 0.1.0-dev"

var errManifestNotFound = errors.New("package.yml not found")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(os.Stdout, cliToolVersion)
		return 0
	case "build":
		return runBuild(args[1:])
	case "check":
		return runCheck(args[1:])
	case "deps":
		return runDeps(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  declc build [-o DIR] [--quiet]")
	fmt.Fprintln(os.Stderr, "  declc check")
	fmt.Fprintln(os.Stderr, "  declc deps install")
	fmt.Fprintln(os.Stderr, "  declc deps update [dependency ...]")
	fmt.Fprintln(os.Stderr, "  declc --version")
}

func runBuild(args []string) int {
	flags := pflag.NewFlagSet("build", pflag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	outDir := flags.StringP("out-dir", "o", "build", "directory for emitted units")
	quiet := flags.BoolP("quiet", "q", false, "suppress per-unit output")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
		return 1
	}

	manifest, err := loadManifestFromCwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	dest := *outDir
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(manifest.Dir(), dest)
	}
	written, err := driver.Build(manifest, dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		return 1
	}
	if !*quiet {
		for _, path := range written {
			fmt.Fprintln(os.Stdout, path)
		}
	}
	fmt.Fprintf(os.Stdout, "Built %d unit(s) into %s\n", len(written), dest)
	return 0
}

func runCheck(args []string) int {
	flags := pflag.NewFlagSet("check", pflag.ContinueOnError)
	flags.SetOutput(os.Stderr)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
		return 1
	}

	manifest, err := loadManifestFromCwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	count, err := driver.Check(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stdout, "ok: %d class(es) across %d unit(s)\n", count, len(manifest.Units))
	return 0
}

func runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "declc deps requires a subcommand (install, update)")
		return 1
	}
	switch args[0] {
	case "install":
		if len(args) > 1 {
			fmt.Fprintf(os.Stderr, "declc deps install does not take arguments (received %s)\n", strings.Join(args[1:], " "))
			return 1
		}
		return runDepsInstall()
	case "update":
		return runDepsUpdate(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown deps subcommand %q\n", args[0])
		return 1
	}
}

func runDepsInstall() int {
	manifest, err := loadManifestFromCwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	cacheDir, err := resolveDeclcHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve DECLC_HOME: %v\n", err)
		return 1
	}

	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(os.Stdout, "Root package: %s\n", manifest.Name)
	fmt.Fprintf(os.Stdout, "Dependencies: %d\n", len(manifest.Dependencies))
	fmt.Fprintf(os.Stdout, "Cache directory: %s\n", cacheDir)

	lock, lockPath, lockCreated, err := loadOrCreateLockfile(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	installer := driver.NewInstaller(manifest, cacheDir)
	changed, logs, err := installer.Install(lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve dependencies: %v\n", err)
		return 1
	}
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}

	if changed || lockCreated {
		action := "Updated"
		if lockCreated {
			action = "Created"
		}
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "%s package.lock: %s\n", action, lockPath)
	} else {
		fmt.Fprintf(os.Stdout, "package.lock already up to date: %s\n", lockPath)
	}
	return 0
}

func runDepsUpdate(targets []string) int {
	manifest, err := loadManifestFromCwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	cacheDir, err := resolveDeclcHome()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve DECLC_HOME: %v\n", err)
		return 1
	}

	lock, lockPath, lockCreated, err := loadOrCreateLockfile(manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	// Dropping a lock entry forces re-resolution from the manifest's pin; no
	// targets means update everything.
	if len(targets) == 0 {
		lock.Packages = nil
	} else {
		for _, target := range targets {
			if _, declared := manifest.Dependencies[target]; !declared {
				fmt.Fprintf(os.Stderr, "dependency %q not declared in manifest\n", target)
				return 1
			}
		}
		lock.Remove(targets)
	}

	installer := driver.NewInstaller(manifest, cacheDir)
	changed, logs, err := installer.Install(lock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to update dependencies: %v\n", err)
		return 1
	}
	for _, line := range logs {
		fmt.Fprintln(os.Stdout, line)
	}

	if changed || lockCreated {
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "Updated package.lock: %s\n", lockPath)
	} else {
		fmt.Fprintln(os.Stdout, "Dependencies already up to date.")
	}
	return 0
}

func loadManifestFromCwd() (*driver.Manifest, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	manifestPath, err := findManifest(cwd)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

func loadOrCreateLockfile(manifest *driver.Manifest) (*driver.Lockfile, string, bool, error) {
	lockPath := filepath.Join(manifest.Dir(), "package.lock")
	lock, err := driver.LoadLockfile(lockPath)
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			return nil, "", false, fmt.Errorf("lockfile root %q does not match manifest name %q", lock.Root, manifest.Name)
		}
		lock.Tool = cliToolVersion
		return lock, lockPath, false, nil
	case errors.Is(err, os.ErrNotExist):
		return driver.NewLockfile(manifest.Name, cliToolVersion), lockPath, true, nil
	default:
		return nil, "", false, fmt.Errorf("failed to read lockfile: %w", err)
	}
}

func findManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, "package.yml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no package.yml found from %s upwards: %w", origin, errManifestNotFound)
		}
		dir = parent
	}
}

func resolveDeclcHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("DECLC_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve DECLC_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".declc"), nil
}
