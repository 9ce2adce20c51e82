package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectPaths captures canonical locations for a splicer project.
type ProjectPaths struct {
	Root           string
	ConfigFile     string
	PlanFile       string
	MetaDir        string
	ExportsDir     string
	OverlaysDir    string
	LogsDir        string
	ProvenanceFile string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".splicer")
	return ProjectPaths{
		Root:           root,
		ConfigFile:     filepath.Join(root, "splicer.yaml"),
		PlanFile:       filepath.Join(root, "plan.yaml"),
		MetaDir:        metaDir,
		ExportsDir:     filepath.Join(root, "exports"),
		OverlaysDir:    filepath.Join(metaDir, "overlays"),
		LogsDir:        filepath.Join(root, "logs"),
		ProvenanceFile: filepath.Join(metaDir, "provenance.db"),
	}
}

// WithPlan points PlanFile at an explicit plan path, resolved against the
// project root when relative.
func (p ProjectPaths) WithPlan(plan string) ProjectPaths {
	if plan = strings.TrimSpace(plan); plan != "" {
		p.PlanFile = p.Resolve(plan)
	}
	return p
}

// Resolve returns value as an absolute path, joining relative values onto
// the project root.
func (p ProjectPaths) Resolve(value string) string {
	return resolveProjectPath(p.Root, value)
}

// OutputPath resolves an export target. Bare file names land in ExportsDir.
func (p ProjectPaths) OutputPath(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	if filepath.Base(value) == value {
		return filepath.Join(p.ExportsDir, value)
	}
	return filepath.Join(p.Root, value)
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	return nil
}

// EnsureMetaDirs creates the exports/logs hierarchy alongside the hidden
// .splicer metadata directory.
func (p ProjectPaths) EnsureMetaDirs() error {
	dirs := []string{p.MetaDir, p.OverlaysDir, p.ExportsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
