package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveUsesFlag(t *testing.T) {
	root := t.TempDir()
	pp, err := Resolve(root)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pp.ConfigFile != filepath.Join(root, "splicer.yaml") {
		t.Fatalf("unexpected config path %s", pp.ConfigFile)
	}
	if pp.ProvenanceFile != filepath.Join(root, ".splicer", "provenance.db") {
		t.Fatalf("unexpected provenance path %s", pp.ProvenanceFile)
	}
}

func TestWithPlanRelativeAndAbsolute(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root)

	if got := pp.WithPlan("edits/cut.yaml").PlanFile; got != filepath.Join(root, "edits/cut.yaml") {
		t.Fatalf("expected relative plan under root, got %s", got)
	}

	abs := filepath.Join(t.TempDir(), "plan.yaml")
	if got := pp.WithPlan(abs).PlanFile; got != abs {
		t.Fatalf("expected absolute plan %s, got %s", abs, got)
	}

	if got := pp.WithPlan("  ").PlanFile; got != pp.PlanFile {
		t.Fatalf("blank plan should keep default, got %s", got)
	}
}

func TestOutputPath(t *testing.T) {
	root := t.TempDir()
	pp := newProjectPaths(root)

	if got := pp.OutputPath("final.mp4"); got != filepath.Join(root, "exports", "final.mp4") {
		t.Fatalf("bare name should land in exports, got %s", got)
	}
	if got := pp.OutputPath("out/final.mp4"); got != filepath.Join(root, "out", "final.mp4") {
		t.Fatalf("relative path should resolve against root, got %s", got)
	}
	if got := pp.OutputPath(""); got != "" {
		t.Fatalf("empty output should stay empty, got %s", got)
	}
}

func TestEnsureMetaDirs(t *testing.T) {
	pp := newProjectPaths(t.TempDir())
	if err := pp.EnsureMetaDirs(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for _, dir := range []string{pp.MetaDir, pp.OverlaysDir, pp.ExportsDir, pp.LogsDir} {
		ok, err := DirExists(dir)
		if err != nil || !ok {
			t.Fatalf("expected %s to exist (err=%v)", dir, err)
		}
	}

	file := filepath.Join(pp.Root, "a.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if ok, _ := FileExists(file); !ok {
		t.Fatalf("expected file to exist")
	}
	if ok, _ := FileExists(pp.MetaDir); ok {
		t.Fatalf("directory should not count as a file")
	}
}
