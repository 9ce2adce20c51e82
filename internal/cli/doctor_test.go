package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"splicer/internal/config"
	"splicer/internal/paths"
)

func TestJoinComma(t *testing.T) {
	tests := []struct {
		input []string
		want  string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b"}, "a, b"},
		{[]string{"a", "b", "c"}, "a, b, c"},
	}

	for _, tt := range tests {
		got := joinComma(tt.input)
		if got != tt.want {
			t.Errorf("joinComma(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestCheckConfigWithError(t *testing.T) {
	var emptyCfg config.Config
	result := checkConfig(emptyCfg, fmt.Errorf("config file not found"))

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
	if result.Name != "Config" {
		t.Errorf("got name=%q, want Config", result.Name)
	}
}

func TestCheckConfigValid(t *testing.T) {
	result := checkConfig(config.Default(), nil)

	if result.Status != "ok" {
		t.Errorf("got status=%q (%s), want ok", result.Status, result.Summary)
	}
	if !strings.Contains(result.Summary, "presets: balanced, highest, low") {
		t.Errorf("summary %q does not list presets", result.Summary)
	}
}

func TestCheckConfigOddCanvas(t *testing.T) {
	cfg := config.Default()
	cfg.Video.Width = 641
	result := checkConfig(cfg, nil)

	if result.Status != "error" {
		t.Errorf("got status=%q, want error", result.Status)
	}
}

func TestCheckPlan(t *testing.T) {
	t.Run("missing plan warns", func(t *testing.T) {
		pp, _ := paths.Resolve(t.TempDir())
		if got := checkPlan(pp); got.Status != "warning" {
			t.Errorf("got status=%q, want warning", got.Status)
		}
	})

	t.Run("missing source file errors", func(t *testing.T) {
		dir := t.TempDir()
		plan := "sources:\n  a: a.mp4\nclips:\n  - source: a\n    duration: 1\n"
		if err := os.WriteFile(filepath.Join(dir, "plan.yaml"), []byte(plan), 0o644); err != nil {
			t.Fatal(err)
		}
		pp, _ := paths.Resolve(dir)
		got := checkPlan(pp)
		if got.Status != "error" || !strings.Contains(got.Summary, "1 source files missing") {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("complete plan is ok", func(t *testing.T) {
		pp, _ := paths.Resolve(newTestProject(t, testPlanYAML))
		got := checkPlan(pp)
		if got.Status != "ok" {
			t.Fatalf("got %+v", got)
		}
		if got.Summary != "2 clips, 2 sources, 1 overlays, 0 captions" {
			t.Errorf("summary = %q", got.Summary)
		}
	})
}

func TestDoctorCommand(t *testing.T) {
	useFakeTools(t)
	dir := newTestProject(t, testPlanYAML)

	out, _, err := execute(t, "doctor", "--project", dir)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	for _, want := range []string{"PROJECT HEALTH:", "Config:", "Plan:", "History:", "no exports yet"} {
		if !strings.Contains(out, want) {
			t.Errorf("doctor output missing %q:\n%s", want, out)
		}
	}
}
