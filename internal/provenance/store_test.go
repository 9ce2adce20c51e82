package provenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"splicer/internal/config"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".splicer", "provenance.db")
	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestOpenCreatesSchema(t *testing.T) {
	store, _ := openTestStore(t)
	for _, table := range []string{"exports", "_migrations"} {
		var name string
		err := store.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.db")
	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	first.Close()

	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer second.Close()

	var count int
	if err := second.conn.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Errorf("migrations applied = %d, want 1", count)
	}
}

func TestBeginFinishRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	rec := &Record{
		CompositionID: "comp-1",
		PlanHash:      "sha256:plan",
		ConfigHash:    "sha256:cfg",
		Output:        "/tmp/out.mp4",
		Preset:        "balanced",
		Sources:       []string{"/media/a.mp4", "/media/b.mp4"},
		DurationS:     9.5,
	}
	if err := store.Begin(ctx, rec); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if rec.ID == "" {
		t.Fatal("Begin() did not assign an ID")
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusRunning || got.FinishedAt != nil {
		t.Fatalf("running record = %+v", got)
	}
	if len(got.Sources) != 2 || got.Sources[1] != "/media/b.mp4" {
		t.Errorf("sources = %v", got.Sources)
	}

	if err := store.Finish(ctx, rec.ID, StatusFailed, errors.New("encoder exploded")); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	got, err = store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusFailed || got.Error != "encoder exploded" || got.FinishedAt == nil {
		t.Errorf("finished record = %+v", got)
	}
}

func TestFinishUnknownID(t *testing.T) {
	store, _ := openTestStore(t)
	err := store.Finish(context.Background(), "missing", StatusSucceeded, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		store.now = func() time.Time { return at }
		if err := store.Begin(ctx, &Record{ID: id, Output: "o.mp4"}); err != nil {
			t.Fatalf("Begin(%s) error = %v", id, err)
		}
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("List() = %+v", all)
	}

	two, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(two) != 2 {
		t.Errorf("List(2) returned %d records", len(two))
	}
}

func TestOpenMarksInterruptedExports(t *testing.T) {
	store, path := openTestStore(t)
	ctx := context.Background()
	if err := store.Begin(ctx, &Record{ID: "stuck", Output: "o.mp4"}); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	store.Close()

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, "stuck")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusFailed || got.Error != "interrupted" {
		t.Errorf("interrupted record = %+v", got)
	}
}

func TestDecide(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	output := filepath.Join(t.TempDir(), "final.mp4")

	d, err := store.Decide(ctx, output, "p1", "c1", false)
	if err != nil || d.Action != ActionExport || d.Reason != ReasonNew {
		t.Fatalf("Decide() new = %+v, %v", d, err)
	}

	rec := &Record{Output: output, PlanHash: "p1", ConfigHash: "c1"}
	if err := store.Begin(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := store.Finish(ctx, rec.ID, StatusSucceeded, nil); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name       string
		plan, conf string
		force      bool
		writeFile  bool
		wantAction string
		wantReason string
	}{
		{"output missing", "p1", "c1", false, false, ActionExport, ReasonOutputMissing},
		{"up to date", "p1", "c1", false, true, ActionSkip, ReasonUpToDate},
		{"plan changed", "p2", "c1", false, true, ActionExport, ReasonInputChanged},
		{"config changed", "p1", "c2", false, true, ActionExport, ReasonConfigChanged},
		{"forced", "p1", "c1", true, true, ActionExport, ReasonForced},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.writeFile {
				if err := os.WriteFile(output, []byte("x"), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			d, err := store.Decide(ctx, output, tc.plan, tc.conf, tc.force)
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if d.Action != tc.wantAction || d.Reason != tc.wantReason {
				t.Errorf("Decide() = %s/%s, want %s/%s", d.Action, d.Reason, tc.wantAction, tc.wantReason)
			}
		})
	}
}

func TestConfigHashTracksPreset(t *testing.T) {
	cfg := config.Default()
	if ConfigHash(cfg, "low") == ConfigHash(cfg, "highest") {
		t.Error("presets with different settings hash equally")
	}
	if ConfigHash(cfg, "") != ConfigHash(cfg, "highest") {
		t.Error("empty preset should hash as the default preset")
	}
	changed := cfg
	changed.Video.Width = 1280
	if ConfigHash(cfg, "") == ConfigHash(changed, "") {
		t.Error("canvas change not reflected in hash")
	}
}
