package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/akarpov/dupehound/internal/filter"
	"github.com/akarpov/dupehound/internal/progress"
	"github.com/akarpov/dupehound/internal/types"
)

// createFile writes size bytes of zeros at path, creating parent dirs.
func createFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

func mustFilter(t *testing.T, cfg filter.Config) *filter.Filter {
	t.Helper()
	f, err := filter.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func runWalk(t *testing.T, root string, cfg filter.Config) ([]*types.FileRecord, *progress.Tracker) {
	t.Helper()
	tracker := progress.NewTracker()
	w := New(root, mustFilter(t, cfg), 4, tracker, nil)
	records, err := w.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return records, tracker
}

func TestWalkBasic(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "a.txt"), 100)
	createFile(t, filepath.Join(root, "sub", "b.txt"), 200)
	createFile(t, filepath.Join(root, "sub", "deep", "c.txt"), 300)

	records, tracker := runWalk(t, root, filter.Config{})

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	snap := tracker.Snapshot()
	if snap.FilesExamined != 3 || snap.FilesMatched != 3 {
		t.Errorf("examined=%d matched=%d, want 3/3", snap.FilesExamined, snap.FilesMatched)
	}
}

func TestWalkRecordsMetadata(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "f.bin")
	createFile(t, path, 42)

	records, _ := runWalk(t, root, filter.Config{})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.Path != path || r.Size != 42 || r.ModTime.IsZero() {
		t.Errorf("bad record: %+v", r)
	}
}

func TestWalkAppliesFilter(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "small.txt"), 10)
	createFile(t, filepath.Join(root, "big.txt"), 1000)

	records, tracker := runWalk(t, root, filter.Config{MinSize: 100})

	if len(records) != 1 || records[0].Size != 1000 {
		t.Fatalf("expected only the big file, got %d records", len(records))
	}
	snap := tracker.Snapshot()
	if snap.FilesExamined != 2 || snap.FilesMatched != 1 {
		t.Errorf("examined=%d matched=%d, want 2/1", snap.FilesExamined, snap.FilesMatched)
	}
}

func TestWalkPrunesExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "keep", "a.txt"), 10)
	createFile(t, filepath.Join(root, ".git", "objects", "x"), 10)

	records, tracker := runWalk(t, root, filter.Config{Excludes: []string{".git"}})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	// Pruned subtree is never examined at all
	if snap := tracker.Snapshot(); snap.FilesExamined != 1 {
		t.Errorf("examined = %d, want 1", snap.FilesExamined)
	}
}

func TestWalkMissingRootIsFatal(t *testing.T) {
	tracker := progress.NewTracker()
	w := New(filepath.Join(t.TempDir(), "absent"), mustFilter(t, filter.Config{}), 2, tracker, nil)

	_, err := w.Run(context.Background())
	if err == nil {
		t.Fatal("expected fatal error for missing root")
	}
}

func TestWalkCancelledContext(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		createFile(t, filepath.Join(root, "d", string(rune('a'+i)), "f.bin"), 10)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the walk starts

	tracker := progress.NewTracker()
	w := New(root, mustFilter(t, filter.Config{}), 2, tracker, nil)
	records, err := w.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	// Cancellation is checked before every emit, so nothing comes back
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
