//go:build unix

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

// TestWalkUnreadableSubdirContinues verifies that a permission-denied
// subdirectory yields one error record while its siblings are still
// walked.
func TestWalkUnreadableSubdirContinues(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root, permissions are not enforced")
	}

	root := t.TempDir()
	createFile(t, filepath.Join(root, "ok", "a.txt"), 10)
	locked := filepath.Join(root, "locked")
	createFile(t, filepath.Join(locked, "b.txt"), 10)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	errCh := make(chan types.ErrorRecord, 10)
	tracker := progress.NewTracker()
	w := New(root, mustFilter(t, filter.Config{}), 2, tracker, errCh)
	records, err := w.Run(context.Background())
	close(errCh)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(records) != 1 {
		t.Errorf("expected 1 record from the readable subtree, got %d", len(records))
	}

	var errs []types.ErrorRecord
	for rec := range errCh {
		errs = append(errs, rec)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error record, got %d", len(errs))
	}
	if errs[0].Path != locked || errs[0].Kind != types.ErrorEnumerate {
		t.Errorf("unexpected error record: %+v", errs[0])
	}
}

// TestWalkSkipsSymlinks verifies symlinks are neither followed nor
// reported, so link cycles cannot cause infinite traversal.
func TestWalkSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, "real", "a.txt"), 10)
	// Cycle: root/loop -> root
	if err := os.Symlink(root, filepath.Join(root, "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "real", "a.txt"), filepath.Join(root, "alias.txt")); err != nil {
		t.Fatal(err)
	}

	records, _ := runWalk(t, root, filter.Config{})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Path != filepath.Join(root, "real", "a.txt") {
		t.Errorf("unexpected record %s", records[0].Path)
	}
}

// TestWalkHiddenDetection verifies dotfiles carry the hidden flag.
func TestWalkHiddenDetection(t *testing.T) {
	root := t.TempDir()
	createFile(t, filepath.Join(root, ".secret"), 10)
	createFile(t, filepath.Join(root, "plain"), 10)

	records, _ := runWalk(t, root, filter.Config{})

	hidden := map[string]bool{}
	for _, r := range records {
		hidden[filepath.Base(r.Path)] = r.Hidden
	}
	if !hidden[".secret"] || hidden["plain"] {
		t.Errorf("hidden flags wrong: %v", hidden)
	}
}
