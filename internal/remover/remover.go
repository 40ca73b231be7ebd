// Package remover deletes the disposable members of duplicate groups.
//
// The remover is the deletion collaborator at the end of the pipeline:
// it receives finished duplicate groups and removes every member except
// the designated keep. The engine itself never deletes anything.
//
// Safety mechanisms, in order, per file:
//   - advisory exclusive lock on the target (skip files in use)
//   - mtime verification against the scanned record (skip files
//     modified since the scan)
//   - dry-run mode for previewing
//
// Removal is permanent; recoverable deletion is a concern for a
// different collaborator.
package remover

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/akarpov/dupehound/internal/progress"
	"github.com/akarpov/dupehound/internal/types"
)

// Remover deletes duplicate files, keeping one member per group.
// It is single-use: create with New, call Run once.
type Remover struct {
	// Config (immutable, set by New)
	groups       []*types.DuplicateGroup
	dryRun       bool
	verbose      bool // print each removal to stdout
	showProgress bool
	errCh        chan<- error // non-fatal errors (file in use, modified, etc.)
}

// New creates a Remover for the given groups.
func New(groups []*types.DuplicateGroup, dryRun, verbose, showProgress bool, errCh chan<- error) *Remover {
	return &Remover{
		groups:       groups,
		dryRun:       dryRun,
		verbose:      verbose,
		showProgress: showProgress,
		errCh:        errCh,
	}
}

// Stats summarizes one removal run.
type Stats struct {
	TotalFiles   int
	RemovedFiles int
	SkippedFiles int
	FreedBytes   int64
	startTime    time.Time
}

func (s *Stats) String() string {
	return fmt.Sprintf("Removed %d/%d files (%d skipped), freed %s in %.1fs",
		s.RemovedFiles, s.TotalFiles, s.SkippedFiles,
		humanize.IBytes(uint64(s.FreedBytes)),
		time.Since(s.startTime).Seconds())
}

// Run removes the non-keep member files of every group and returns the
// aggregate stats. Per-file failures go to the error channel; a failed
// removal never stops the run.
func (r *Remover) Run() *Stats {
	bar := progress.NewBar(r.showProgress, -1)
	st := &Stats{startTime: time.Now()}
	for _, g := range r.groups {
		st.TotalFiles += len(g.Files) - 1
	}
	bar.Describe(st)

	for _, g := range r.groups {
		for _, target := range g.Files {
			if target == g.Keep {
				continue
			}
			outcome := r.removeFile(target)
			if outcome.Err != nil {
				st.SkippedFiles++
				r.sendError(fmt.Errorf("%s: %w", target.Path, outcome.Err))
				continue
			}
			st.RemovedFiles++
			st.FreedBytes += outcome.BytesFreed
			if r.verbose {
				fmt.Fprintf(os.Stderr, "\r\033[K") // clear progress line
				_, _ = fmt.Fprintln(os.Stdout, outcome)
			}
			bar.Describe(st)
		}
	}

	bar.Finish(st)
	return st
}

// removeFile deletes one file after the safety checks.
func (r *Remover) removeFile(target *types.FileRecord) *Outcome {
	skip := func(err error) *Outcome {
		return &Outcome{Path: target.Path, Action: ActionSkipped, Err: err}
	}

	// Open the target to hold an advisory lock across the checks.
	// A file locked by another process is skipped, not waited on.
	f, err := os.Open(target.Path)
	if err != nil {
		return skip(err)
	}
	defer func() { _ = f.Close() }()

	if err := lockFile(f); err != nil {
		return skip(errors.New("file in use (locked by another process)"))
	}

	info, err := f.Stat()
	if err != nil {
		return skip(err)
	}
	if !info.ModTime().Equal(target.ModTime) {
		return skip(errors.New("file modified since scan"))
	}

	removed := &Outcome{
		Path:       target.Path,
		Action:     ActionRemoved,
		BytesFreed: target.Size,
		DryRun:     r.dryRun,
	}
	if r.dryRun {
		return removed
	}
	if err := os.Remove(target.Path); err != nil {
		return skip(err)
	}
	return removed
}

// sendError sends an error to the errors channel if it's not nil.
func (r *Remover) sendError(err error) {
	if r.errCh != nil {
		r.errCh <- err
	}
}
