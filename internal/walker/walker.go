// Package walker enumerates candidate files under a root directory.
//
// The walker fans out one goroutine per discovered directory, with a
// semaphore bounding concurrent directory reads and a single collector
// goroutine aggregating results. Traversal order is therefore
// unspecified; callers needing determinism sort the returned records.
//
// An unreadable subdirectory produces one error record and traversal of
// its siblings continues; only failure to list the root itself is fatal.
// Symlinks are never followed, which also rules out link cycles.
// Cancellation is observed between directories and between files, never
// mid-read.
package walker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/akarpov/dupehound/internal/filter"
	"github.com/akarpov/dupehound/internal/progress"
	"github.com/akarpov/dupehound/internal/types"
)

// Walker discovers files matching filter criteria using parallel
// directory traversal. It is single-use: create with New, call Run once.
type Walker struct {
	// Config (immutable, set by New)
	root    string
	filter  *filter.Filter
	workers int
	tracker *progress.Tracker
	errCh   chan<- types.ErrorRecord

	// Runtime (initialized in Run)
	walkerWg  sync.WaitGroup
	walkerSem types.Semaphore
	resultCh  chan *types.FileRecord
}

// New creates a Walker rooted at root. Per-path failures are sent to
// errCh; counters go to tracker.
func New(root string, f *filter.Filter, workers int, tracker *progress.Tracker, errCh chan<- types.ErrorRecord) *Walker {
	return &Walker{
		root:    root,
		filter:  f,
		workers: workers,
		tracker: tracker,
		errCh:   errCh,
	}
}

// Run walks the tree and returns the accepted records.
//
// The root directory is listed synchronously so that a root that cannot
// be read fails the whole scan; everything below it fans out through
// walkDirectory. When ctx is cancelled the walk winds down at the next
// directory or file boundary and returns whatever was collected.
func (w *Walker) Run(ctx context.Context) ([]*types.FileRecord, error) {
	w.walkerSem = types.NewSemaphore(w.workers)
	w.resultCh = make(chan *types.FileRecord, 1000) // buffer smooths producer/consumer rates

	// Collector goroutine: single consumer aggregates all walker outputs.
	var records []*types.FileRecord
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for r := range w.resultCh {
			records = append(records, r)
		}
	}()

	files, subdirs, err := w.listDirectory(w.root)
	if err != nil {
		close(w.resultCh)
		collectorWg.Wait()
		return nil, fmt.Errorf("list root: %w", err)
	}
	w.emit(ctx, files)
	for _, sub := range subdirs {
		w.walkDirectory(ctx, sub)
	}

	// Shutdown sequence: wait for producers, then signal consumer.
	w.walkerWg.Wait()
	close(w.resultCh)
	collectorWg.Wait()

	return records, nil
}

// walkDirectory spawns a goroutine to process one directory and
// recursively spawn children. The WaitGroup is incremented before the
// spawn to prevent a race with Wait; the semaphore is held only while
// the directory is being listed and its files emitted.
func (w *Walker) walkDirectory(ctx context.Context, dir string) {
	w.walkerWg.Add(1)
	go func() {
		defer w.walkerWg.Done()

		if ctx.Err() != nil {
			return
		}

		w.walkerSem.Acquire()
		files, subdirs, err := w.listDirectory(dir)
		if err != nil {
			w.sendError(types.NewErrorRecord(dir, types.ErrorEnumerate, err))
			w.walkerSem.Release()
			return
		}
		w.emit(ctx, files)
		w.walkerSem.Release()

		for _, sub := range subdirs {
			if ctx.Err() != nil {
				return
			}
			w.walkDirectory(ctx, sub)
		}
	}()
}

// emit runs accepted files through the filter and into the collector,
// checking for cancellation between files.
func (w *Walker) emit(ctx context.Context, files []*types.FileRecord) {
	for _, f := range files {
		if ctx.Err() != nil {
			return
		}
		w.tracker.AddExamined(1, f.Size)
		if w.filter.Match(f) {
			w.resultCh <- f
			w.tracker.AddMatched(1)
		}
	}
}

// listDirectory reads a single directory, returning files and
// subdirectories. Entries are read in batches so directories with
// millions of entries do not blow up memory.
func (w *Walker) listDirectory(dirPath string) (files []*types.FileRecord, subdirs []string, err error) {
	dir, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = dir.Close() }()

	const batchSize = 1000
	for {
		entries, err := dir.ReadDir(batchSize)
		if len(entries) == 0 {
			if err != nil && err != io.EOF {
				return files, subdirs, err
			}
			break
		}

		for _, entry := range entries {
			f, sub := w.processEntry(dirPath, entry)
			if f != nil {
				files = append(files, f)
			}
			if sub != "" {
				subdirs = append(subdirs, sub)
			}
		}
	}

	return files, subdirs, nil
}

// processEntry classifies a single directory entry.
// Returns (nil, "") for entries that are skipped outright: non-regular
// files (symlinks, devices, sockets) and excluded directories.
func (w *Walker) processEntry(dirPath string, entry os.DirEntry) (file *types.FileRecord, subdir string) {
	fullPath := filepath.Join(dirPath, entry.Name())

	if entry.IsDir() {
		if w.filter.Excluded(fullPath) {
			return nil, ""
		}
		return nil, fullPath
	}

	if !entry.Type().IsRegular() {
		return nil, ""
	}

	// Info() may trigger an additional stat call (platform-dependent).
	// A file vanishing between ReadDir and stat is a recordable error,
	// not a reason to stop.
	info, err := entry.Info()
	if err != nil {
		w.sendError(types.NewErrorRecord(fullPath, types.ErrorEnumerate, err))
		return nil, ""
	}

	return newFileRecord(fullPath, info), ""
}

// sendError sends a record to the errors channel if one is attached.
func (w *Walker) sendError(rec types.ErrorRecord) {
	if w.errCh != nil {
		w.errCh <- rec
	}
}
