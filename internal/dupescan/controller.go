// Package dupescan orchestrates duplicate scans behind a small state
// machine: Idle -> Scanning -> {completed, cancelled, failed} -> Idle.
//
// A Controller runs one scan at a time on a single background
// goroutine. The initiating caller stays free to poll Progress, request
// Cancel, and collect the immutable ScanResult from Wait. Per-path
// failures never escape as errors; they accumulate as ErrorRecords in
// the result, and the result's error count always equals the number of
// records produced.
package dupescan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/akarpov/dupehound/internal/cache"
	"github.com/akarpov/dupehound/internal/filter"
	"github.com/akarpov/dupehound/internal/hasher"
	"github.com/akarpov/dupehound/internal/progress"
	"github.com/akarpov/dupehound/internal/resolver"
	"github.com/akarpov/dupehound/internal/types"
	"github.com/akarpov/dupehound/internal/walker"
)

// ErrBusy is returned by Start while a scan is already in flight.
// Scans are serialized per controller: concurrent scans of overlapping
// trees would produce result sets that cannot be composed.
var ErrBusy = errors.New("scan already in progress")

// State is the controller's coarse lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScanning
)

// Config describes one scan request.
type Config struct {
	// Root is the directory to scan. Must exist and be a directory.
	Root string
	// Filter holds the eligibility rules; validated before scanning starts.
	Filter filter.Config
	// Algorithm selects the content digest.
	Algorithm hasher.Algorithm
	// Keep selects which member of each duplicate group is kept.
	Keep types.KeepPolicy
	// Workers bounds concurrent directory reads and file hashes.
	// Zero selects runtime.NumCPU().
	Workers int
	// CacheFile enables the persistent digest cache when non-empty.
	CacheFile string
	// Verify adds a byte-compare pass inside each digest group.
	Verify bool
	// OnError, when set, receives each per-path error record as it is
	// produced. Called from the scan goroutine; keep it fast.
	OnError func(types.ErrorRecord)
}

// Controller runs scans. The zero value is not usable; create with
// NewController.
type Controller struct {
	mu      sync.Mutex
	state   State
	tracker *progress.Tracker
	cancel  context.CancelFunc
	done    chan struct{}
	result  *types.ScanResult
}

// NewController creates an idle controller.
func NewController() *Controller {
	return &Controller{tracker: progress.NewTracker()}
}

// Start validates cfg and launches the scan on a background goroutine.
//
// Validation failures (missing or non-directory root, inconsistent size
// bounds, malformed patterns, unusable cache file) are returned
// immediately and the controller stays Idle. A Start while another scan
// is in flight returns ErrBusy.
func (c *Controller) Start(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateScanning {
		return ErrBusy
	}

	info, err := os.Stat(cfg.Root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s is not a directory", cfg.Root)
	}

	f, err := filter.New(cfg.Filter)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}

	digests, err := cache.Open(cfg.CacheFile)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.state = StateScanning
	c.tracker = progress.NewTracker()
	c.cancel = cancel
	c.done = make(chan struct{})
	c.result = nil

	go c.run(ctx, cfg, f, digests)
	return nil
}

// run executes the scan pipeline: enumerate -> bucket -> resolve.
// It is the only writer of the result until publication.
func (c *Controller) run(ctx context.Context, cfg Config, f *filter.Filter, digests *cache.Cache) {
	start := time.Now()
	res := &types.ScanResult{}

	// Single aggregation point for per-path errors keeps the invariant
	// error count == len(records) mechanical rather than inferred.
	errCh := make(chan types.ErrorRecord, 100)
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for rec := range errCh {
			res.Errors = append(res.Errors, rec)
			c.tracker.AddError()
			if cfg.OnError != nil {
				cfg.OnError(rec)
			}
		}
	}()

	records, fatal := walker.New(cfg.Root, f, cfg.Workers, c.tracker, errCh).Run(ctx)

	var groups []*types.DuplicateGroup
	if fatal == nil && ctx.Err() == nil {
		buckets := resolver.Buckets(records)
		totalFiles, totalBytes := resolver.Totals(buckets)
		c.tracker.StartHashing(totalFiles, totalBytes)

		groups = resolver.New(resolver.Config{
			Algorithm: cfg.Algorithm,
			Keep:      cfg.Keep,
			Workers:   cfg.Workers,
			Verify:    cfg.Verify,
		}, digests, c.tracker, errCh).Run(ctx, buckets)
	}

	close(errCh)
	collectorWg.Wait()
	_ = digests.Close()

	snap := c.tracker.Snapshot()
	res.FilesExamined = snap.FilesExamined
	res.FilesMatched = snap.FilesMatched
	res.BytesHashed = snap.BytesHashed
	res.BytesCached = snap.BytesCached
	res.Elapsed = time.Since(start)

	switch {
	case fatal != nil:
		res.Status = types.StatusFailed
		res.FailReason = fatal.Error()
	case ctx.Err() != nil:
		res.Status = types.StatusCancelled
		res.Groups = groups // everything fully resolved before the cut
	default:
		res.Status = types.StatusCompleted
		res.Groups = groups
	}
	c.tracker.MarkDone(res.Status == types.StatusCompleted, res.Elapsed)

	c.mu.Lock()
	c.result = res
	close(c.done)
	c.mu.Unlock()
}

// Cancel requests cancellation of the scan in flight. Effective at file
// granularity: a file whose hash is underway runs to completion first.
// Cancel on an idle controller is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateScanning && c.cancel != nil {
		c.cancel()
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress returns a consistent snapshot of the live counters. Safe to
// call at any time, from any goroutine.
func (c *Controller) Progress() progress.Snapshot {
	c.mu.Lock()
	t := c.tracker
	c.mu.Unlock()
	return t.Snapshot()
}

// Done returns a channel closed when the scan in flight finishes.
// Returns nil if no scan has been started.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Wait blocks until the scan finishes and hands over its result,
// returning the controller to Idle. The result is handed out exactly
// once per scan; calling Wait again before the next Start returns nil.
func (c *Controller) Wait() *types.ScanResult {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	res := c.result
	c.result = nil
	c.done = nil
	c.cancel = nil
	c.state = StateIdle
	return res
}
