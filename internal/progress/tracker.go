package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase identifies which stage of the scan the counters describe.
type Phase int

const (
	PhaseEnumerate Phase = iota // walking the tree, collecting candidates
	PhaseHash                   // hashing size-bucket members
	PhaseDone                   // scan finished
)

func (p Phase) String() string {
	switch p {
	case PhaseHash:
		return "hashing"
	case PhaseDone:
		return "done"
	default:
		return "enumerating"
	}
}

// Snapshot is a consistent, torn-read-free view of scan progress.
type Snapshot struct {
	Phase          Phase
	FilesExamined  int64
	FilesMatched   int64
	FilesHashed    int64
	HashTotalFiles int64
	BytesExamined  uint64
	BytesHashed    uint64
	BytesCached    uint64
	HashTotalBytes uint64
	Groups         int64
	Errors         int64
	Fraction       float64
	Remaining      time.Duration
	Elapsed        time.Duration
}

func (s Snapshot) String() string {
	switch s.Phase {
	case PhaseHash, PhaseDone:
		msg := fmt.Sprintf("Hashed %d/%d files (%s of %s, %.0f%%), %d groups",
			s.FilesHashed, s.HashTotalFiles,
			humanize.IBytes(s.BytesHashed+s.BytesCached), humanize.IBytes(s.HashTotalBytes),
			s.Fraction*100, s.Groups)
		if s.Errors > 0 {
			msg += fmt.Sprintf(", %d errors", s.Errors)
		}
		if s.Phase == PhaseHash && s.Remaining > 0 {
			msg += fmt.Sprintf(", ETA %s", s.Remaining.Truncate(time.Second))
		}
		if s.Phase == PhaseDone {
			msg += fmt.Sprintf(" in %.1fs", s.Elapsed.Seconds())
		}
		return msg
	default:
		return fmt.Sprintf("Examined %d files (%s), matched %d",
			s.FilesExamined, humanize.IBytes(s.BytesExamined), s.FilesMatched)
	}
}

// Tracker accumulates live counters while a scan runs. Writers are the
// scan's goroutines; readers poll Snapshot at their own rate. All state
// is mutated and copied under one mutex, so a reader never observes a
// torn fraction/ETA pair.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
	est  *Estimator
	now  func() time.Time // test hook
}

// NewTracker creates a tracker and starts its clock.
func NewTracker() *Tracker {
	t := &Tracker{est: NewEstimator(0), now: time.Now}
	t.est.Start(t.now())
	return t
}

// AddExamined records files seen by the enumerator, before filtering.
func (t *Tracker) AddExamined(files int64, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.FilesExamined += files
	t.snap.BytesExamined += uint64(bytes)
}

// AddMatched records files accepted by the filter.
func (t *Tracker) AddMatched(files int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.FilesMatched += files
}

// StartHashing switches to the hashing phase and fixes the totals the
// fraction is computed against.
func (t *Tracker) StartHashing(totalFiles int64, totalBytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Phase = PhaseHash
	t.snap.HashTotalFiles = totalFiles
	t.snap.HashTotalBytes = totalBytes
	t.est.Start(t.now())
}

// AddHashed records bytes actually read and hashed.
func (t *Tracker) AddHashed(files int64, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.FilesHashed += files
	t.snap.BytesHashed += bytes
	t.advance()
}

// AddCached records bytes whose digest came from the cache; they count
// toward progress but not toward bytes hashed.
func (t *Tracker) AddCached(files int64, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.FilesHashed += files
	t.snap.BytesCached += bytes
	t.advance()
}

// advance recomputes fraction and ETA after hashing progress.
// Caller holds t.mu. The fraction is clamped monotonic.
func (t *Tracker) advance() {
	if t.snap.HashTotalBytes == 0 {
		return
	}
	f := float64(t.snap.BytesHashed+t.snap.BytesCached) / float64(t.snap.HashTotalBytes)
	if f > 1 {
		f = 1
	}
	if f > t.snap.Fraction {
		t.snap.Fraction = f
	}
	t.est.Observe(t.now(), t.snap.Fraction)
	t.snap.Remaining = t.est.Remaining(t.snap.Fraction)
}

// AddGroup records one finalized duplicate group.
func (t *Tracker) AddGroup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Groups++
}

// AddError records one per-path error.
func (t *Tracker) AddError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Errors++
}

// MarkDone freezes the tracker in its terminal state. A completed scan
// reports fraction 1.0 even when there was nothing to hash.
func (t *Tracker) MarkDone(completed bool, elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.Phase = PhaseDone
	t.snap.Elapsed = elapsed
	t.snap.Remaining = 0
	if completed {
		t.snap.Fraction = 1.0
	}
}

// Snapshot returns a consistent copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}
