// Package types provides the shared data model for the dupehound engine.
package types

import (
	"cmp"
	"fmt"
	"slices"
	"time"
)

// FileRecord holds metadata for one file considered by a scan.
// Records are created during enumeration and never mutated afterwards.
type FileRecord struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Hidden  bool      `json:"hidden,omitempty"`
	System  bool      `json:"system,omitempty"`
}

// KeepPolicy selects which member of a duplicate group is kept.
type KeepPolicy int

const (
	KeepOldest KeepPolicy = iota // keep the member with the earliest mtime
	KeepNewest                   // keep the member with the latest mtime
)

// ParseKeepPolicy parses "oldest" or "newest".
func ParseKeepPolicy(s string) (KeepPolicy, error) {
	switch s {
	case "oldest":
		return KeepOldest, nil
	case "newest":
		return KeepNewest, nil
	}
	return 0, fmt.Errorf("unknown keep policy %q (want oldest or newest)", s)
}

func (p KeepPolicy) String() string {
	if p == KeepNewest {
		return "newest"
	}
	return "oldest"
}

// DuplicateGroup is a set of files sharing size and content digest.
// Files are sorted by path and one member is designated Keep; both are
// fixed at construction, so a group is immutable and reproducible.
type DuplicateGroup struct {
	ID        int           `json:"id"`
	Size      int64         `json:"size"`
	Algorithm string        `json:"algorithm"`
	Digest    string        `json:"digest"`
	Files     []*FileRecord `json:"files"`
	Keep      *FileRecord   `json:"keep"`
}

// NewDuplicateGroup builds a group from files sharing one digest.
// Files are copied and sorted by path; the keep member is selected per
// policy, with ties on mtime broken by the lexicographically smallest
// path. Callers must pass at least two files.
func NewDuplicateGroup(id int, size int64, algorithm, digest string, files []*FileRecord, policy KeepPolicy) *DuplicateGroup {
	sorted := make([]*FileRecord, len(files))
	copy(sorted, files)
	slices.SortFunc(sorted, func(a, b *FileRecord) int {
		return cmp.Compare(a.Path, b.Path)
	})

	// Iterating in path order makes the tie-break fall out naturally:
	// only a strictly better mtime displaces the current choice.
	keep := sorted[0]
	for _, f := range sorted[1:] {
		switch policy {
		case KeepNewest:
			if f.ModTime.After(keep.ModTime) {
				keep = f
			}
		default:
			if f.ModTime.Before(keep.ModTime) {
				keep = f
			}
		}
	}

	return &DuplicateGroup{
		ID:        id,
		Size:      size,
		Algorithm: algorithm,
		Digest:    digest,
		Files:     sorted,
		Keep:      keep,
	}
}

// WastedBytes returns the disk space held by the disposable members.
func (g *DuplicateGroup) WastedBytes() uint64 {
	return uint64(g.Size) * uint64(len(g.Files)-1)
}

// ErrorKind classifies a per-path scan failure.
type ErrorKind string

const (
	ErrorEnumerate ErrorKind = "enumerate" // directory or entry could not be read during traversal
	ErrorHash      ErrorKind = "hash"      // file could not be opened or read during hashing
)

// ErrorRecord describes one per-path failure encountered during a scan.
// Per-path failures are data, not control flow: they are accumulated in
// the ScanResult and never abort the scan.
type ErrorRecord struct {
	Path   string    `json:"path"`
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
	Err    error     `json:"-"`
}

// NewErrorRecord wraps err into a record for path.
func NewErrorRecord(path string, kind ErrorKind, err error) ErrorRecord {
	return ErrorRecord{Path: path, Kind: kind, Reason: err.Error(), Err: err}
}

func (r ErrorRecord) Error() string {
	return fmt.Sprintf("%s: %s", r.Path, r.Reason)
}

// ScanStatus is the terminal state of a scan.
type ScanStatus int

const (
	StatusCompleted ScanStatus = iota
	StatusCancelled
	StatusFailed
)

func (s ScanStatus) String() string {
	switch s {
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "completed"
	}
}

// MarshalText renders the status as its string form in JSON output.
func (s ScanStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ScanResult is the immutable outcome of one scan. It is built by the
// scan goroutine and handed to the caller exactly once; nothing writes
// to it after publication.
type ScanResult struct {
	Status        ScanStatus        `json:"status"`
	Groups        []*DuplicateGroup `json:"groups"`
	FilesExamined int64             `json:"files_examined"`
	FilesMatched  int64             `json:"files_matched"`
	BytesHashed   uint64            `json:"bytes_hashed"`
	BytesCached   uint64            `json:"bytes_cached,omitempty"`
	Errors        []ErrorRecord     `json:"errors,omitempty"`
	FailReason    string            `json:"fail_reason,omitempty"`
	Elapsed       time.Duration     `json:"elapsed_ns"`
}

// ErrorCount returns the number of per-path failures recorded.
func (r *ScanResult) ErrorCount() int { return len(r.Errors) }

// WastedBytes sums the disposable bytes across all groups.
func (r *ScanResult) WastedBytes() uint64 {
	var total uint64
	for _, g := range r.Groups {
		total += g.WastedBytes()
	}
	return total
}

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit
// is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
