// Package filter decides which filesystem entries are eligible for scanning.
//
// A Filter is compiled once per scan from a Config; compilation is also
// where configuration errors (inconsistent size bounds, malformed glob
// patterns) surface, so a scan never starts with rules that can fail
// per-file. Rejection is silent by design: only aggregate counts matter.
package filter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/akarpov/dupehound/internal/types"
)

// Config holds the user-supplied eligibility rules for one scan.
type Config struct {
	// Extensions is the set of allowed file extensions, matched
	// case-insensitively, with or without a leading dot. Empty allows all.
	Extensions []string
	// MinSize is the inclusive lower size bound in bytes.
	MinSize int64
	// MaxSize is the inclusive upper size bound in bytes; 0 means unbounded.
	MaxSize int64
	// Excludes are glob patterns matched case-insensitively against both
	// the base name and the full path. Any match rejects the entry.
	Excludes []string
	// SkipHidden rejects files carrying the platform hidden attribute.
	SkipHidden bool
	// SkipSystem rejects files carrying the platform system attribute.
	SkipSystem bool
}

// Filter applies a validated Config to candidate records.
type Filter struct {
	exts       map[string]struct{}
	minSize    int64
	maxSize    int64
	excludes   []string // lowercased patterns
	skipHidden bool
	skipSystem bool
}

// New validates cfg and compiles it into a Filter.
func New(cfg Config) (*Filter, error) {
	if cfg.MinSize < 0 {
		return nil, fmt.Errorf("min size %d is negative", cfg.MinSize)
	}
	if cfg.MaxSize != 0 && cfg.MinSize > cfg.MaxSize {
		return nil, fmt.Errorf("min size %d exceeds max size %d", cfg.MinSize, cfg.MaxSize)
	}

	f := &Filter{
		minSize:    cfg.MinSize,
		maxSize:    cfg.MaxSize,
		skipHidden: cfg.SkipHidden,
		skipSystem: cfg.SkipSystem,
	}

	for _, pattern := range cfg.Excludes {
		p := strings.ToLower(filepath.ToSlash(pattern))
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
		f.excludes = append(f.excludes, p)
	}

	if len(cfg.Extensions) > 0 {
		f.exts = make(map[string]struct{}, len(cfg.Extensions))
		for _, ext := range cfg.Extensions {
			e := strings.ToLower(strings.TrimPrefix(ext, "*"))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			f.exts[e] = struct{}{}
		}
	}

	return f, nil
}

// Match reports whether rec is eligible for scanning.
func (f *Filter) Match(rec *types.FileRecord) bool {
	if f.skipHidden && rec.Hidden {
		return false
	}
	if f.skipSystem && rec.System {
		return false
	}
	if rec.Size < f.minSize {
		return false
	}
	if f.maxSize != 0 && rec.Size > f.maxSize {
		return false
	}
	if f.exts != nil {
		if _, ok := f.exts[strings.ToLower(filepath.Ext(rec.Path))]; !ok {
			return false
		}
	}
	return !f.Excluded(rec.Path)
}

// Excluded reports whether path matches any exclusion pattern.
// The enumerator also calls this for directories, pruning whole
// subtrees that could only yield rejected files.
func (f *Filter) Excluded(path string) bool {
	if len(f.excludes) == 0 {
		return false
	}
	full := strings.ToLower(filepath.ToSlash(path))
	base := filepath.Base(full)
	for _, pattern := range f.excludes {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, full); ok {
			return true
		}
	}
	return false
}
