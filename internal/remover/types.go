package remover

import (
	"fmt"
	"strings"
)

// Action describes the action taken for a single duplicate file.
type Action int

const (
	ActionRemoved Action = iota
	ActionSkipped // skipped due to an error or safety check
)

// Outcome describes the result of one removal attempt.
type Outcome struct {
	Path       string // path of the duplicate
	Action     Action // Removed or Skipped
	BytesFreed int64  // bytes reclaimed (0 if skipped)
	DryRun     bool   // true when nothing was actually deleted
	Err        error  // non-nil if skipped
}

// String formats the outcome for display.
func (o *Outcome) String() string {
	switch o.Action {
	case ActionRemoved:
		if o.DryRun {
			return fmt.Sprintf("Would remove %s", escapePath(o.Path))
		}
		return fmt.Sprintf("Removed %s", escapePath(o.Path))
	default:
		return fmt.Sprintf("skipped %s: %v", escapePath(o.Path), o.Err)
	}
}

// escapePath escapes special characters in paths for safe terminal output.
func escapePath(path string) string {
	r := strings.NewReplacer(
		"\t", "\\t",
		"\n", "\\n",
		"\r", "\\r",
	)
	return r.Replace(path)
}
