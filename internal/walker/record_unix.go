//go:build !windows

package walker

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/akarpov/dupehound/internal/types"
)

// newFileRecord creates a FileRecord from os.FileInfo and path (Unix).
// Dotfiles are the hidden convention; there is no system attribute, so
// the flag is always false here.
func newFileRecord(path string, info os.FileInfo) *types.FileRecord {
	return &types.FileRecord{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hidden:  strings.HasPrefix(filepath.Base(path), "."),
	}
}
