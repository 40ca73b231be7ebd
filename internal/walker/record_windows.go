//go:build windows

package walker

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/akarpov/dupehound/internal/types"
)

// newFileRecord creates a FileRecord from os.FileInfo and path (Windows).
// Hidden and system flags come from the file attribute bits; dot-prefixed
// names are treated as hidden as well for tooling parity.
func newFileRecord(path string, info os.FileInfo) *types.FileRecord {
	var hidden, system bool
	if stat, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		hidden = stat.FileAttributes&syscall.FILE_ATTRIBUTE_HIDDEN != 0
		system = stat.FileAttributes&syscall.FILE_ATTRIBUTE_SYSTEM != 0
	}
	return &types.FileRecord{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Hidden:  hidden || strings.HasPrefix(filepath.Base(path), "."),
		System:  system,
	}
}
