//go:build !windows

package remover

import (
	"os"
	"syscall"
)

// lockFile takes an exclusive non-blocking advisory lock on f.
// Returns an error if another process holds the file.
func lockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}
