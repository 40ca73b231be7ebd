//go:build windows

package remover

import "os"

// lockFile is a no-op on Windows; the OS already refuses to delete
// files that other processes hold open without share-delete.
func lockFile(_ *os.File) error {
	return nil
}
