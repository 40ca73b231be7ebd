// Package hasher computes streaming content digests for files.
//
// Files are read sequentially in fixed-size blocks, so memory use is
// bounded by the block size regardless of file size. Any I/O failure is
// returned as an error for the caller to record; hashing one file never
// affects another.
package hasher

import (
	"crypto/md5"  //nolint:gosec // duplicate detection, not authentication
	"crypto/sha1" //nolint:gosec // duplicate detection, not authentication
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// blockSize is the read buffer size (64 KiB).
const blockSize = 64 * 1024

// Algorithm identifies a supported digest algorithm.
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA1
	SHA256
)

// ParseAlgorithm parses an algorithm name: "md5", "sha1" or "sha256".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "md5":
		return MD5, nil
	case "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	}
	return 0, fmt.Errorf("unknown hash algorithm %q (want md5, sha1 or sha256)", s)
}

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	default:
		return "sha256"
	}
}

// DigestSize returns the digest length in bytes.
func (a Algorithm) DigestSize() int {
	switch a {
	case MD5:
		return md5.Size
	case SHA1:
		return sha1.Size
	default:
		return sha256.Size
	}
}

func (a Algorithm) newHash() hash.Hash {
	switch a {
	case MD5:
		return md5.New() //nolint:gosec
	case SHA1:
		return sha1.New() //nolint:gosec
	default:
		return sha256.New()
	}
}

// ErrTruncated reports that a file yielded a different number of bytes
// than its recorded size, i.e. it changed between stat and read.
var ErrTruncated = errors.New("file changed size during read")

// SumFile hashes the full content of path under algo and returns the
// hex-encoded digest plus the number of bytes read.
//
// want is the file size recorded at enumeration time; pass a negative
// value to skip the length check. Reading a different length returns an
// error wrapping ErrTruncated, since the digest would describe content
// the scan never saw.
func SumFile(path string, algo Algorithm, want int64) (digest string, read uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := algo.newHash()
	buf := make([]byte, blockSize)
	n, err := io.CopyBuffer(h, f, buf)
	if err != nil {
		return "", uint64(n), fmt.Errorf("read: %w", err)
	}
	if want >= 0 && n != want {
		return "", uint64(n), fmt.Errorf("%w: read %d bytes, expected %d", ErrTruncated, n, want)
	}

	return hex.EncodeToString(h.Sum(nil)), uint64(n), nil
}
