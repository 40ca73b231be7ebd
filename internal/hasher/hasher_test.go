package hasher

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Algorithm
	}{
		{"md5", MD5},
		{"sha1", SHA1},
		{"sha256", SHA256},
	} {
		got, err := ParseAlgorithm(tc.in)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", tc.in, got, tc.want)
		}
		if got.String() != tc.in {
			t.Errorf("String() = %q, want %q", got.String(), tc.in)
		}
	}

	if _, err := ParseAlgorithm("crc32"); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestDigestSize(t *testing.T) {
	if MD5.DigestSize() != 16 || SHA1.DigestSize() != 20 || SHA256.DigestSize() != 32 {
		t.Errorf("unexpected digest sizes: %d %d %d",
			MD5.DigestSize(), SHA1.DigestSize(), SHA256.DigestSize())
	}
}

// Known digests of "hello" under each algorithm.
func TestSumFileKnownDigests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.txt")
	writeFile(t, path, []byte("hello"))

	for _, tc := range []struct {
		algo Algorithm
		want string
	}{
		{MD5, "5d41402abc4b2a76b9719d911017c592"},
		{SHA1, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{SHA256, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	} {
		digest, read, err := SumFile(path, tc.algo, 5)
		if err != nil {
			t.Fatalf("%s: %v", tc.algo, err)
		}
		if digest != tc.want {
			t.Errorf("%s digest = %s, want %s", tc.algo, digest, tc.want)
		}
		if read != 5 {
			t.Errorf("%s read = %d, want 5", tc.algo, read)
		}
	}
}

// Hashing an empty stream must yield the algorithm's defined
// empty-input digest, so zero-byte duplicates still group.
func TestSumFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	writeFile(t, path, nil)

	digest, read, err := SumFile(path, MD5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if read != 0 {
		t.Errorf("read = %d, want 0", read)
	}
	if digest != "d41d8cd98f00b204e9800998ecf8427e" {
		t.Errorf("empty md5 = %s", digest)
	}
}

// Large enough to require multiple 64 KiB blocks.
func TestSumFileStreaming(t *testing.T) {
	content := bytes.Repeat([]byte{0xA7}, 200*1024)
	path := filepath.Join(t.TempDir(), "big.bin")
	writeFile(t, path, content)

	want := sha256.Sum256(content)

	digest, read, err := SumFile(path, SHA256, int64(len(content)))
	if err != nil {
		t.Fatal(err)
	}
	if digest != hex.EncodeToString(want[:]) {
		t.Errorf("digest mismatch")
	}
	if read != uint64(len(content)) {
		t.Errorf("read = %d, want %d", read, len(content))
	}
}

func TestSumFileSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, []byte("abc"))

	_, _, err := SumFile(path, SHA256, 10)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("expected ErrTruncated, got %v", err)
	}
}

func TestSumFileSkipsLengthCheckWhenNegative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	writeFile(t, path, []byte("abc"))

	if _, _, err := SumFile(path, SHA256, -1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSumFileMissing(t *testing.T) {
	_, _, err := SumFile(filepath.Join(t.TempDir(), "nope"), SHA256, 0)
	if err == nil {
		t.Error("expected error for missing file")
	}
}
