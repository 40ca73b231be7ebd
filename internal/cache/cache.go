// Package cache provides persistent caching of file content digests.
package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/akarpov/dupehound/internal/hasher"
	"github.com/akarpov/dupehound/internal/types"
)

const bucketName = "digests"

// Cache persists full-file digests across scans using BoltDB.
// Implements self-cleaning: each run creates a new database, only
// entries touched by the run survive the swap on Close.
type Cache struct {
	readDB  *bolt.DB // existing cache (read-only)
	writeDB *bolt.DB // new cache (write) - BoltDB locks this file
	path    string   // final path (for atomic swap)
	enabled bool
}

// Open opens an existing cache for reading and creates a new cache for
// writing. BoltDB's file locking on the .new file prevents concurrent
// instances. Returns a disabled cache if path is empty.
func Open(path string) (*Cache, error) {
	if path == "" {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{path: path, enabled: true}
	var err error

	if _, statErr := os.Stat(path); statErr == nil {
		c.readDB, err = bolt.Open(path, 0o600, &bolt.Options{
			ReadOnly: true,
			Timeout:  1 * time.Second,
		})
		if err != nil {
			// Can't open existing - continue without read cache
			c.readDB = nil
		}
	}

	newPath := path + ".new"
	c.writeDB, err = bolt.Open(newPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create new cache (locked by another instance?): %w", err)
	}

	if err := c.writeDB.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Close closes both databases and atomically replaces old with new.
// Only replaces if the write database closed successfully.
func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		if err := c.readDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.writeDB != nil {
		if err := c.writeDB.Close(); err != nil {
			errs = append(errs, err)
		} else {
			if err := os.Rename(c.path+".new", c.path); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

const keyVersion byte = 1 // increment when the key format changes

// makeKey builds a deterministic byte key for BoltDB lookup.
// Key = ver(1) + algo(1) + path + NUL + size(8) + mtime(8)
// Any change to size or mtime invalidates the entry.
func makeKey(algo hasher.Algorithm, rec *types.FileRecord) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(keyVersion)
	buf.WriteByte(byte(algo))
	buf.WriteString(rec.Path)
	buf.WriteByte(0) // NUL separator
	_ = binary.Write(buf, binary.BigEndian, rec.Size)
	_ = binary.Write(buf, binary.BigEndian, rec.ModTime.UnixNano())
	return buf.Bytes()
}

// Lookup retrieves a cached hex digest for a file, or "" on a miss.
// On a hit the entry is copied to the new database (self-cleaning).
// Stored values whose length does not match the algorithm are ignored.
func (c *Cache) Lookup(algo hasher.Algorithm, rec *types.FileRecord) string {
	if !c.enabled || c.readDB == nil {
		return ""
	}

	key := makeKey(algo, rec)
	var digest []byte

	_ = c.readDB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get(key)
		if len(data) == algo.DigestSize() {
			digest = make([]byte, len(data))
			copy(digest, data)
		}
		return nil
	})

	if digest == nil {
		return ""
	}

	hexDigest := hex.EncodeToString(digest)
	// Self-cleaning: copy the live entry to the new database
	c.Store(algo, rec, hexDigest)

	return hexDigest
}

// Store saves a hex digest for a file to the new database.
func (c *Cache) Store(algo hasher.Algorithm, rec *types.FileRecord, hexDigest string) {
	if !c.enabled || c.writeDB == nil {
		return
	}
	digest, err := hex.DecodeString(hexDigest)
	if err != nil || len(digest) != algo.DigestSize() {
		return
	}

	_ = c.writeDB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		return b.Put(makeKey(algo, rec), digest)
	})
}
