package resolver

import (
	"bytes"
	"io"
	"os"

	"github.com/akarpov/dupehound/internal/types"
)

// verifyBlockSize is the read buffer size for byte comparison (64 KiB).
const verifyBlockSize = 64 * 1024

// splitByContent partitions a digest group into subsets of members with
// byte-identical content. With a sound hash this returns the input
// unchanged; the pass exists for callers who want certainty beyond the
// algorithm's collision resistance.
//
// Each member is compared against the representative of each existing
// subset until one matches. Members that cannot be read are recorded as
// hash-phase failures and dropped. Subset order follows member order,
// so the split stays deterministic.
func (r *Resolver) splitByContent(members []*types.FileRecord) [][]*types.FileRecord {
	var subsets [][]*types.FileRecord

next:
	for _, rec := range members {
		for i, subset := range subsets {
			equal, err := compareFiles(subset[0].Path, rec.Path)
			if err != nil {
				r.sendError(types.NewErrorRecord(rec.Path, types.ErrorHash, err))
				continue next
			}
			if equal {
				subsets[i] = append(subsets[i], rec)
				continue next
			}
		}
		subsets = append(subsets, []*types.FileRecord{rec})
	}

	return subsets
}

// compareFiles reports whether two files have byte-identical content,
// reading both in fixed-size blocks.
func compareFiles(a, b string) (bool, error) {
	fa, err := os.Open(a)
	if err != nil {
		return false, err
	}
	defer func() { _ = fa.Close() }()

	fb, err := os.Open(b)
	if err != nil {
		return false, err
	}
	defer func() { _ = fb.Close() }()

	bufA := make([]byte, verifyBlockSize)
	bufB := make([]byte, verifyBlockSize)
	for {
		na, errA := io.ReadFull(fa, bufA)
		nb, errB := io.ReadFull(fb, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		if errA == io.EOF || errA == io.ErrUnexpectedEOF {
			return errB == io.EOF || errB == io.ErrUnexpectedEOF, nil
		}
		if errA != nil {
			return false, errA
		}
		if errB != nil {
			return false, errB
		}
	}
}
