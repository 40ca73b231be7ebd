// Package resolver turns filtered file records into duplicate groups.
//
// Resolution is two-phase. Files are first bucketed by exact byte size;
// a size with a single file cannot have a content duplicate, so those
// never reach hashing - this pruning is the engine's dominant cost
// saving. Each surviving bucket's members are then hashed under the
// configured algorithm and regrouped by digest; digest groups with two
// or more members become DuplicateGroups.
//
// Determinism: bucket members are sorted by path, buckets are resolved
// in ascending size order, and digest groups within a bucket finalize
// in order of their smallest member path, so group IDs, member order
// and keep selections reproduce exactly across scans of unchanged input.
package resolver

import (
	"cmp"
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/akarpov/dupehound/internal/cache"
	"github.com/akarpov/dupehound/internal/hasher"
	"github.com/akarpov/dupehound/internal/progress"
	"github.com/akarpov/dupehound/internal/types"
)

// Bucket holds all files sharing one exact byte size.
type Bucket struct {
	Size  int64
	Files []*types.FileRecord
}

// Buckets groups records by exact size, discarding sizes with a single
// record. Returned buckets are ordered by ascending size and members by
// path.
func Buckets(records []*types.FileRecord) []Bucket {
	bySize := make(map[int64][]*types.FileRecord)
	for _, r := range records {
		bySize[r.Size] = append(bySize[r.Size], r)
	}

	var buckets []Bucket
	for size, files := range bySize {
		if len(files) < 2 {
			continue
		}
		slices.SortFunc(files, func(a, b *types.FileRecord) int {
			return cmp.Compare(a.Path, b.Path)
		})
		buckets = append(buckets, Bucket{Size: size, Files: files})
	}
	slices.SortFunc(buckets, func(a, b Bucket) int {
		return cmp.Compare(a.Size, b.Size)
	})
	return buckets
}

// Totals returns the file and byte counts the hashing phase will cover.
func Totals(buckets []Bucket) (files int64, bytes uint64) {
	for _, b := range buckets {
		files += int64(len(b.Files))
		bytes += uint64(b.Size) * uint64(len(b.Files))
	}
	return files, bytes
}

// Config holds resolution parameters.
type Config struct {
	Algorithm hasher.Algorithm
	Keep      types.KeepPolicy
	Workers   int  // max concurrent file reads
	Verify    bool // byte-compare digest group members before reporting
}

// Resolver hashes bucket members and assembles duplicate groups.
// It is single-use: create with New, call Run once.
type Resolver struct {
	cfg     Config
	digests *cache.Cache
	tracker *progress.Tracker
	errCh   chan<- types.ErrorRecord
}

// New creates a Resolver. digests may be a disabled cache.
func New(cfg Config, digests *cache.Cache, tracker *progress.Tracker, errCh chan<- types.ErrorRecord) *Resolver {
	return &Resolver{cfg: cfg, digests: digests, tracker: tracker, errCh: errCh}
}

// Run resolves buckets into duplicate groups.
//
// Cancellation is observed between buckets and between files; a bucket
// interrupted mid-hash is discarded entirely, so every returned group
// was fully resolved before the cut and the result is a strict subset
// of what an uncancelled run would report.
func (r *Resolver) Run(ctx context.Context, buckets []Bucket) []*types.DuplicateGroup {
	var groups []*types.DuplicateGroup
	nextID := 1

	for _, bucket := range buckets {
		if ctx.Err() != nil {
			break
		}

		byDigest := r.hashBucket(ctx, bucket)
		if ctx.Err() != nil {
			break // bucket may be partially hashed - discard it
		}

		for _, dg := range byDigest {
			if len(dg.members) < 2 {
				continue
			}
			subsets := [][]*types.FileRecord{dg.members}
			if r.cfg.Verify {
				subsets = r.splitByContent(dg.members)
			}
			for _, subset := range subsets {
				if len(subset) < 2 {
					continue
				}
				groups = append(groups, types.NewDuplicateGroup(
					nextID, bucket.Size, r.cfg.Algorithm.String(), dg.digest, subset, r.cfg.Keep))
				nextID++
				r.tracker.AddGroup()
			}
		}
	}

	return groups
}

// digestGroup collects bucket members sharing one digest, in first-seen
// order. Because bucket members are path-sorted, first-seen order is
// order by smallest member path.
type digestGroup struct {
	digest  string
	members []*types.FileRecord
}

// hashBucket digests every bucket member with a bounded worker pool and
// regroups the survivors by digest. Members whose hashing fails are
// recorded on the error channel and excluded. Cancellation is checked
// before each file; a file already being hashed runs to completion.
func (r *Resolver) hashBucket(ctx context.Context, bucket Bucket) []digestGroup {
	digests := make([]string, len(bucket.Files))

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Workers)
	for i, rec := range bucket.Files {
		if ctx.Err() != nil {
			break
		}
		i, rec := i, rec
		g.Go(func() error {
			if cached := r.digests.Lookup(r.cfg.Algorithm, rec); cached != "" {
				digests[i] = cached
				r.tracker.AddCached(1, uint64(rec.Size))
				return nil
			}
			digest, read, err := hasher.SumFile(rec.Path, r.cfg.Algorithm, rec.Size)
			if err != nil {
				r.sendError(types.NewErrorRecord(rec.Path, types.ErrorHash, err))
				r.tracker.AddHashed(0, read)
				return nil
			}
			r.digests.Store(r.cfg.Algorithm, rec, digest)
			digests[i] = digest
			r.tracker.AddHashed(1, read)
			return nil
		})
	}
	_ = g.Wait()

	var order []digestGroup
	index := make(map[string]int)
	for i, rec := range bucket.Files {
		d := digests[i]
		if d == "" {
			continue // hash failed or cancelled before reaching this file
		}
		at, ok := index[d]
		if !ok {
			at = len(order)
			index[d] = at
			order = append(order, digestGroup{digest: d})
		}
		order[at].members = append(order[at].members, rec)
	}
	return order
}

// sendError sends a record to the errors channel if one is attached.
func (r *Resolver) sendError(rec types.ErrorRecord) {
	if r.errCh != nil {
		r.errCh <- rec
	}
}
