package tree

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/muridata/fallback-post/pkg/domain"
)

// LeafSource returns the value of the leaf at the given index. It stands in
// for whatever storage backs a sealed sector's base layer (a file, a
// column store, ...) — out of scope for this module
type LeafSource func(leafIndex int) domain.Domain

// CheckpointedTree is a binary Merkle tree that persists every level from
// persistedFrom up to the root, and rebuilds the bottom persistedFrom
// levels on demand from a LeafSource.
//
// It is read-only after construction and safe for concurrent GenCachedProof
// calls from independent goroutines.
type CheckpointedTree struct {
	hash domain.HashFunction
	src  LeafSource

	leafCount     int // power of Arity
	depth         int
	persistedFrom int // rows [0, persistedFrom) are not stored

	// persisted[d] holds every node value at level d, for d in
	// [persistedFrom, depth]. persisted[depth] has exactly one entry: the
	// root.
	persisted [][]domain.Domain
}

// BuildCheckpointedTree constructs a tree over leaves, persisting every
// level above rowsToDiscard. leaves is padded by repeating its elements
// cyclically from the first until its length is a power of two (at least
// two), so that singleton sectors
// still produce a provable (depth >= 1) tree.
func BuildCheckpointedTree(leaves []domain.Domain, rowsToDiscard int, hash domain.HashFunction) (*CheckpointedTree, error) {
	if len(leaves) == 0 {
		return nil, fmt.Errorf("tree: no leaves supplied")
	}
	padded := padToPowerOfTwo(leaves)
	depth := Depth(len(padded), Arity)
	if err := ValidateDepth(depth); err != nil {
		return nil, err
	}
	if rowsToDiscard < 0 {
		rowsToDiscard = 0
	}
	if rowsToDiscard > depth {
		rowsToDiscard = depth
	}
	persistedFrom := rowsToDiscard

	src := func(i int) domain.Domain { return padded[i] }

	t := &CheckpointedTree{
		hash:          hash,
		src:           src,
		leafCount:     len(padded),
		depth:         depth,
		persistedFrom: persistedFrom,
	}
	t.persisted = make([][]domain.Domain, depth+1)

	level := padded
	if persistedFrom == 0 {
		t.persisted[0] = level
	}
	for d := 1; d <= depth; d++ {
		next := make([]domain.Domain, len(level)/2)
		for i := range next {
			next[i] = hash.Hash2(level[2*i], level[2*i+1])
		}
		level = next
		if d >= persistedFrom {
			t.persisted[d] = level
		}
	}
	return t, nil
}

func padToPowerOfTwo(leaves []domain.Domain) []domain.Domain {
	n := len(leaves)
	next := 1
	for next < n {
		next <<= 1
	}
	if next < 2 {
		next = 2
	}
	if next == n {
		out := make([]domain.Domain, n)
		copy(out, leaves)
		return out
	}
	out := make([]domain.Domain, 0, next)
	out = append(out, leaves...)
	for i := 0; len(out) < next; i++ {
		out = append(out, leaves[i%n])
	}
	return out
}

// Leafs implements tree.MerkleTree.
func (t *CheckpointedTree) Leafs() int { return t.leafCount }

// Root returns the tree root.
func (t *CheckpointedTree) Root() domain.Domain { return t.persisted[t.depth][0] }

// GenCachedProof implements tree.MerkleTree. When rowsToDiscard is nil the
// tree's own construction-time discard depth is used; when it asks for more
// rows to be discarded than that, the extra rows are rebuilt as well; when it
// asks for fewer, the construction-time depth is used instead — a tree can't
// un-discard what it never stored, it can only rebuild more than asked.
func (t *CheckpointedTree) GenCachedProof(ctx context.Context, leafIndex int, rowsToDiscard *int) (MerkleProof, error) {
	if leafIndex < 0 || leafIndex >= t.leafCount {
		return nil, fmt.Errorf("tree: leaf index %d out of range [0, %d)", leafIndex, t.leafCount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gap := t.persistedFrom
	if rowsToDiscard != nil && *rowsToDiscard > gap {
		gap = *rowsToDiscard
		if gap > t.depth {
			gap = t.depth
		}
	}

	siblings := make([]domain.Domain, t.depth)
	directions := make([]int, t.depth)

	idx := leafIndex
	for d := 0; d < t.depth; d++ {
		directions[d] = idx & 1
		idx >>= 1
	}

	if gap > 0 {
		rebuilt, err := t.rebuildBottom(ctx, leafIndex, gap)
		if err != nil {
			return nil, err
		}
		copy(siblings[:gap], rebuilt)
	}
	for d := gap; d < t.depth; d++ {
		nodeIdx := leafIndex >> d
		sibIdx := nodeIdx ^ 1
		siblings[d] = t.persisted[d][sibIdx]
	}

	leaf := t.src(leafIndex)
	return &merkleProof{
		hash:       t.hash,
		root:       t.Root(),
		leaf:       leaf,
		siblings:   siblings,
		directions: directions,
	}, nil
}

// rebuildBottom recomputes the sibling values for levels [0, gap) of the
// subtree containing leafIndex, fanning leaf reads and pairwise hashing out
// across a bounded worker pool with results ordered by index rather than
// completion order.
func (t *CheckpointedTree) rebuildBottom(ctx context.Context, leafIndex, gap int) ([]domain.Domain, error) {
	subtreeSize := 1 << gap
	base := (leafIndex >> gap) << gap

	level := make([]domain.Domain, subtreeSize)
	if err := parallelFill(ctx, subtreeSize, func(i int) {
		level[i] = t.src(base + i)
	}); err != nil {
		return nil, err
	}

	siblings := make([]domain.Domain, gap)
	idx := leafIndex - base
	for d := 0; d < gap; d++ {
		siblings[d] = level[idx^1]

		next := make([]domain.Domain, len(level)/2)
		if err := parallelFill(ctx, len(next), func(i int) {
			next[i] = t.hash.Hash2(level[2*i], level[2*i+1])
		}); err != nil {
			return nil, err
		}
		level = next
		idx >>= 1
	}
	return siblings, nil
}

// parallelFill runs fn(i) for i in [0, n) across a GOMAXPROCS-bounded
// worker pool.
func parallelFill(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, runtime.GOMAXPROCS(0)))
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	return g.Wait()
}
