package tree

import (
	"fmt"

	"github.com/muridata/fallback-post/config"
)

// Arity is the branching factor of the concrete tree implementations in
// this package. The MerkleTree/MerkleProof capability itself is
// arity-agnostic; CheckpointedTree is binary.
const Arity = 2

const (
	// minCachedLeaves is the row width at which DefaultRowsToDiscard stops
	// increasing the discard count: it discards another bottom row only while
	// the lowest persisted row is still wider than this, so a tree with at
	// most this many leaves is persisted in full.
	minCachedLeaves = 1 << 7
	// maxRowsToDiscard bounds how deep the discarded region may go.
	maxRowsToDiscard = 8
)

// DefaultRowsToDiscard recommends, given a leaf count and arity, how many
// bottom rows a cached tree should leave unpersisted, to be rebuilt from
// the leaf source at proof time. It is deliberately conservative: store a
// small number of upper levels, discard the much larger bottom rows,
// rather than a bit-exact port of any single formula.
func DefaultRowsToDiscard(leaves, arity int) int {
	if leaves <= 1 || arity < 2 {
		return 0
	}

	depth := Depth(leaves, arity)
	rows := 0
	cached := leaves
	for rows < maxRowsToDiscard && rows < depth-1 && cached > minCachedLeaves {
		cached /= arity
		rows++
	}
	return rows
}

// Depth returns the number of levels between a leaf and the root of a tree
// with `leaves` leaf slots and the given arity (leaves must be a power of
// arity; non-conforming input rounds up).
func Depth(leaves, arity int) int {
	if leaves <= 1 || arity < 2 {
		return 0
	}
	d := 0
	for n := 1; n < leaves; n *= arity {
		d++
	}
	return d
}

// ValidateDepth rejects a tree depth that exceeds config.MaxTreeDepth, the
// bound every tree constructed in this package must respect.
func ValidateDepth(depth int) error {
	if depth > config.MaxTreeDepth {
		return fmt.Errorf("tree: depth %d exceeds config.MaxTreeDepth (%d)", depth, config.MaxTreeDepth)
	}
	return nil
}
