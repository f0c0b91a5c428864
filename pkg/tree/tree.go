// Package tree defines the Merkle tree/proof capability consumed by the
// post engine and ships one concrete implementation of it.
//
// The engine never constructs trees itself — sealing and replica creation
// are external collaborators — but it needs *something* concrete to prove
// and verify against in its own tests, and downstream users of this module
// as a library need a reference implementation to start from. That
// implementation, CheckpointedTree, persists some levels and rebuilds the
// rest on demand from a leaf source: "rows to discard" becomes "levels not
// persisted, rebuilt on demand from the leaf source".
package tree

import (
	"context"

	"github.com/muridata/fallback-post/pkg/domain"
)

// PathElement is one level of an inclusion proof's path: the sibling
// value(s) at that level and the index of the proven node within its
// sibling group. For a binary tree Siblings always has length 1 and Index
// is 0 (left child) or 1 (right child).
type PathElement struct {
	Siblings []domain.Domain
	Index    int
}

// MerkleProof is the capability surface an inclusion proof must expose to
// the post engine.
type MerkleProof interface {
	// Root returns the tree root the proof was generated against.
	Root() domain.Domain
	// Leaf returns the challenged leaf's value.
	Leaf() domain.Domain
	// Path returns the sibling path from leaf to root, in leaf-to-root order.
	Path() []PathElement
	// Validate recomputes the root from Leaf()/Path() and reports whether it
	// matches Root(), and whether the path's encoded index agrees with
	// challengedIndex.
	Validate(challengedIndex int) bool
	// ExpectedLen returns the path length a valid proof must have for a tree
	// with the given number of leaf slots.
	ExpectedLen(leaves int) int
}

// MerkleTree is the capability surface a sealed sector's cached tree must
// expose. Implementations must be safe for concurrent use by
// independent goroutines: the engine fans out GenCachedProof calls across a
// worker pool and never mutates the tree itself.
type MerkleTree interface {
	// Leafs returns the number of leaf slots in the tree (a power of Arity).
	Leafs() int
	// GenCachedProof produces an inclusion proof for the leaf at leafIndex.
	// rowsToDiscard, when non-nil, overrides how many bottom rows are
	// rebuilt from the leaf source rather than read from a persisted cache.
	// The call may block (e.g. on disk-backed storage) and must honor ctx
	// cancellation.
	GenCachedProof(ctx context.Context, leafIndex int, rowsToDiscard *int) (MerkleProof, error)
}
