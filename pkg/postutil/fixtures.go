// Package postutil builds small, deterministic sector fixtures for tests
// and examples: synthetic leaf sets, a CheckpointedTree over them, and the
// matching public/private sector pair a correct prover would use, by
// hand-building small trees from known inputs rather than sealing real
// data. It has no dependency on pkg/post.
package postutil

import (
	"math/big"

	"github.com/muridata/fallback-post/pkg/domain"
	"github.com/muridata/fallback-post/pkg/tree"
)

// Hash is the fixture package's fixed hash capability.
var Hash domain.HashFunction = domain.Poseidon2{}

// SequentialLeaves returns n leaves with deterministic, distinct values
// (domain.FromBigIntBytes(i+1) for i in [0, n)), useful for building a tree
// whose per-leaf challenges are easy to reason about in tests.
func SequentialLeaves(n int) []domain.Domain {
	leaves := make([]domain.Domain, n)
	for i := 0; i < n; i++ {
		leaves[i] = domain.FromBigIntBytes(big.NewInt(int64(i) + 1).Bytes())
	}
	return leaves
}

// Sector bundles a fixture's public and private halves plus the tree
// backing it, so a test can hand the pair straight to VanillaProof /
// ProveAllPartitions / VerifyAllPartitions.
type Sector struct {
	ID        uint64
	Tree      *tree.CheckpointedTree
	CommC     domain.Domain
	CommRLast domain.Domain
	CommR     domain.Domain
}

// BuildSector constructs a CheckpointedTree over leaves, derives comm_r_last
// as the tree root, picks an arbitrary comm_c, and computes the binding
// comm_r = hash2(comm_c, comm_r_last) a correct prover/verifier expects.
func BuildSector(id uint64, leaves []domain.Domain, rowsToDiscard int) (Sector, error) {
	t, err := tree.BuildCheckpointedTree(leaves, rowsToDiscard, Hash)
	if err != nil {
		return Sector{}, err
	}
	commRLast := t.Root()
	commC := domain.FromBigIntBytes(big.NewInt(int64(id) + 1_000_000).Bytes())
	commR := Hash.Hash2(commC, commRLast)
	return Sector{
		ID:        id,
		Tree:      t,
		CommC:     commC,
		CommRLast: commRLast,
		CommR:     commR,
	}, nil
}
