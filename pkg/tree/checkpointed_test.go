package tree

import (
	"context"
	"math/big"
	"testing"

	"github.com/muridata/fallback-post/pkg/domain"
)

func sequentialLeaves(n int) []domain.Domain {
	leaves := make([]domain.Domain, n)
	for i := 0; i < n; i++ {
		leaves[i] = domain.FromBigIntBytes(big.NewInt(int64(i) + 1).Bytes())
	}
	return leaves
}

func TestCheckpointedTreeRootStableAcrossDiscard(t *testing.T) {
	hash := domain.Poseidon2{}
	leaves := sequentialLeaves(16)

	full, err := BuildCheckpointedTree(leaves, 0, hash)
	if err != nil {
		t.Fatal(err)
	}
	discarded, err := BuildCheckpointedTree(leaves, 3, hash)
	if err != nil {
		t.Fatal(err)
	}

	if !full.Root().Equal(discarded.Root()) {
		t.Fatalf("root mismatch: full=%s discarded=%s", full.Root(), discarded.Root())
	}
}

func TestCheckpointedTreeProofValidatesAtEveryDiscard(t *testing.T) {
	hash := domain.Poseidon2{}
	leaves := sequentialLeaves(16)

	for discard := 0; discard <= 4; discard++ {
		t.Run("", func(t *testing.T) {
			tr, err := BuildCheckpointedTree(leaves, discard, hash)
			if err != nil {
				t.Fatal(err)
			}
			for leafIdx := 0; leafIdx < tr.Leafs(); leafIdx++ {
				proof, err := tr.GenCachedProof(context.Background(), leafIdx, nil)
				if err != nil {
					t.Fatalf("leaf %d: %v", leafIdx, err)
				}
				if !proof.Validate(leafIdx) {
					t.Fatalf("discard=%d leaf %d: proof did not validate", discard, leafIdx)
				}
				if !proof.Root().Equal(tr.Root()) {
					t.Fatalf("discard=%d leaf %d: proof root != tree root", discard, leafIdx)
				}
			}
		})
	}
}

func TestCheckpointedTreeProofRejectsWrongIndex(t *testing.T) {
	hash := domain.Poseidon2{}
	leaves := sequentialLeaves(8)
	tr, err := BuildCheckpointedTree(leaves, 1, hash)
	if err != nil {
		t.Fatal(err)
	}

	proof, err := tr.GenCachedProof(context.Background(), 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if proof.Validate(3) {
		t.Fatal("proof for leaf 2 validated against challenged index 3")
	}
}

func TestCheckpointedTreeOddLeafCountPads(t *testing.T) {
	hash := domain.Poseidon2{}
	leaves := sequentialLeaves(5)
	tr, err := BuildCheckpointedTree(leaves, 0, hash)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Leafs() != 8 {
		t.Fatalf("leaf count: got %d, want 8 (padded)", tr.Leafs())
	}
}

func TestCheckpointedTreeOutOfRangeLeaf(t *testing.T) {
	hash := domain.Poseidon2{}
	tr, err := BuildCheckpointedTree(sequentialLeaves(4), 0, hash)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.GenCachedProof(context.Background(), 99, nil); err == nil {
		t.Fatal("expected an error for an out-of-range leaf index")
	}
}

func TestDefaultRowsToDiscardMonotonic(t *testing.T) {
	small := DefaultRowsToDiscard(1<<4, Arity)
	large := DefaultRowsToDiscard(1<<20, Arity)
	if small > large {
		t.Fatalf("expected discard depth to grow with tree size: small=%d large=%d", small, large)
	}
	if large > maxRowsToDiscard {
		t.Fatalf("discard depth %d exceeds max %d", large, maxRowsToDiscard)
	}
}
