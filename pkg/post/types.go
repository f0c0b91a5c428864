package post

import (
	"github.com/muridata/fallback-post/pkg/domain"
	"github.com/muridata/fallback-post/pkg/tree"
)

// PrivateSector is the private half of a sector: the cached tree handle
// plus the two commitments that, hashed together, must equal the sector's
// public comm_r.
type PrivateSector struct {
	Tree      tree.MerkleTree
	CommC     domain.Domain
	CommRLast domain.Domain
}

// PrivateInputs are the private inputs to prove a partition set.
type PrivateInputs struct {
	Sectors []PrivateSector
}

// SectorProof is one sector's worth of inclusion proofs plus its
// commitments.
type SectorProof struct {
	InclusionProofs []tree.MerkleProof
	CommC           domain.Domain
	CommRLast       domain.Domain
}

// ComputedCommRLast returns the root of the first inclusion proof, which by
// construction must equal CommRLast for a well-formed sector proof.
func (sp SectorProof) ComputedCommRLast() domain.Domain {
	return sp.InclusionProofs[0].Root()
}

// Proof is one partition's worth of sector proofs.
type Proof struct {
	Sectors []SectorProof
}
