package tree

import "github.com/muridata/fallback-post/pkg/domain"

// merkleProof is CheckpointedTree's concrete MerkleProof implementation. It
// is fully self-contained (no reference back to the tree) so it survives
// serialization and can be validated independently of the tree that
// produced it.
type merkleProof struct {
	hash domain.HashFunction

	root domain.Domain
	leaf domain.Domain

	// siblings[d]/directions[d] is the sibling value and branch taken at
	// level d, leaf-to-root order. directions[d] == 0 means the proven node
	// was the left child at that level (sibling is on the right).
	siblings   []domain.Domain
	directions []int
}

// NewMerkleProof builds a self-contained proof from its raw parts. Exported
// so other MerkleTree implementations (or a deserializer) can construct the
// same concrete proof type.
func NewMerkleProof(hash domain.HashFunction, root, leaf domain.Domain, path []PathElement) MerkleProof {
	siblings := make([]domain.Domain, len(path))
	directions := make([]int, len(path))
	for i, pe := range path {
		if len(pe.Siblings) > 0 {
			siblings[i] = pe.Siblings[0]
		}
		directions[i] = pe.Index
	}
	return &merkleProof{hash: hash, root: root, leaf: leaf, siblings: siblings, directions: directions}
}

func (p *merkleProof) Root() domain.Domain { return p.root }
func (p *merkleProof) Leaf() domain.Domain { return p.leaf }

func (p *merkleProof) Path() []PathElement {
	out := make([]PathElement, len(p.siblings))
	for i := range p.siblings {
		out[i] = PathElement{Siblings: []domain.Domain{p.siblings[i]}, Index: p.directions[i]}
	}
	return out
}

// Validate recomputes the root from Leaf() and Path() and checks it against
// Root(), and that the encoded directions reconstruct challengedIndex.
func (p *merkleProof) Validate(challengedIndex int) bool {
	if len(p.siblings) != len(p.directions) {
		return false
	}

	current := p.leaf
	idx := 0
	for d := len(p.siblings) - 1; d >= 0; d-- {
		idx = idx<<1 | p.directions[d]
	}
	if idx != challengedIndex {
		return false
	}

	for d := 0; d < len(p.siblings); d++ {
		sib := p.siblings[d]
		if p.directions[d] == 0 {
			current = p.hash.Hash2(current, sib)
		} else {
			current = p.hash.Hash2(sib, current)
		}
	}
	return current.Equal(p.root)
}

// ExpectedLen returns log2(leaves): the depth of a binary tree with that
// many leaf slots.
func (p *merkleProof) ExpectedLen(leaves int) int {
	return Depth(leaves, Arity)
}
