package post

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/muridata/fallback-post/pkg/domain"
	"github.com/muridata/fallback-post/pkg/tree"
)

// wireProof is the self-describing CBOR wire shape for Proof. MerkleProof
// is an interface, so it cannot round-trip through CBOR on its own; this
// flattens each inclusion proof to its raw root/leaf/path triple and
// reconstructs concrete tree.MerkleProof values on decode via
// tree.NewMerkleProof, the same constructor CheckpointedTree itself uses.
// The domain.Domain fields encode themselves via Domain's own
// MarshalCBOR/UnmarshalCBOR, so no byte-array conversion is needed here.
type wireProof struct {
	Sectors []wireSectorProof `cbor:"sectors"`
}

type wireSectorProof struct {
	InclusionProofs []wireMerkleProof `cbor:"inclusion_proofs"`
	CommC           domain.Domain     `cbor:"comm_c"`
	CommRLast       domain.Domain     `cbor:"comm_r_last"`
}

type wireMerkleProof struct {
	Root domain.Domain     `cbor:"root"`
	Leaf domain.Domain     `cbor:"leaf"`
	Path []wirePathElement `cbor:"path"`
}

type wirePathElement struct {
	Siblings []domain.Domain `cbor:"siblings"`
	Index    int             `cbor:"index"`
}

// EncodeProof serializes p to self-describing CBOR so SectorProof values
// round-trip across process and network boundaries.
func EncodeProof(p Proof) ([]byte, error) {
	w := wireProof{Sectors: make([]wireSectorProof, len(p.Sectors))}
	for i, sp := range p.Sectors {
		wsp := wireSectorProof{
			InclusionProofs: make([]wireMerkleProof, len(sp.InclusionProofs)),
			CommC:           sp.CommC,
			CommRLast:       sp.CommRLast,
		}
		for j, ip := range sp.InclusionProofs {
			path := ip.Path()
			wp := wireMerkleProof{
				Root: ip.Root(),
				Leaf: ip.Leaf(),
				Path: make([]wirePathElement, len(path)),
			}
			for k, pe := range path {
				wp.Path[k] = wirePathElement{Siblings: pe.Siblings, Index: pe.Index}
			}
			wsp.InclusionProofs[j] = wp
		}
		w.Sectors[i] = wsp
	}

	opts := cbor.CanonicalEncOptions()
	em, err := opts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("post: encode_proof: %w", err)
	}
	data, err := em.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("post: encode_proof: %w", err)
	}
	return data, nil
}

// DecodeProof reverses EncodeProof, reconstructing concrete
// tree.MerkleProof values bound to hash so Validate continues to work on
// the decoded proof.
func DecodeProof(data []byte, hash domain.HashFunction) (Proof, error) {
	var w wireProof
	if err := cbor.Unmarshal(data, &w); err != nil {
		return Proof{}, fmt.Errorf("post: decode_proof: %w", err)
	}

	p := Proof{Sectors: make([]SectorProof, len(w.Sectors))}
	for i, wsp := range w.Sectors {
		sp := SectorProof{
			InclusionProofs: make([]tree.MerkleProof, len(wsp.InclusionProofs)),
			CommC:           wsp.CommC,
			CommRLast:       wsp.CommRLast,
		}
		for j, wp := range wsp.InclusionProofs {
			path := make([]tree.PathElement, len(wp.Path))
			for k, wpe := range wp.Path {
				path[k] = tree.PathElement{Siblings: wpe.Siblings, Index: wpe.Index}
			}
			sp.InclusionProofs[j] = tree.NewMerkleProof(hash, wp.Root, wp.Leaf, path)
		}
		p.Sectors[i] = sp
	}
	return p, nil
}
