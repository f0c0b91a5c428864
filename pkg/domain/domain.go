// Package domain defines the opaque field-element type shared by the
// challenge, tree and proof layers, plus the hash capability used to bind
// comm_c and comm_r_last into comm_r.
//
// Domain is deliberately thin: it carries no sealing or circuit knowledge,
// only a canonical byte encoding and a hash-two-elements operation,
// separating "a field element" from "what we do with two of them".
package domain

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"github.com/fxamacker/cbor/v2"

	"github.com/muridata/fallback-post/config"
)

// Size is the canonical byte width of a Domain element, matching
// config.NodeSize.
const Size = config.NodeSize

// Domain is a BN254 scalar-field element used as a hash output, commitment,
// or randomness value. The zero value is the field element 0.
type Domain struct {
	elem fr.Element
}

// Zero returns the additive identity element.
func Zero() Domain {
	return Domain{}
}

// FromBigIntBytes builds a Domain from an arbitrary big-endian byte slice,
// reducing it modulo the scalar field the way fr.Element.SetBytes does.
func FromBigIntBytes(b []byte) Domain {
	var d Domain
	d.elem.SetBytes(b)
	return d
}

// FromCanonicalBytes decodes the canonical 32-byte big-endian encoding
// produced by AsBytes. Like FromBigIntBytes it reduces modulo the scalar
// field, so a non-canonical input is accepted and silently reduced; bytes
// produced by AsBytes round-trip unchanged.
func FromCanonicalBytes(b [Size]byte) Domain {
	var d Domain
	d.elem.SetBytes(b[:])
	return d
}

// Random draws a uniformly random Domain element from r.
func Random(r io.Reader) (Domain, error) {
	if r == nil {
		r = rand.Reader
	}
	var buf [Size]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Domain{}, fmt.Errorf("domain: read randomness: %w", err)
	}
	return FromBigIntBytes(buf[:]), nil
}

// AsBytes returns the canonical 32-byte big-endian encoding of the element.
// Equality of two Domain values is byte-equality of this encoding.
func (d Domain) AsBytes() [Size]byte {
	return d.elem.Bytes()
}

// Equal reports whether two Domain values have the same canonical encoding.
func (d Domain) Equal(other Domain) bool {
	return d.elem.Equal(&other.elem)
}

// String renders the element's decimal representation, for logging only.
func (d Domain) String() string {
	return d.elem.String()
}

// MarshalCBOR implements cbor.Marshaler, encoding the element as a CBOR
// byte string holding its canonical 32-byte form.
func (d Domain) MarshalCBOR() ([]byte, error) {
	b := d.AsBytes()
	return cbor.Marshal(b[:])
}

// UnmarshalCBOR implements cbor.Unmarshaler, the inverse of MarshalCBOR.
func (d *Domain) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("domain: unmarshal_cbor: %w", err)
	}
	if len(b) != Size {
		return fmt.Errorf("domain: unmarshal_cbor: want %d bytes, got %d", Size, len(b))
	}
	var arr [Size]byte
	copy(arr[:], b)
	*d = FromCanonicalBytes(arr)
	return nil
}

// HashFunction is the external hashing contract consumed by the engine: a
// deterministic, collision-resistant map from two domain elements to one.
// Poseidon, Pedersen and SHA-256 are all valid implementations of this
// contract; this module ships exactly one, Poseidon2.
type HashFunction interface {
	Hash2(a, b Domain) Domain
}

// Poseidon2 implements HashFunction with a Poseidon2 Merkle-Damgård sponge.
// Domain separation between real and padding leaves, when needed, is the
// tree layer's concern and orthogonal to this contract.
type Poseidon2 struct{}

// Hash2 hashes the canonical encodings of a and b together.
func (Poseidon2) Hash2(a, b Domain) Domain {
	h := poseidon2.NewMerkleDamgardHasher()
	aBytes := a.elem.Bytes()
	bBytes := b.elem.Bytes()
	h.Write(aBytes[:])
	h.Write(bBytes[:])
	return FromBigIntBytes(h.Sum(nil))
}
