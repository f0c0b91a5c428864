package post

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/muridata/fallback-post/pkg/domain"
)

// GenerateSectorChallenge derives which sector (by index into the sector
// set) is challenged for n:
//
//	h = SHA256(prover_id || randomness || le64(n))
//	sector_index = LE64(h[:8]) % sector_set_len
//
// It errors only if sectorSetLen is 0 (the caller's responsibility).
func GenerateSectorChallenge(randomness, proverID domain.Domain, n int, sectorSetLen uint64) (uint64, error) {
	if sectorSetLen == 0 {
		return 0, fmt.Errorf("post: generate_sector_challenge: %w", ErrEmptySectorSet)
	}

	proverBytes := proverID.AsBytes()
	randBytes := randomness.AsBytes()

	h := sha256.New()
	h.Write(proverBytes[:])
	h.Write(randBytes[:])
	var nBuf [8]byte
	binary.LittleEndian.PutUint64(nBuf[:], uint64(n))
	h.Write(nBuf[:])

	sum := h.Sum(nil)
	challenge := binary.LittleEndian.Uint64(sum[:8])
	return challenge % sectorSetLen, nil
}

// GenerateSectorChallenges derives a sector challenge for every n in
// [0, count).
func GenerateSectorChallenges(randomness, proverID domain.Domain, count int, sectorSetLen uint64) ([]uint64, error) {
	out := make([]uint64, count)
	for n := 0; n < count; n++ {
		c, err := GenerateSectorChallenge(randomness, proverID, n, sectorSetLen)
		if err != nil {
			return nil, err
		}
		out[n] = c
	}
	return out, nil
}

// GenerateLeafChallenge derives which leaf within a sector's tree is
// challenged:
//
//	h = SHA256(randomness || le64(sector_id) || le64(leaf_challenge_index))
//	leaf_index = LE64(h[:8]) % (sector_size / NODE_SIZE)
//
// Note the deliberate asymmetry with GenerateSectorChallenge: prover_id is
// NOT mixed in here. This is a domain-separation choice from the original
// scheme and must be preserved bit-exactly.
func GenerateLeafChallenge(pp PublicParams, randomness domain.Domain, sectorID uint64, leafChallengeIndex uint64) uint64 {
	randBytes := randomness.AsBytes()

	h := sha256.New()
	h.Write(randBytes[:])
	var idBuf, idxBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], sectorID)
	binary.LittleEndian.PutUint64(idxBuf[:], leafChallengeIndex)
	h.Write(idBuf[:])
	h.Write(idxBuf[:])

	sum := h.Sum(nil)
	challenge := binary.LittleEndian.Uint64(sum[:8])
	return challenge % pp.LeavesPerSector()
}

// GenerateLeafChallenges derives a leaf challenge for every index in
// [0, challengeCount).
func GenerateLeafChallenges(pp PublicParams, randomness domain.Domain, sectorID uint64, challengeCount int) []uint64 {
	out := make([]uint64, challengeCount)
	for i := 0; i < challengeCount; i++ {
		out[i] = GenerateLeafChallenge(pp, randomness, sectorID, uint64(i))
	}
	return out
}
