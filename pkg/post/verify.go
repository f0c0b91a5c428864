package post

import (
	"fmt"

	"github.com/muridata/fallback-post/pkg/domain"
)

// VerifyAllPartitions checks partitionProofs against pubIn under pp. It
// returns (false, nil) for a proof that is well-formed but
// cryptographically wrong, and a non-nil error for a proof that is
// malformed in a way that makes verification impossible to even attempt
// (wrong sector counts, wrong proof-vector lengths).
func VerifyAllPartitions(hash domain.HashFunction, pp PublicParams, pubIn PublicInputs, partitionProofs []Proof) (bool, error) {
	challengeCount := pp.ChallengeCount
	numSectorsPerChunk := pp.SectorCount
	numSectors := len(pubIn.Sectors)

	if numSectors > numSectorsPerChunk*len(partitionProofs) {
		return false, fmt.Errorf("post: verify_all_partitions: %w: %d > %d * %d",
			ErrMalformedProof, numSectors, numSectorsPerChunk, len(partitionProofs))
	}

	for j, proof := range partitionProofs {
		lo := j * numSectorsPerChunk
		if lo >= numSectors {
			break
		}
		hi := lo + numSectorsPerChunk
		if hi > numSectors {
			hi = numSectors
		}
		pubSectorsChunk := pubIn.Sectors[lo:hi]

		if len(pubSectorsChunk) > numSectorsPerChunk {
			return false, fmt.Errorf("post: verify_all_partitions: %w: %d > %d",
				ErrMalformedProof, len(pubSectorsChunk), numSectorsPerChunk)
		}
		if len(proof.Sectors) != numSectorsPerChunk {
			return false, fmt.Errorf("post: verify_all_partitions: %w: partition %d has %d sectors, want %d",
				ErrMalformedProof, j, len(proof.Sectors), numSectorsPerChunk)
		}

		for i, pubSector := range pubSectorsChunk {
			sectorProof := proof.Sectors[i]
			inclusionProofs := sectorProof.InclusionProofs

			if len(inclusionProofs) == 0 {
				return false, fmt.Errorf("post: verify_all_partitions: %w: sector %d has no inclusion proofs",
					ErrMalformedProof, pubSector.ID)
			}

			commRLast := sectorProof.ComputedCommRLast()
			if !hash.Hash2(sectorProof.CommC, commRLast).Equal(pubSector.CommR) {
				log.Error().Uint64("sector_id", uint64(pubSector.ID)).Msg("hash(comm_c || comm_r_last) != comm_r")
				return false, nil
			}

			if challengeCount != len(inclusionProofs) {
				return false, fmt.Errorf("post: verify_all_partitions: %w: unexpected number of inclusion proofs: %d != %d",
					ErrMalformedProof, challengeCount, len(inclusionProofs))
			}

			for n, inclusionProof := range inclusionProofs {
				var challengeIndex uint64
				switch pp.Shape {
				case Winning:
					legacyIndex := (j*numSectorsPerChunk+i)*pp.ChallengeCount + n
					if legacyIndex != i {
						return false, fmt.Errorf("post: verify_all_partitions: %w", ErrWinningShape)
					}
					challengeIndex = uint64(i)
				case Window:
					challengeIndex = uint64(n)
				default:
					return false, fmt.Errorf("post: verify_all_partitions: unknown shape %v", pp.Shape)
				}

				challengedLeaf := GenerateLeafChallenge(pp, pubIn.Randomness, uint64(pubSector.ID), challengeIndex)

				if !inclusionProof.Root().Equal(commRLast) {
					log.Error().Uint64("sector_id", uint64(pubSector.ID)).Msg("inclusion proof root != comm_r_last")
					return false, nil
				}

				expectedPathLength := inclusionProof.ExpectedLen(int(pp.LeavesPerSector()))
				if expectedPathLength != len(inclusionProof.Path()) {
					log.Error().Uint64("sector_id", uint64(pubSector.ID)).Msg("wrong path length")
					return false, nil
				}

				if !inclusionProof.Validate(int(challengedLeaf)) {
					log.Error().Uint64("sector_id", uint64(pubSector.ID)).Msg("invalid inclusion proof")
					return false, nil
				}
			}
		}
	}

	return true, nil
}
