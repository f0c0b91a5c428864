package post

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/muridata/fallback-post/pkg/domain"
	"github.com/muridata/fallback-post/pkg/tree"
)

// proofOrFault is the per-challenge outcome of a Window-shape proving
// attempt: either a validated inclusion proof, or a fault against the
// sector it was challenging.
type proofOrFault struct {
	proof  tree.MerkleProof
	faulty bool
}

// ProveAllPartitions generates one Proof per partition for pubIn/privIn,
// honoring pp.Shape's Window/Winning layout rules. It never
// returns a partial success: if any sector fails validation it is
// accumulated into the returned *FaultySectorsError instead of appearing
// in a Proof.
func ProveAllPartitions(ctx context.Context, hash domain.HashFunction, pp PublicParams, pubIn PublicInputs, privIn PrivateInputs, partitionCount int) ([]Proof, error) {
	if len(privIn.Sectors) != len(pubIn.Sectors) {
		return nil, fmt.Errorf("post: prove_all_partitions: %w: %d != %d",
			ErrSectorCountMismatch, len(privIn.Sectors), len(pubIn.Sectors))
	}

	faults := newFaultSet()

	var partitionProofs []Proof
	var err error
	switch pp.Shape {
	case Window:
		partitionProofs, err = proveWindow(ctx, hash, pp, pubIn, privIn, partitionCount, faults)
	case Winning:
		partitionProofs, err = proveWinning(ctx, hash, pp, pubIn, privIn, faults)
	default:
		err = fmt.Errorf("post: prove_all_partitions: unknown shape %v", pp.Shape)
	}
	if err != nil {
		return nil, err
	}

	if !faults.empty() {
		return nil, &FaultySectorsError{Sectors: faults.sorted()}
	}
	return partitionProofs, nil
}

func proveWindow(ctx context.Context, hash domain.HashFunction, pp PublicParams, pubIn PublicInputs, privIn PrivateInputs, partitionCount int, faults *faultSet) ([]Proof, error) {
	numSectorsPerChunk := pp.SectorCount
	numSectors := len(pubIn.Sectors)

	if numSectors > partitionCount*numSectorsPerChunk {
		return nil, fmt.Errorf("post: prove_all_partitions: %w: %d > %d * %d",
			ErrTooManySectors, numSectors, partitionCount, numSectorsPerChunk)
	}

	if numSectors == 0 {
		return []Proof{}, nil
	}

	var partitionProofs []Proof
	for j, lo := 0, 0; lo < numSectors; j, lo = j+1, lo+numSectorsPerChunk {
		hi := lo + numSectorsPerChunk
		if hi > numSectors {
			hi = numSectors
		}
		pubChunk := pubIn.Sectors[lo:hi]
		privChunk := privIn.Sectors[lo:hi]

		log.Trace().Int("partition", j).Msg("proving partition")

		proofs, err := proveChunk(ctx, hash, pp, pubIn.Randomness, pubChunk, privChunk, faults)
		if err != nil {
			return nil, err
		}

		// If fewer sectors than a full chunk were provided, duplicate the
		// last sector's proof to pad the chunk out. This duplicates the
		// last proof, fault or not, matching a downstream circuit's fixed
		// per-partition sector count.
		for len(proofs) < numSectorsPerChunk && len(proofs) > 0 {
			proofs = append(proofs, proofs[len(proofs)-1])
		}

		partitionProofs = append(partitionProofs, Proof{Sectors: proofs})
	}
	return partitionProofs, nil
}

// proveChunk proves every sector in one Window-shape partition chunk,
// fanning out challenges per sector and collapsing any failed challenge
// into a fault against that sector's id rather than a hard error.
func proveChunk(ctx context.Context, hash domain.HashFunction, pp PublicParams, randomness domain.Domain, pubChunk []PublicSector, privChunk []PrivateSector, faults *faultSet) ([]SectorProof, error) {
	proofs := make([]SectorProof, 0, len(pubChunk))

	for i := range pubChunk {
		pubSector := pubChunk[i]
		privSector := privChunk[i]

		treeLeafs := privSector.Tree.Leafs()
		rowsToDiscard := tree.DefaultRowsToDiscard(treeLeafs, tree.Arity)

		challenges := GenerateLeafChallenges(pp, randomness, uint64(pubSector.ID), pp.ChallengeCount)

		outcomes := make([]proofOrFault, pp.ChallengeCount)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for n := range challenges {
			n := n
			g.Go(func() error {
				challengedLeaf := challenges[n]
				proof, err := privSector.Tree.GenCachedProof(gctx, int(challengedLeaf), &rowsToDiscard)
				if err != nil {
					outcomes[n] = proofOrFault{faulty: true}
					return nil
				}
				valid := proof.Validate(int(challengedLeaf)) &&
					proof.Root().Equal(privSector.CommRLast) &&
					pubSector.CommR.Equal(hash.Hash2(privSector.CommC, privSector.CommRLast))
				if !valid {
					outcomes[n] = proofOrFault{faulty: true}
					return nil
				}
				outcomes[n] = proofOrFault{proof: proof}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var inclusionProofs []tree.MerkleProof
		sectorFaulted := false
		for _, o := range outcomes {
			if o.faulty {
				sectorFaulted = true
				continue
			}
			inclusionProofs = append(inclusionProofs, o.proof)
		}
		if sectorFaulted {
			log.Error().Uint64("sector_id", uint64(pubSector.ID)).Msg("faulty sector")
			faults.add(pubSector.ID)
		}

		proofs = append(proofs, SectorProof{
			InclusionProofs: inclusionProofs,
			CommC:           privSector.CommC,
			CommRLast:       privSector.CommRLast,
		})
	}

	return proofs, nil
}

func proveWinning(ctx context.Context, hash domain.HashFunction, pp PublicParams, pubIn PublicInputs, privIn PrivateInputs, faults *faultSet) ([]Proof, error) {
	numChallenges := pp.SectorCount
	pubSectors := pubIn.Sectors
	privSectors := privIn.Sectors

	if len(pubSectors) != numChallenges || numChallenges <= 0 {
		return nil, fmt.Errorf("post: prove_all_partitions: winning PoSt, wrong number of challenges: %d: %w",
			len(pubSectors), ErrWinningShape)
	}
	if len(privSectors) != len(pubSectors) {
		return nil, fmt.Errorf("post: prove_all_partitions: %w: %d != %d",
			ErrSectorCountMismatch, len(privSectors), len(pubSectors))
	}
	if pp.ChallengeCount != 1 {
		return nil, fmt.Errorf("post: prove_all_partitions: %w: challenges %d != 1",
			ErrWinningShape, pp.ChallengeCount)
	}

	pubSector := pubSectors[0]
	privSector := privSectors[0]

	treeLeafs := privSector.Tree.Leafs()
	rowsToDiscard := tree.DefaultRowsToDiscard(treeLeafs, tree.Arity)

	sectorID := pubSector.ID
	challenges := GenerateLeafChallenges(pp, pubIn.Randomness, uint64(sectorID), numChallenges)

	proofs := make([]SectorProof, 0, 1)
	for _, challenge := range challenges {
		proof, err := privSector.Tree.GenCachedProof(ctx, int(challenge), &rowsToDiscard)
		valid := err == nil &&
			proof.Validate(int(challenge)) &&
			proof.Root().Equal(privSector.CommRLast) &&
			pubSector.CommR.Equal(hash.Hash2(privSector.CommC, privSector.CommRLast))

		if !valid {
			log.Error().Uint64("sector_id", uint64(sectorID)).Msg("faulty sector")
			faults.add(sectorID)
			continue
		}

		proofs = append(proofs, SectorProof{
			InclusionProofs: []tree.MerkleProof{proof},
			CommC:           privSector.CommC,
			CommRLast:       privSector.CommRLast,
		})
	}

	return []Proof{{Sectors: proofs}}, nil
}
