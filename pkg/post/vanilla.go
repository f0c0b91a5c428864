package post

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/muridata/fallback-post/pkg/sector"
	"github.com/muridata/fallback-post/pkg/tree"
)

// VanillaProof generates a single sector's SectorProof over the given
// leaf challenges. privIn must carry exactly one sector.
// ProveAllPartitions does not call it; it proves its sectors inline.
func VanillaProof(ctx context.Context, sectorID sector.ID, privIn PrivateInputs, challenges []uint64) (SectorProof, error) {
	if len(privIn.Sectors) != 1 {
		return SectorProof{}, ErrVanillaMultiSector
	}

	privSector := privIn.Sectors[0]
	treeLeafs := privSector.Tree.Leafs()
	rowsToDiscard := tree.DefaultRowsToDiscard(treeLeafs, tree.Arity)

	log.Trace().
		Int("tree_leafs", treeLeafs).
		Int("arity", tree.Arity).
		Uint64("sector_id", uint64(sectorID)).
		Msg("generating vanilla proof")

	inclusionProofs := make([]tree.MerkleProof, len(challenges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, challengedLeaf := range challenges {
		i, challengedLeaf := i, challengedLeaf
		g.Go(func() error {
			proof, err := privSector.Tree.GenCachedProof(gctx, int(challengedLeaf), &rowsToDiscard)
			if err != nil {
				return fmt.Errorf("post: vanilla_proof: sector %d: %w", sectorID, err)
			}

			if !proof.Validate(int(challengedLeaf)) || !proof.Root().Equal(privSector.CommRLast) {
				log.Error().
					Uint64("sector_id", uint64(sectorID)).
					Uint64("challenged_leaf", challengedLeaf).
					Msg("generated vanilla proof is invalid")
				return fmt.Errorf("post: vanilla_proof: sector %d: %w", sectorID, ErrInvalidVanillaProof)
			}

			inclusionProofs[i] = proof
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return SectorProof{}, err
	}

	return SectorProof{
		InclusionProofs: inclusionProofs,
		CommC:           privSector.CommC,
		CommRLast:       privSector.CommRLast,
	}, nil
}
