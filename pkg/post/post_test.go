package post

import (
	"context"
	"errors"
	"testing"

	"github.com/muridata/fallback-post/config"
	"github.com/muridata/fallback-post/pkg/domain"
	"github.com/muridata/fallback-post/pkg/postutil"
	"github.com/muridata/fallback-post/pkg/sector"
	"github.com/muridata/fallback-post/pkg/tree"
)

const testLeavesPerSector = 64 // 64 * base_tree_count with base_tree_count = 1

func testPublicParams(sectorCount int, shape Shape, challengeCount int) PublicParams {
	return PublicParams{
		SectorSize:     testLeavesPerSector * domain.Size,
		ChallengeCount: challengeCount,
		SectorCount:    sectorCount,
		Shape:          shape,
	}
}

// buildSectors constructs n well-formed sectors, returning the matching
// PublicInputs/PrivateInputs pair a correct prover would use.
func buildSectors(t *testing.T, n int) (PublicInputs, PrivateInputs) {
	t.Helper()
	var pub PublicInputs
	var priv PrivateInputs
	for i := 0; i < n; i++ {
		sec, err := postutil.BuildSector(uint64(i), postutil.SequentialLeaves(testLeavesPerSector), 2)
		if err != nil {
			t.Fatalf("build sector %d: %v", i, err)
		}
		pub.Sectors = append(pub.Sectors, PublicSector{ID: sector.ID(sec.ID), CommR: sec.CommR})
		priv.Sectors = append(priv.Sectors, PrivateSector{Tree: sec.Tree, CommC: sec.CommC, CommRLast: sec.CommRLast})
	}
	pub.Randomness = domain.FromBigIntBytes([]byte("test-randomness"))
	pub.ProverID = domain.FromBigIntBytes([]byte("test-prover"))
	return pub, priv
}

// roundTripScenario proves and verifies n sectors under shape/challengeCount
// split across partitionCount partitions, returning the proofs for callers
// that want to assert further.
func roundTripScenario(t *testing.T, n, sectorCount, partitionCount int, shape Shape, challengeCount int) ([]Proof, PublicInputs) {
	t.Helper()
	hash := domain.Poseidon2{}
	pp := testPublicParams(sectorCount, shape, challengeCount)
	pub, priv := buildSectors(t, n)

	proofs, err := ProveAllPartitions(context.Background(), hash, pp, pub, priv, partitionCount)
	if err != nil {
		t.Fatalf("prove_all_partitions: %v", err)
	}

	ok, err := VerifyAllPartitions(hash, pp, pub, proofs)
	if err != nil {
		t.Fatalf("verify_all_partitions: %v", err)
	}
	if !ok {
		t.Fatal("verify_all_partitions returned false for a well-formed proof")
	}
	return proofs, pub
}

func TestS1WindowSinglePartitionExactFit(t *testing.T) {
	roundTripScenario(t, 5, 5, 1, Window, config.DefaultChallengeCount)
}

func TestS2WindowShortChunkPads(t *testing.T) {
	proofs, _ := roundTripScenario(t, 3, 5, 1, Window, config.DefaultChallengeCount)
	if len(proofs) != 1 {
		t.Fatalf("partition count: got %d, want 1", len(proofs))
	}
	if len(proofs[0].Sectors) != 5 {
		t.Fatalf("padded partition size: got %d, want 5", len(proofs[0].Sectors))
	}
	// The two padding slots duplicate the last real sector's proof.
	last := proofs[0].Sectors[2]
	for i := 3; i < 5; i++ {
		if !proofs[0].Sectors[i].CommC.Equal(last.CommC) || !proofs[0].Sectors[i].CommRLast.Equal(last.CommRLast) {
			t.Fatalf("padding slot %d does not duplicate the last real sector proof", i)
		}
	}
}

func TestS3TwoPartitionsTwoSectorsEach(t *testing.T) {
	proofs, _ := roundTripScenario(t, 4, 2, 2, Window, config.DefaultChallengeCount)
	if len(proofs) != 2 {
		t.Fatalf("partition count: got %d, want 2", len(proofs))
	}
	for i, p := range proofs {
		if len(p.Sectors) != 2 {
			t.Fatalf("partition %d: got %d sectors, want 2", i, len(p.Sectors))
		}
	}
}

func TestS4LastPartitionPadsFromDuplicate(t *testing.T) {
	proofs, _ := roundTripScenario(t, 5, 3, 2, Window, config.DefaultChallengeCount)
	if len(proofs) != 2 {
		t.Fatalf("partition count: got %d, want 2", len(proofs))
	}
	second := proofs[1]
	if len(second.Sectors) != 3 {
		t.Fatalf("second partition size: got %d, want 3", len(second.Sectors))
	}
	if !second.Sectors[2].CommC.Equal(second.Sectors[1].CommC) {
		t.Fatal("second partition's padding slot does not duplicate its second-to-last sector")
	}
}

func TestS5FaultDetectionReportsSortedIDs(t *testing.T) {
	hash := domain.Poseidon2{}
	pp := testPublicParams(5, Window, config.DefaultChallengeCount)
	pub, priv := buildSectors(t, 5)

	// Sectors 0 and 3 get swapped onto the wrong tree, so their roots no
	// longer equal comm_r_last.
	wrongLeaves := postutil.SequentialLeaves(testLeavesPerSector)
	wrongLeaves[0] = domain.FromBigIntBytes([]byte("wrong-leaf"))
	wrongSector, err := postutil.BuildSector(999, wrongLeaves, 2)
	if err != nil {
		t.Fatal(err)
	}
	priv.Sectors[0].Tree = wrongSector.Tree
	priv.Sectors[3].Tree = wrongSector.Tree

	_, err = ProveAllPartitions(context.Background(), hash, pp, pub, priv, 1)
	if err == nil {
		t.Fatal("expected prove_all_partitions to report faulty sectors")
	}
	var faultErr *FaultySectorsError
	if !errors.As(err, &faultErr) {
		t.Fatalf("expected *FaultySectorsError, got %T: %v", err, err)
	}
	if len(faultErr.Sectors) != 2 || uint64(faultErr.Sectors[0]) != 0 || uint64(faultErr.Sectors[1]) != 3 {
		t.Fatalf("faulty sectors: got %v, want [0 3]", faultErr.Sectors)
	}
}

func TestS6WinningShapeSingleSectorManyChallenges(t *testing.T) {
	const k = 4
	hash := domain.Poseidon2{}
	pp := testPublicParams(k, Winning, 1)

	sec, err := postutil.BuildSector(7, postutil.SequentialLeaves(testLeavesPerSector), 1)
	if err != nil {
		t.Fatal(err)
	}

	var pub PublicInputs
	var priv PrivateInputs
	for i := 0; i < k; i++ {
		pub.Sectors = append(pub.Sectors, PublicSector{ID: 7, CommR: sec.CommR})
		priv.Sectors = append(priv.Sectors, PrivateSector{Tree: sec.Tree, CommC: sec.CommC, CommRLast: sec.CommRLast})
	}
	pub.Randomness = domain.FromBigIntBytes([]byte("winning-randomness"))
	pub.ProverID = domain.FromBigIntBytes([]byte("winning-prover"))

	proofs, err := ProveAllPartitions(context.Background(), hash, pp, pub, priv, 1)
	if err != nil {
		t.Fatalf("prove_all_partitions: %v", err)
	}
	if len(proofs) != 1 {
		t.Fatalf("partition count: got %d, want 1", len(proofs))
	}
	if len(proofs[0].Sectors) != k {
		t.Fatalf("inclusion proof count: got %d, want %d", len(proofs[0].Sectors), k)
	}
	for _, sp := range proofs[0].Sectors {
		if len(sp.InclusionProofs) != 1 {
			t.Fatalf("each winning sector proof must carry exactly one inclusion proof, got %d", len(sp.InclusionProofs))
		}
	}

	ok, err := VerifyAllPartitions(hash, pp, pub, proofs)
	if err != nil {
		t.Fatalf("verify_all_partitions: %v", err)
	}
	if !ok {
		t.Fatal("verify_all_partitions returned false for a well-formed winning proof")
	}
}

func TestDeterminism(t *testing.T) {
	pp := testPublicParams(5, Window, config.DefaultChallengeCount)
	pub, priv := buildSectors(t, 5)
	hash := domain.Poseidon2{}

	p1, err := ProveAllPartitions(context.Background(), hash, pp, pub, priv, 1)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := ProveAllPartitions(context.Background(), hash, pp, pub, priv, 1)
	if err != nil {
		t.Fatal(err)
	}

	b1, err := EncodeProof(p1[0])
	if err != nil {
		t.Fatal(err)
	}
	b2, err := EncodeProof(p2[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(b1) != string(b2) {
		t.Fatal("two independent proving runs produced different canonical encodings")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	hash := domain.Poseidon2{}
	proofs, pub := roundTripScenario(t, 5, 5, 1, Window, config.DefaultChallengeCount)
	pp := testPublicParams(5, Window, config.DefaultChallengeCount)

	data, err := EncodeProof(proofs[0])
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeProof(data, hash)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Sectors) != len(proofs[0].Sectors) {
		t.Fatalf("decoded sector count: got %d, want %d", len(decoded.Sectors), len(proofs[0].Sectors))
	}

	ok, err := VerifyAllPartitions(hash, pp, pub, []Proof{decoded})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("decoded proof failed verification")
	}
}

func TestVerifyRejectsTamperedPath(t *testing.T) {
	hash := domain.Poseidon2{}
	proofs, pub := roundTripScenario(t, 5, 5, 1, Window, config.DefaultChallengeCount)
	pp := testPublicParams(5, Window, config.DefaultChallengeCount)

	tamperedPath := proofs[0].Sectors[0].InclusionProofs[0].Path()
	tamperedPath[0].Siblings = []domain.Domain{domain.FromBigIntBytes([]byte("tampered"))}
	tampered := tree.NewMerkleProof(
		hash,
		proofs[0].Sectors[0].InclusionProofs[0].Root(),
		proofs[0].Sectors[0].InclusionProofs[0].Leaf(),
		tamperedPath,
	)
	proofs[0].Sectors[0].InclusionProofs[0] = tampered

	ok, err := VerifyAllPartitions(hash, pp, pub, proofs)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("verification succeeded for a tampered inclusion proof")
	}
}

func TestVerifyRejectsSwappedCommR(t *testing.T) {
	hash := domain.Poseidon2{}
	proofs, pub := roundTripScenario(t, 5, 5, 1, Window, config.DefaultChallengeCount)
	pp := testPublicParams(5, Window, config.DefaultChallengeCount)

	pub.Sectors[0].CommR, pub.Sectors[1].CommR = pub.Sectors[1].CommR, pub.Sectors[0].CommR

	ok, err := VerifyAllPartitions(hash, pp, pub, proofs)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("verification succeeded after swapping two sectors' comm_r values")
	}
}

func TestChallengePurity(t *testing.T) {
	pp := testPublicParams(5, Window, config.DefaultChallengeCount)
	randomness := domain.FromBigIntBytes([]byte("purity-randomness"))
	proverID := domain.FromBigIntBytes([]byte("purity-prover"))

	for sectorID := uint64(0); sectorID < 5; sectorID++ {
		for n := uint64(0); n < config.DefaultChallengeCount; n++ {
			leaf := GenerateLeafChallenge(pp, randomness, sectorID, n)
			if leaf >= pp.LeavesPerSector() {
				t.Fatalf("leaf challenge %d out of range [0, %d)", leaf, pp.LeavesPerSector())
			}
		}
	}

	for n := 0; n < 20; n++ {
		sectorIdx, err := GenerateSectorChallenge(randomness, proverID, n, 5)
		if err != nil {
			t.Fatal(err)
		}
		if sectorIdx >= 5 {
			t.Fatalf("sector challenge %d out of range [0, 5)", sectorIdx)
		}
	}

	if _, err := GenerateSectorChallenge(randomness, proverID, 0, 0); err == nil {
		t.Fatal("expected an error for an empty sector set")
	}
}

func TestSatisfiesRequirements(t *testing.T) {
	pp := testPublicParams(5, Window, config.DefaultChallengeCount)
	ok, err := SatisfiesRequirements(pp, ChallengeRequirements{MinimumChallengeCount: 50}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("5*10*1 = 50 should satisfy a minimum of 50")
	}

	ok, err = SatisfiesRequirements(pp, ChallengeRequirements{MinimumChallengeCount: 51}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("50 total challenges should not satisfy a minimum of 51")
	}
}
