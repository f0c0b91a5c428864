// Package post implements the Fallback Proof-of-Spacetime vanilla proof
// engine: deterministic challenge derivation, a single-sector vanilla
// prover, a partitioned prover with Window/Winning shape rules, and a
// verifier that rebinds comm_r to comm_c/comm_r_last.
package post

import (
	"fmt"
	"math/bits"

	"github.com/muridata/fallback-post/pkg/domain"
	"github.com/muridata/fallback-post/pkg/sector"
)

// Shape selects which PoSt proof layout is in effect.
type Shape int

const (
	// Window proves many sectors, partitioned into fixed-size chunks.
	Window Shape = iota
	// Winning proves one sector via many challenges, each modeled as its
	// own sector slot.
	Winning
)

// String implements fmt.Stringer.
func (s Shape) String() string {
	switch s {
	case Window:
		return "Window"
	case Winning:
		return "Winning"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// SetupParams configures a PoSt instance before PublicParams are derived.
// Its shape is identical to PublicParams.
type SetupParams struct {
	SectorSize     uint64
	ChallengeCount int
	SectorCount    int
	Shape          Shape
}

// PublicParams are the public, cacheable parameters of a PoSt instance.
type PublicParams struct {
	SectorSize     uint64
	ChallengeCount int
	SectorCount    int
	Shape          Shape
}

// Setup builds PublicParams from SetupParams. It performs no validation
// beyond what the type system already guarantees — partitioning and
// sector-count policy are the caller's responsibility.
func Setup(sp SetupParams) PublicParams {
	return PublicParams{
		SectorSize:     sp.SectorSize,
		ChallengeCount: sp.ChallengeCount,
		SectorCount:    sp.SectorCount,
		Shape:          sp.Shape,
	}
}

// Identifier renders the bit-exact parameter-cache key used to namespace
// circuit parameters derived from this PublicParams.
func (pp PublicParams) Identifier() string {
	return fmt.Sprintf(
		"FallbackPoSt::PublicParams{sector_size: %d, challenge_count: %d, sector_count: %d}",
		pp.SectorSize, pp.ChallengeCount, pp.SectorCount,
	)
}

// LeavesPerSector returns sector_size / NODE_SIZE. Callers must ensure
// SectorSize is a multiple of NodeSize; a non-integral ratio is not
// reported as an error here or by its callers, and is truncated by integer
// division.
func (pp PublicParams) LeavesPerSector() uint64 {
	return pp.SectorSize / domain.Size
}

// ChallengeRequirements expresses a minimum total-challenge bound across
// all partitions and sectors.
type ChallengeRequirements struct {
	MinimumChallengeCount int
}

// PublicSector is the public commitment half of a sector.
type PublicSector struct {
	ID    sector.ID
	CommR domain.Domain
}

// PublicInputs are the public inputs to prove/verify a partition set.
type PublicInputs struct {
	Randomness domain.Domain
	ProverID   domain.Domain
	Sectors    []PublicSector
	// K is the partition index; nil means partition 0.
	K *int
}

// Partition returns pub.K, defaulting to 0.
func (pi PublicInputs) Partition() int {
	if pi.K == nil {
		return 0
	}
	return *pi.K
}

// SatisfiesRequirements reports whether partitions * sector_count *
// challenge_count >= requirements.MinimumChallengeCount, checked for
// overflow since Go has no native checked-multiply operator.
func SatisfiesRequirements(pp PublicParams, req ChallengeRequirements, partitions int) (bool, error) {
	perPartition, err := checkedMul(partitions, pp.SectorCount)
	if err != nil {
		return false, fmt.Errorf("post: satisfies_requirements: %w", err)
	}
	total, err := checkedMul(perPartition, pp.ChallengeCount)
	if err != nil {
		return false, fmt.Errorf("post: satisfies_requirements: %w", err)
	}
	return total >= req.MinimumChallengeCount, nil
}

// checkedMul multiplies two non-negative ints, erroring on machine-word
// overflow (math/bits.Mul64 gives us the high word for free).
func checkedMul(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("checked_mul: negative operand (%d, %d)", a, b)
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > uint64(^uint(0)>>1) {
		return 0, fmt.Errorf("checked_mul: overflow multiplying %d * %d", a, b)
	}
	return int(lo), nil
}
