package post

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muridata/fallback-post/pkg/sector"
)

// Sentinel errors for precondition violations and
// contract violations (kind 2). Callers can match them with errors.Is.
var (
	ErrSectorCountMismatch = errors.New("post: inconsistent number of public/private sectors")
	ErrEmptySectorSet      = errors.New("post: empty sector set")
	ErrTooManySectors      = errors.New("post: more sectors than partitions*sector_count can hold")
	ErrWinningShape        = errors.New("post: winning shape assumption violated")
	ErrVanillaMultiSector  = errors.New("post: vanilla_proof requires exactly one private sector")
	ErrInvalidVanillaProof = errors.New("post: freshly generated vanilla proof failed self-validation")
	ErrMalformedProof      = errors.New("post: malformed partition proof")
)

// FaultySectorsError reports the sorted, deduplicated set of sectors that
// failed validation during prove_all_partitions. It is a
// domain-level outcome, not an implementation bug: a bad tree response, a
// root mismatch, or a comm_r binding failure all collapse into this one
// error shape so the caller can submit a fault declaration.
type FaultySectorsError struct {
	Sectors []sector.ID
}

func (e *FaultySectorsError) Error() string {
	ids := make([]string, len(e.Sectors))
	for i, id := range e.Sectors {
		ids[i] = fmt.Sprintf("%d", uint64(id))
	}
	return fmt.Sprintf("post: faulty sectors: [%s]", strings.Join(ids, ", "))
}
