package post

import (
	"sync"

	"github.com/muridata/fallback-post/pkg/sector"
)

// faultSet is the ordered-set accumulator behind ProveAllPartitions: the
// sorted, deduplicated set of sectors that failed validation must surface
// in ascending id order. It is guarded by a mutex so it may be shared
// across goroutines; proveChunk adds to it only after a sector's
// challenge workers have finished.
//
// No library in this module's dependency graph offers an ordered-set
// container, so this is plain stdlib (map + sort.Slice at drain time).
// See DESIGN.md for the reasoning.
type faultSet struct {
	mu  sync.Mutex
	ids map[sector.ID]struct{}
}

func newFaultSet() *faultSet {
	return &faultSet{ids: make(map[sector.ID]struct{})}
}

func (f *faultSet) add(id sector.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[id] = struct{}{}
}

func (f *faultSet) empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ids) == 0
}

// sorted returns the set's ids in ascending order, leaving the set as it is.
func (f *faultSet) sorted() []sector.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sector.ID, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	return sector.SortedUnique(out)
}
