package inventory

import (
	"sort"
	"sync"
)

// DirtySet tracks products mutated since the last drain. Drain swaps the
// underlying set out in one step, so a mark racing a drain lands in exactly
// one of the two generations.
type DirtySet struct {
	mu  sync.Mutex
	set map[string]struct{}
}

// NewDirtySet returns an empty set.
func NewDirtySet() *DirtySet {
	return &DirtySet{set: make(map[string]struct{})}
}

// Mark flags a product as dirty.
func (d *DirtySet) Mark(productID string) {
	d.mu.Lock()
	d.set[productID] = struct{}{}
	d.mu.Unlock()
}

// Drain returns the dirty product IDs in sorted order and clears the set.
func (d *DirtySet) Drain() []string {
	d.mu.Lock()
	drained := d.set
	d.set = make(map[string]struct{}, len(drained))
	d.mu.Unlock()

	ids := make([]string, 0, len(drained))
	for id := range drained {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of pending dirty products.
func (d *DirtySet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.set)
}
