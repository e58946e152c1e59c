package core

import "sync"

// VisitedSet is the ledger of resource identifiers retrieved during a run.
// Membership is keyed by the normalized link, so trailing-slash variants of a
// visited URL count as repeats; the raw form is kept for the reminder list.
// The ledger only grows: an identifier, once added, is never removed or
// retried automatically, even when its fetch later fails. Reset starts a new
// run.
type VisitedSet struct {
	mu    sync.Mutex
	order []string
	seen  map[string]bool
}

// NewVisitedSet creates an empty ledger.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: map[string]bool{}}
}

// Reset clears the ledger for a new run.
func (v *VisitedSet) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.order = nil
	v.seen = map[string]bool{}
}

// MarkAll records ids as visited in one atomic step and partitions them into
// identifiers that were new and ones already present. Marking happens before
// any fetch is launched, which is what prevents two dispatches from both
// deciding the same identifier is new.
func (v *VisitedSet) MarkAll(ids []string) (fresh, repeated []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		key := NormalizeLink(id)
		if v.seen[key] {
			repeated = append(repeated, id)
			continue
		}
		v.seen[key] = true
		v.order = append(v.order, id)
		fresh = append(fresh, id)
	}
	return fresh, repeated
}

// Contains reports whether id has been visited, under link normalization.
func (v *VisitedSet) Contains(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seen[NormalizeLink(id)]
}

// List returns the visited identifiers in insertion order.
func (v *VisitedSet) List() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Len returns the number of visited identifiers.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.order)
}
