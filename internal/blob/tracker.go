package blob

import "sync"

// Tracker reference-counts the transient display handles the UI holds on
// blobs. A blob marked orphaned (its owning record was deleted) is removed
// from disk as soon as its last lease is released, or immediately if no
// lease is outstanding. The "now playing" cover is a dedicated slot whose
// lifetime differs from list-view handles.
type Tracker struct {
	store *Store

	mu       sync.Mutex
	leases   map[string]int
	orphaned map[string]bool
	current  *Handle
}

// Handle is a revocable lease on a blob. Release is idempotent.
type Handle struct {
	Ref string

	tracker  *Tracker
	released bool
}

func NewTracker(store *Store) *Tracker {
	return &Tracker{
		store:    store,
		leases:   make(map[string]int),
		orphaned: make(map[string]bool),
	}
}

// Acquire takes a lease on ref. Acquiring an orphaned or unknown ref still
// returns a handle; reads through it simply find no data.
func (t *Tracker) Acquire(ref string) *Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leases[ref]++
	return &Handle{Ref: ref, tracker: t}
}

// Release gives the lease back. The last release of an orphaned blob
// deletes its file.
func (t *Tracker) Release(h *Handle) {
	if h == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if h.released {
		return
	}
	h.released = true

	t.leases[h.Ref]--
	if t.leases[h.Ref] > 0 {
		return
	}
	delete(t.leases, h.Ref)
	if t.orphaned[h.Ref] {
		delete(t.orphaned, h.Ref)
		t.store.Remove(h.Ref)
	}
}

// ReleaseAll releases a batch of list-view handles, e.g. when the panel
// that rendered them closes.
func (t *Tracker) ReleaseAll(handles []*Handle) {
	for _, h := range handles {
		t.Release(h)
	}
}

// SetCurrent swaps the "now playing" cover lease: the previous current
// handle is released and a lease on ref is taken. An empty ref just clears
// the slot.
func (t *Tracker) SetCurrent(ref string) {
	t.mu.Lock()
	prev := t.current
	t.current = nil
	t.mu.Unlock()

	t.Release(prev)

	if ref == "" {
		return
	}
	h := t.Acquire(ref)
	t.mu.Lock()
	t.current = h
	t.mu.Unlock()
}

// MarkOrphaned flags a ref whose owning record is gone. With no
// outstanding lease the file is removed immediately; otherwise removal is
// deferred to the last Release.
func (t *Tracker) MarkOrphaned(ref string) {
	if ref == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.leases[ref] > 0 {
		t.orphaned[ref] = true
		return
	}
	t.store.Remove(ref)
}

// LeaseCount reports outstanding leases on ref.
func (t *Tracker) LeaseCount(ref string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leases[ref]
}
