package catalog

import (
	"sync"
	"sync/atomic"
)

// Index holds the currently published Snapshot. Readers load it without
// locking; Publish swaps in a whole new snapshot.
type Index struct {
	current atomic.Pointer[Snapshot]

	publishMu   sync.Mutex
	subscribers []func(*Snapshot)
}

// NewIndex returns an Index whose current snapshot is empty, generation 0.
func NewIndex() *Index {
	idx := &Index{}
	idx.current.Store(EmptySnapshot())
	return idx
}

// Current returns the published snapshot. The result stays valid and
// unchanged for as long as the caller holds it.
func (idx *Index) Current() *Snapshot {
	return idx.current.Load()
}

// Generation returns the generation of the current snapshot.
func (idx *Index) Generation() uint64 {
	return idx.current.Load().Generation()
}

// Publish stamps s with the next generation and makes it current. The
// generation increases on every call, even when the content is unchanged.
// The stamped snapshot is returned; s itself is left untouched.
func (idx *Index) Publish(s *Snapshot) *Snapshot {
	idx.publishMu.Lock()
	defer idx.publishMu.Unlock()

	stamped := s.withGeneration(idx.current.Load().Generation() + 1)
	idx.current.Store(stamped)

	for _, fn := range idx.subscribers {
		fn(stamped)
	}
	return stamped
}

// OnPublish registers fn to run after each publish, in registration order.
// Callbacks run while publishing is serialized and must not call Publish.
func (idx *Index) OnPublish(fn func(*Snapshot)) {
	idx.publishMu.Lock()
	defer idx.publishMu.Unlock()
	idx.subscribers = append(idx.subscribers, fn)
}
