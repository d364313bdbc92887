package neural

import (
	"fmt"
	"math/rand"
	"sync"

	domainNeural "github.com/surak-alf/addis-trans/internal/domain/neural"
)

// ReplayBuffer is a fixed-capacity ring of transitions. Once full, each push
// overwrites the oldest entry.
type ReplayBuffer struct {
	mu       sync.Mutex
	items    []domainNeural.Transition
	capacity int
	next     int
	rng      *rand.Rand
}

// NewReplayBuffer creates a buffer with the given capacity.
func NewReplayBuffer(capacity int, rng *rand.Rand) (*ReplayBuffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be greater than zero", domainNeural.ErrInvalidConfig)
	}
	return &ReplayBuffer{
		items:    make([]domainNeural.Transition, 0, capacity),
		capacity: capacity,
		rng:      rng,
	}, nil
}

// Push stores a copy of t, evicting the oldest transition when full.
func (rb *ReplayBuffer) Push(t domainNeural.Transition) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	t = t.Clone()
	if len(rb.items) < rb.capacity {
		rb.items = append(rb.items, t)
	} else {
		rb.items[rb.next] = t
	}
	rb.next = (rb.next + 1) % rb.capacity
}

// Sample returns n distinct transitions drawn uniformly at random. Stored
// transitions are copied, never removed.
func (rb *ReplayBuffer) Sample(n int) ([]domainNeural.Transition, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if n <= 0 || len(rb.items) < n {
		return nil, fmt.Errorf("%w: requested %d, have %d", domainNeural.ErrInsufficientSamples, n, len(rb.items))
	}

	batch := make([]domainNeural.Transition, 0, n)
	indices := make(map[int]bool, n)
	for len(batch) < n {
		idx := rb.rng.Intn(len(rb.items))
		if !indices[idx] {
			indices[idx] = true
			batch = append(batch, rb.items[idx].Clone())
		}
	}
	return batch, nil
}

// Len returns the current occupancy.
func (rb *ReplayBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.items)
}

// Capacity returns the maximum occupancy.
func (rb *ReplayBuffer) Capacity() int {
	return rb.capacity
}

// Items returns copies of the stored transitions, oldest first.
func (rb *ReplayBuffer) Items() []domainNeural.Transition {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make([]domainNeural.Transition, 0, len(rb.items))
	start := 0
	if len(rb.items) == rb.capacity {
		start = rb.next
	}
	for i := 0; i < len(rb.items); i++ {
		out = append(out, rb.items[(start+i)%len(rb.items)].Clone())
	}
	return out
}

// Clear removes every transition.
func (rb *ReplayBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.items = rb.items[:0]
	rb.next = 0
}
