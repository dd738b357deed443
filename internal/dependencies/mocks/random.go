package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lolPants/NorthstarMasterServer/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Queued values are returned first; once the queue is empty it falls back to
// a deterministic counter so every call still yields a distinct value.
type MockRandom struct {
	mu        sync.Mutex
	hexQueue  []string
	hexIndex  int
	fallbackN int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Hex returns the next queued value, or a counter-derived hex string of
// length 2n
func (r *MockRandom) Hex(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hexIndex < len(r.hexQueue) {
		result := r.hexQueue[r.hexIndex]
		r.hexIndex++
		return result
	}
	r.fallbackN++
	s := fmt.Sprintf("%x", r.fallbackN)
	if len(s) >= 2*n {
		return s[len(s)-2*n:]
	}
	return strings.Repeat("0", 2*n-len(s)) + s
}

// QueueHex adds values to the Hex result queue
func (r *MockRandom) QueueHex(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hexQueue = append(r.hexQueue, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hexQueue = nil
	r.hexIndex = 0
	r.fallbackN = 0
}
