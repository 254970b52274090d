// Package covmap tracks the accumulated coverage bitmap and decides whether
// a per-input bitmap is interesting.
package covmap

import (
	"fmt"
	"os"
	"sync"

	"github.com/Tricker-z/CoFuzz/internal/constants"
)

// Map is the accumulated coverage bitmap: one bit set to 1 per edge/bucket
// hit so far, across every seed processed this run.
type Map struct {
	mu   sync.Mutex
	bits []byte
}

// Load reads the fuzzer's fuzz_bitmap file and stores its bytewise
// complement (the fuzzer convention is 0 = hit, so the accumulated map
// inverts it to 1 = hit).
func Load(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bitmap %s: %w", path, err)
	}
	if len(raw) != constants.MapSize {
		return nil, fmt.Errorf("bitmap %s has size %d, want %d", path, len(raw), constants.MapSize)
	}

	bits := make([]byte, constants.MapSize)
	for i, b := range raw {
		bits[i] = ^b
	}
	return &Map{bits: bits}, nil
}

// Update re-reads the fuzzer's bitmap file and bitwise-ORs the complemented
// bytes into the accumulated map, incorporating coverage the external
// fuzzer found in parallel.
func (m *Map) Update(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bitmap %s: %w", path, err)
	}
	if len(raw) != constants.MapSize {
		return fmt.Errorf("bitmap %s has size %d, want %d", path, len(raw), constants.MapSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range raw {
		m.bits[i] |= ^b
	}
	return nil
}

// IsInteresting ORs a raw per-input bitmap (1 = hit) into the accumulated
// map and returns the number of bytes that changed as a result. The merge
// is committed atomically with the decision: a subsequent call with the
// same bitmap always returns 0.
func (m *Map) IsInteresting(perInput []byte) (int, error) {
	if len(perInput) != constants.MapSize {
		return 0, fmt.Errorf("per-input bitmap has size %d, want %d", len(perInput), constants.MapSize)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delta := 0
	for i, b := range perInput {
		merged := m.bits[i] | b
		if merged != m.bits[i] {
			delta++
		}
		m.bits[i] = merged
	}
	return delta, nil
}

// Snapshot returns a copy of the accumulated bitmap.
func (m *Map) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.bits))
	copy(out, m.bits)
	return out
}
