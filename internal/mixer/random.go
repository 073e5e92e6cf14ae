package mixer

import (
	"math/rand/v2"
	"sync"
)

// lockedSource serializes access to a rand.Source so one generator can be
// shared by concurrent requests.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// NewLockedRand returns a goroutine-safe generator seeded with seed.
func NewLockedRand(seed uint64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)})
}

// NewRand returns a goroutine-safe generator with a random seed.
func NewRand() *rand.Rand {
	return NewLockedRand(rand.Uint64())
}
