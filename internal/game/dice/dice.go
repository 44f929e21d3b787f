// Package dice provides the randomness seam for battle resolution: every random
// draw the engine makes goes through a Source so that turns can be recorded and
// replayed exactly.
package dice

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source is the randomness provider for battle resolution.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// seededSource is a deterministic Source backed by a PCG generator.
type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a deterministic Source. Two sources built from the
// same seed produce the same sequence.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewSeededSource(seed uint64) Source {
	return &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Intn returns the next draw in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" otherwise.
func (s *seededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Recorder wraps a Source and keeps every value it hands out, in order.
type Recorder struct {
	src   Source
	mu    sync.Mutex
	draws []int
}

// NewRecorder wraps src.
//
// Precondition: src must be non-nil.
func NewRecorder(src Source) *Recorder {
	return &Recorder{src: src}
}

// Intn draws from the wrapped Source and records the result.
func (r *Recorder) Intn(n int) int {
	v := r.src.Intn(n)
	r.mu.Lock()
	r.draws = append(r.draws, v)
	r.mu.Unlock()
	return v
}

// Draws returns a copy of the recorded values.
func (r *Recorder) Draws() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.draws))
	copy(out, r.draws)
	return out
}

// ErrReplayExhausted is the panic value raised when a Replay runs out of draws.
var ErrReplayExhausted = fmt.Errorf("dice: replay exhausted")

// Replay is a Source that returns a previously recorded sequence.
type Replay struct {
	mu    sync.Mutex
	draws []int
	pos   int
}

// NewReplay returns a Source that yields draws in order.
func NewReplay(draws []int) *Replay {
	cp := make([]int, len(draws))
	copy(cp, draws)
	return &Replay{draws: cp}
}

// Intn returns the next recorded draw.
//
// Precondition: n > 0 and the recorded draw is in [0, n).
// Panics with ErrReplayExhausted when no draws remain, and with a descriptive
// message when the recorded value does not fit the requested range; both mean
// the replay diverged from the recording.
func (r *Replay) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.draws) {
		panic(ErrReplayExhausted)
	}
	v := r.draws[r.pos]
	if v < 0 || v >= n {
		panic(fmt.Sprintf("dice: replay draw %d at position %d out of range [0, %d)", v, r.pos, n))
	}
	r.pos++
	return v
}

// Remaining reports how many recorded draws have not been consumed.
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.draws) - r.pos
}
