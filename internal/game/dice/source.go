package dice

import (
	crand "crypto/rand"
	"math/rand/v2"
	"sync"
)

// cryptoSource is a Source backed by a ChaCha8 stream keyed from crypto/rand.
type cryptoSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCryptoSource returns a Source for live battles. Each source is keyed
// independently so two sessions never share a stream.
//
// Panics with "dice: crypto/rand failure: <err>" if the key cannot be read.
func NewCryptoSource() Source {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return &cryptoSource{rng: rand.New(rand.NewChaCha8(key))}
}

// Intn returns a random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.IntN(n)
}
