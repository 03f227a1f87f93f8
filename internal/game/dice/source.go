package dice

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// cryptoSource implements Source using crypto/rand.
type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
//
// Postcondition: Every value returned by Intn is in [0, n).
func NewCryptoSource() Source {
	return &cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics with "dice: Intn called with n <= 0" if n <= 0.
func (c *cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// fixedSource replays a fixed sequence of values, cycling when exhausted.
type fixedSource struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewFixedSource returns a Source that yields values in order, wrapping
// around at the end. Each value is reduced modulo n. It forces dice faces for
// debugging and tests.
//
// Precondition: len(values) > 0.
func NewFixedSource(values ...int) Source {
	if len(values) == 0 {
		panic("dice: NewFixedSource requires at least one value")
	}
	return &fixedSource{values: values}
}

func (f *fixedSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.values[f.next%len(f.values)]
	f.next++
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
