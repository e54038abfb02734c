// Package lockpool implements a fixed-size striped mutex pool keyed by
// an arbitrary string identifier. It gives per-identifier locking (as
// required by the Metadata Store and Comparison Result Store) without
// growing an unbounded map of mutexes: the identifier
// is hashed onto one of a small number of stripes.
package lockpool

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Pool is a striped set of mutexes. The zero value is not usable; use New.
type Pool struct {
	stripes []sync.Mutex
	mask    uint64
}

// New creates a Pool with the given number of stripes, rounded up to the
// next power of two (so the hash can be masked instead of modded).
func New(stripes int) *Pool {
	if stripes <= 0 {
		stripes = 64
	}
	n := 1
	for n < stripes {
		n <<= 1
	}
	return &Pool{
		stripes: make([]sync.Mutex, n),
		mask:    uint64(n - 1),
	}
}

func (p *Pool) stripeFor(key string) *sync.Mutex {
	h := xxhash.Sum64String(key)
	return &p.stripes[h&p.mask]
}

// Lock acquires the stripe guarding key. Two different keys may map to the
// same stripe (a benign false conflict), but a given key always maps to
// the same stripe, so read-modify-write sequences against one identifier
// are always mutually exclusive.
func (p *Pool) Lock(key string) {
	p.stripeFor(key).Lock()
}

// Unlock releases the stripe guarding key.
func (p *Pool) Unlock(key string) {
	p.stripeFor(key).Unlock()
}

// With runs fn while holding the stripe for key.
func (p *Pool) With(key string, fn func() error) error {
	p.Lock(key)
	defer p.Unlock(key)
	return fn()
}
