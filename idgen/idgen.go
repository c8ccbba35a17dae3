// Package idgen allocates process-unique identifiers for requests and
// wrapped objects.
//
// Two regimes: while a counter has headroom below
// safeLimit, return and increment it (cheap, monotone, easy to read in a
// debugger); once headroom drops under 1000, switch permanently to
// cryptographically random 128-bit ids so the counter never wraps.
package idgen

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// safeLimit mirrors JavaScript's Number.MAX_SAFE_INTEGER (2^53 - 1). The Go
// runtime has no such ceiling, but the reference protocol's ids must stay
// interoperable with peers that do, so the allocator switches regimes at
// the same threshold rather than at uint64's much larger range.
const safeLimit uint64 = (1 << 53) - 1

// threshold is the point at which Next switches to random ids.
const threshold = safeLimit - 1000

// Allocator hands out fresh ids. The zero value is not usable; use New.
// An Allocator is safe for concurrent use and re-entrant: Next never
// blocks on anything but its own mutex, so a handler may call Next from
// within a callback invoked during another Next call.
type Allocator struct {
	mu      sync.Mutex
	counter uint64
}

// New returns a fresh Allocator starting its counter at zero.
func New() *Allocator {
	return &Allocator{}
}

// newAtCounter seeds an Allocator's counter directly; used by tests to
// exercise the regime switch without allocating 2^53 ids.
func newAtCounter(n uint64) *Allocator {
	return &Allocator{counter: n}
}

// Next returns a new, never-before-returned identifier from this
// allocator.
func (a *Allocator) Next() string {
	a.mu.Lock()
	if a.counter < threshold {
		a.counter++
		n := a.counter
		a.mu.Unlock()
		return strconv.FormatUint(n, 10)
	}
	a.mu.Unlock()

	// Past the threshold: never touch the counter again, so concurrent
	// callers that raced into this branch all get distinct random ids
	// instead of contending on an already-exhausted counter.
	return uuid.New().String()
}
