package client

import (
	"math/rand"
	"time"
)

const (
	// maxBackoff caps the exponential base, in seconds.
	maxBackoff = 30
	// maxFixedBackoff bounds the fixed-mode sleep, in seconds.
	maxFixedBackoff = 3.0
)

// Backoff produces a lazy sequence of jittered sleep durations. Fixed
// mode yields uniform values in [0, 3s); exponential mode yields
// 0.5b + 0.5b·U(0,1) with b growing by one per draw up to 30.
type Backoff struct {
	fixed bool
	b     float64
	rnd   *rand.Rand
}

// NewBackoff returns a fresh generator in the given mode. A fresh
// generator replaces the current one after every successful acquisition.
func NewBackoff(fixed bool) *Backoff {
	return &Backoff{
		fixed: fixed,
		b:     1,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next draws the next sleep duration.
func (b *Backoff) Next() time.Duration {
	if b.fixed {
		return time.Duration(b.rnd.Float64() * maxFixedBackoff * float64(time.Second))
	}

	t := 0.5*b.b + 0.5*b.b*b.rnd.Float64()
	b.b = min(b.b+1, maxBackoff)
	return time.Duration(t * float64(time.Second))
}
