// Package clock supplies the ClockSource the operation engine consumes: a
// source of fresh monotonically non-decreasing timestamps, and a way to fold
// in timestamps observed from remote ids.
//
// LogicalClock is grounded on the teacher's own atomically-guarded counter
// (backend/peer/impl/utils.go's LogicalClock, with its Increment/GetStep and
// SetMaxID/GetMaxID pairs) generalized from a step counter into a timestamp
// generator.
package clock

import (
	"sync/atomic"

	"weavecore/atomid"
)

// Source is the ClockSource interface the operation engine consumes.
type Source interface {
	// NewTimestamp returns a fresh, monotonically non-decreasing encoded
	// timestamp.
	NewTimestamp() string
	// CheckTimestamp advances the source's high-water mark to at least ts.
	CheckTimestamp(ts string)
}

// LogicalClock is a Source backed by an atomically-guarded counter, one per
// replica.
type LogicalClock struct {
	counter uint64 // atomic
}

// New returns a LogicalClock starting below any real timestamp it will hand
// out.
func New() *LogicalClock {
	return &LogicalClock{}
}

// NewTimestamp implements Source.
func (c *LogicalClock) NewTimestamp() string {
	n := atomic.AddUint64(&c.counter, 1)
	return atomid.EncodeTimestamp(n)
}

// CheckTimestamp implements Source. Malformed timestamps are ignored: the
// caller already validated the atom id it came from.
func (c *LogicalClock) CheckTimestamp(ts string) {
	n, err := atomid.DecodeTimestamp(ts)
	if err != nil {
		return
	}
	for {
		cur := atomic.LoadUint64(&c.counter)
		if n <= cur {
			return
		}
		if atomic.CompareAndSwapUint64(&c.counter, cur, n) {
			return
		}
	}
}

// Step returns the current high-water mark, for tests and diagnostics.
func (c *LogicalClock) Step() uint64 {
	return atomic.LoadUint64(&c.counter)
}
