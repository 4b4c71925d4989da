// Package sim provides the discrete-event kernel that every simulator
// module runs on: a cooperative scheduler, a generic bounded channel, and
// a broadcast event primitive. Exactly one goroutine is ever runnable at a
// time, so module code never needs to guard its own state with a lock.
package sim

import "fmt"

// Time is a monotonically non-decreasing simulated timestamp, expressed in
// picoseconds. Zero is the start of the simulation.
type Time int64

// Duration is a span of simulated time, in picoseconds.
type Duration int64

// Common picosecond-scale unit constants.
const (
	Picosecond Duration = 1
	Nanosecond          = 1000 * Picosecond
	Microsecond         = 1000 * Nanosecond
	Millisecond         = 1000 * Microsecond
	Second              = 1000 * Millisecond
)

// Add returns the time reached after waiting d from t.
func (t Time) Add(d Duration) Time {
	return t + Time(d)
}

// Sub returns the duration between t and earlier.
func (t Time) Sub(earlier Time) Duration {
	return Duration(t - earlier)
}

func (t Time) String() string {
	return fmt.Sprintf("%dps", int64(t))
}

func (d Duration) String() string {
	return fmt.Sprintf("%dps", int64(d))
}
