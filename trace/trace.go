// Package trace records the packets that cross a component boundary as
// they run, so a run can be replayed or inspected offline. A Sink is
// wired to as many channel taps as the caller wants; it never blocks the
// simulation for longer than a single buffered write.
package trace

import "github.com/archsim/ssdsim/sim"

// Record is one packet observed crossing a named port of a named module
// at a point in simulated time.
type Record struct {
	SimTime sim.Time
	Module  string
	Port    string
	Command string
	Address uint64
	Bytes   int
	Index   int32
}

// Sink accepts Records and buffers them until Flush or Close is called.
// Implementations must be safe to call from a single goroutine only: the
// simulation kernel drives every call.
type Sink interface {
	Write(Record)
	Flush()
	Close() error
}
