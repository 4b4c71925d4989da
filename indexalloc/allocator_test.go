package indexalloc_test

import (
	"testing"

	"github.com/archsim/ssdsim/indexalloc"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBackpressureAtMaxIndex is scenario S6: max_index=4, 10 requests
// issued, outstanding must never exceed 4, and all 10 eventually get a
// tag through reuse.
func TestBackpressureAtMaxIndex(t *testing.T) {
	k := sim.NewKernel()
	alloc := indexalloc.New(k, 4, 1, nil, nil)
	alloc.Start(k, "alloc")

	maxObserved := 0
	var forwarded []packet.Packet

	k.Spawn("producer", func(task *sim.Task) {
		for i := 0; i < 10; i++ {
			p := packet.NewGenericPacket(packet.Read, uint32(i)*64, 64)
			alloc.In.Send(task, p)
			if alloc.Outstanding() > maxObserved {
				maxObserved = alloc.Outstanding()
			}
		}
		alloc.In.Close()
	})

	k.Spawn("consumer", func(task *sim.Task) {
		for {
			p, ok := alloc.Out.RecvOK(task)
			if !ok {
				return
			}
			forwarded = append(forwarded, p)

			task.Wait(1 * sim.Nanosecond)
			alloc.ReleaseIn.Send(task, p)
		}
	})

	k.Run()

	assert.LessOrEqual(t, maxObserved, 4)
	assert.Equal(t, 10, alloc.TotalAllocated())
	require.Len(t, forwarded, 10)
	assert.Equal(t, 0, alloc.Outstanding())
}

func TestAllocateThenReleaseReturnsToEquivalentState(t *testing.T) {
	k := sim.NewKernel()
	alloc := indexalloc.New(k, 4, 1, nil, nil)
	alloc.Start(k, "alloc")

	k.Spawn("driver", func(task *sim.Task) {
		p := packet.NewGenericPacket(packet.Read, 0, 64)
		alloc.In.Send(task, p)

		task.Wait(1 * sim.Nanosecond)
		assert.Equal(t, 1, alloc.Outstanding())
		assert.Equal(t, int32(0), p.Index())

		alloc.ReleaseIn.Send(task, p)
		task.Wait(1 * sim.Nanosecond)
		assert.Equal(t, 0, alloc.Outstanding())

		p2 := packet.NewGenericPacket(packet.Read, 0, 64)
		alloc.In.Send(task, p2)
		task.Wait(1 * sim.Nanosecond)
		assert.Equal(t, int32(0), p2.Index())

		alloc.In.Close()
	})

	k.Spawn("drain", func(task *sim.Task) {
		for {
			_, ok := alloc.Out.RecvOK(task)
			if !ok {
				return
			}
		}
	})

	k.Run()
}
