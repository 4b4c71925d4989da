package trafficgen_test

import (
	"math/rand"
	"testing"

	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/archsim/ssdsim/trafficgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorEmitsExactlyNumTransactionsThenCloses(t *testing.T) {
	k := sim.NewKernel()

	cfg := config.Defaults().TrafficGen
	cfg.NumTransactions = 5
	cfg.MaxOutstanding = 0

	gen := trafficgen.New(k, 1, cfg, rand.New(rand.NewSource(1)))
	gen.Start(k, "gen")

	var received []packet.Packet

	k.Spawn("consumer", func(task *sim.Task) {
		for {
			p, ok := gen.Out.RecvOK(task)
			if !ok {
				return
			}
			received = append(received, p)
		}
	})

	k.Run()

	require.Len(t, received, 5)
	assert.Equal(t, 5, gen.Emitted())
	assert.True(t, gen.Out.Closed())
}

func TestGeneratorRespectsMaxOutstanding(t *testing.T) {
	k := sim.NewKernel()

	cfg := config.Defaults().TrafficGen
	cfg.NumTransactions = 6
	cfg.MaxOutstanding = 2
	cfg.Interval = 1

	gen := trafficgen.New(k, 1, cfg, rand.New(rand.NewSource(2)))
	gen.Start(k, "gen")

	maxObserved := 0
	completed := 0

	k.Spawn("consumer", func(task *sim.Task) {
		for {
			p, ok := gen.Out.RecvOK(task)
			if !ok {
				return
			}

			// Packets the generator has emitted and not yet seen completed.
			if outstanding := gen.Emitted() - completed; outstanding > maxObserved {
				maxObserved = outstanding
			}

			task.Wait(10 * sim.Nanosecond)
			completed++
			gen.CompletionIn.Send(task, p)
		}
	})

	k.Run()

	assert.LessOrEqual(t, maxObserved, 2)
	assert.Equal(t, 6, gen.Emitted())
}
