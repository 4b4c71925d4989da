package cache_test

import (
	"math/rand"
	"testing"

	"github.com/archsim/ssdsim/cache"
	"github.com/archsim/ssdsim/config"
	"github.com/archsim/ssdsim/packet"
	"github.com/archsim/ssdsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCfg() config.Cache {
	return config.Cache{
		SizeKB:            32,
		LineSize:          64,
		Associativity:     4,
		ReplacementPolicy: config.LRU,
		WritePolicy:       config.WriteBack,
		AllocationPolicy:  config.WriteAllocate,
		HitLatencyNs:      1,
		MissLatencyNs:     5,
	}
}

// mirrors an SSD controller and a DRAM-shaped stub, exchanging one
// request/response pair at a time.
func attachStubMemory(k *sim.Kernel, c *cache.Cache) {
	k.Spawn("mem", func(t *sim.Task) {
		for {
			req, ok := c.MemOut.RecvOK(t)
			if !ok {
				c.MemIn.Close()
				return
			}

			c.MemIn.Send(t, req)
		}
	})
}

func TestColdReadThenRepeatIsHit(t *testing.T) {
	k := sim.NewKernel()
	c := cache.New(k, 1, testCfg(), rand.New(rand.NewSource(1)), nil)
	c.Start(k, "l1")
	attachStubMemory(k, c)

	var responses []packet.Packet

	k.Spawn("driver", func(task *sim.Task) {
		p1 := packet.NewGenericPacket(packet.Read, 0x40, 64)
		c.CPUIn.Send(task, p1)
		responses = append(responses, c.CPUOut.Recv(task))

		p2 := packet.NewGenericPacket(packet.Read, 0x40, 64)
		c.CPUIn.Send(task, p2)
		responses = append(responses, c.CPUOut.Recv(task))

		c.CPUIn.Close()
	})

	k.Run()

	require.Len(t, responses, 2)
	assert.Equal(t, int64(1), c.Hits())
	assert.Equal(t, int64(1), c.Misses())
}

func TestDecodeExampleGeometryColdReadIsMiss(t *testing.T) {
	k := sim.NewKernel()
	cfg := testCfg()
	cfg.SizeKB = 32 // 64B lines, 128 sets, 4-way: the geometry of the decode example
	c := cache.New(k, 1, cfg, rand.New(rand.NewSource(1)), nil)
	c.Start(k, "l1")
	attachStubMemory(k, c)

	k.Spawn("driver", func(task *sim.Task) {
		p := packet.NewGenericPacket(packet.Read, 0x1000, 64)
		c.CPUIn.Send(task, p)
		c.CPUOut.Recv(task)
		c.CPUIn.Close()
	})

	k.Run()

	assert.Equal(t, int64(1), c.Misses())
}

func TestWritebacksNeverExceedEvictions(t *testing.T) {
	k := sim.NewKernel()
	cfg := testCfg()
	cfg.Associativity = 1
	cfg.SizeKB = 1 // 16 lines, 1-way => 16 sets, all requests below collide on set 0
	c := cache.New(k, 1, cfg, rand.New(rand.NewSource(1)), nil)
	c.Start(k, "l1")
	attachStubMemory(k, c)

	addrs := []uint32{0x0000, 0x4000, 0x8000, 0xC000}

	k.Spawn("driver", func(task *sim.Task) {
		for _, a := range addrs {
			p := packet.NewGenericPacket(packet.Write, a, 64)
			c.CPUIn.Send(task, p)
			c.CPUOut.Recv(task)
		}

		c.CPUIn.Close()
	})

	k.Run()

	assert.LessOrEqual(t, c.Writebacks(), c.Evictions())
	assert.Equal(t, c.Hits()+c.Misses(), int64(len(addrs)))
}
