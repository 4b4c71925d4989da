package sim_test

import (
	"testing"

	"github.com/archsim/ssdsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitAdvancesTime(t *testing.T) {
	k := sim.NewKernel()

	var observed sim.Time

	k.Spawn("waiter", func(task *sim.Task) {
		task.Wait(50 * sim.Nanosecond)
		observed = k.Now()
	})

	k.Run()

	assert.Equal(t, sim.Time(50*sim.Nanosecond), observed)
}

func TestChannelPreservesFIFOOrder(t *testing.T) {
	k := sim.NewKernel()
	ch := sim.NewChannel[int](k, 1)

	var received []int

	k.Spawn("producer", func(task *sim.Task) {
		for i := 0; i < 5; i++ {
			ch.Send(task, i)
			task.Wait(1 * sim.Nanosecond)
		}
		ch.Close()
	})

	k.Spawn("consumer", func(task *sim.Task) {
		for {
			v, ok := ch.RecvOK(task)
			if !ok {
				return
			}
			received = append(received, v)
		}
	})

	k.Run()

	require.Equal(t, []int{0, 1, 2, 3, 4}, received)
}

func TestChannelBlocksSenderWhenFull(t *testing.T) {
	k := sim.NewKernel()
	ch := sim.NewChannel[int](k, 2)

	assert.True(t, ch.CanSend())

	k.Spawn("filler", func(task *sim.Task) {
		ch.Send(task, 1)
		ch.Send(task, 2)
		assert.False(t, ch.CanSend())
		ch.Send(task, 3) // blocks until the consumer drains one slot
	})

	drained := false

	k.Spawn("drain-later", func(task *sim.Task) {
		task.Wait(10 * sim.Nanosecond)
		v, ok := ch.RecvOK(task)
		require.True(t, ok)
		assert.Equal(t, 1, v)
		drained = true
	})

	k.Run()

	assert.True(t, drained)
	assert.Equal(t, 2, ch.Len())
}

func TestEventNotifyWakesAllWaitersAtSameTime(t *testing.T) {
	k := sim.NewKernel()
	ev := sim.NewEvent(k)

	woken := 0

	for i := 0; i < 3; i++ {
		k.Spawn("waiter", func(task *sim.Task) {
			ev.Wait(task)
			woken++
		})
	}

	k.Spawn("notifier", func(task *sim.Task) {
		task.Wait(5 * sim.Nanosecond)
		ev.Notify()
	})

	k.Run()

	assert.Equal(t, 3, woken)
}

func TestRunUntilStopsAtBoundary(t *testing.T) {
	k := sim.NewKernel()

	ticks := 0

	k.Spawn("ticker", func(task *sim.Task) {
		for {
			task.Wait(10 * sim.Nanosecond)
			ticks++
		}
	})

	k.RunUntil(sim.Time(35 * sim.Nanosecond))

	assert.Equal(t, 3, ticks)
	assert.Equal(t, sim.Time(35*sim.Nanosecond), k.Now())
}

func TestDeterministicReplay(t *testing.T) {
	run := func() []sim.Time {
		k := sim.NewKernel()
		var order []sim.Time

		for i := 0; i < 4; i++ {
			delay := sim.Duration(i%2) * sim.Nanosecond
			k.Spawn("t", func(task *sim.Task) {
				task.Wait(delay)
				order = append(order, k.Now())
			})
		}

		k.Run()
		return order
	}

	first := run()
	second := run()

	assert.Equal(t, first, second)
}
