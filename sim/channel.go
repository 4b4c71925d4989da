package sim

// A Channel is a bounded FIFO of capacity Cap. Senders suspend while the
// channel is full; receivers suspend while it is empty. Order is
// preserved: values leave in the order they were sent, even across
// multiple blocked senders.
type Channel[T any] struct {
	k        *Kernel
	capacity int
	buf      []T
	sendQ    []*blockedSend[T]
	recvQ    []*Task
	closed   bool
}

type blockedSend[T any] struct {
	task  *Task
	value T
}

// NewChannel creates a Channel with the given buffer capacity. Capacity
// must be at least 1; a capacity-1 channel is the common
// single-producer/single-consumer handoff shape used between pipeline
// stages.
func NewChannel[T any](k *Kernel, capacity int) *Channel[T] {
	if capacity < 1 {
		panic("sim: channel capacity must be at least 1")
	}

	return &Channel[T]{k: k, capacity: capacity}
}

// Cap returns the channel's buffer capacity.
func (c *Channel[T]) Cap() int {
	return c.capacity
}

// Len returns the number of buffered values.
func (c *Channel[T]) Len() int {
	return len(c.buf)
}

// CanSend reports whether Send would not need to block right now.
func (c *Channel[T]) CanSend() bool {
	return len(c.sendQ) == 0 && len(c.buf) < c.capacity
}

// Send enqueues v, suspending the calling task while the channel is full.
// Sending on a closed channel is a programming error and panics, matching
// the standard library's send-on-closed-channel behavior.
func (c *Channel[T]) Send(t *Task, v T) {
	if c.closed {
		panic("sim: send on closed channel")
	}

	if c.CanSend() {
		c.buf = append(c.buf, v)
		c.wakeOneReceiver()
		return
	}

	c.sendQ = append(c.sendQ, &blockedSend[T]{task: t, value: v})
	t.block()
}

// Recv retrieves the next value, suspending the calling task while the
// channel is empty. Recv panics if the channel is closed and drained; use
// RecvOK to detect closure without panicking.
func (c *Channel[T]) Recv(t *Task) T {
	v, ok := c.RecvOK(t)
	if !ok {
		panic("sim: receive from closed and empty channel")
	}

	return v
}

// RecvOK retrieves the next value. ok is false if the channel is closed
// and no buffered value remains, which is how a module task should detect
// that an upstream producer is done and it is time to return.
func (c *Channel[T]) RecvOK(t *Task) (T, bool) {
	for len(c.buf) == 0 {
		if c.closed {
			var zero T
			return zero, false
		}

		c.recvQ = append(c.recvQ, t)
		t.block()
	}

	v := c.buf[0]
	c.buf = c.buf[1:]

	if len(c.sendQ) > 0 {
		bs := c.sendQ[0]
		c.sendQ = c.sendQ[1:]
		c.buf = append(c.buf, bs.value)
		c.k.enqueueReady(bs.task)
	}

	return v, true
}

// Peek returns the next value without removing it, and whether one is
// available.
func (c *Channel[T]) Peek() (T, bool) {
	if len(c.buf) == 0 {
		var zero T
		return zero, false
	}

	return c.buf[0], true
}

// Close marks the channel closed. Any task currently blocked in RecvOK is
// woken to observe the closure; blocked senders, if any, are left
// (closing a channel with a pending send is a programming error).
func (c *Channel[T]) Close() {
	if c.closed {
		return
	}

	c.closed = true

	waiters := c.recvQ
	c.recvQ = nil

	for _, w := range waiters {
		c.k.enqueueReady(w)
	}
}

// Closed reports whether the channel has been closed.
func (c *Channel[T]) Closed() bool {
	return c.closed
}

func (c *Channel[T]) wakeOneReceiver() {
	if len(c.recvQ) == 0 {
		return
	}

	w := c.recvQ[0]
	c.recvQ = c.recvQ[1:]
	c.k.enqueueReady(w)
}
