package sim

import "container/heap"

// A Kernel owns simulated time and schedules Tasks. It is not safe for
// concurrent use from multiple goroutines: by construction only the
// goroutine holding the baton (the kernel loop itself, or the single Task
// it just resumed) ever touches kernel state, so no locking is needed.
type Kernel struct {
	now  Time
	seq  uint64
	heap wakeHeap

	ready []*Task

	liveTasks int

	idleHandlers []func(now Time)
}

// NewKernel creates a Kernel with simulated time starting at zero.
func NewKernel() *Kernel {
	k := &Kernel{}
	heap.Init(&k.heap)
	return k
}

// Now returns the kernel's current simulated time.
func (k *Kernel) Now() Time {
	return k.now
}

// Spawn registers a task and schedules it to run at the current time. The
// task does not start running until the kernel's run loop reaches it, even
// if Spawn is called from inside another running task.
func (k *Kernel) Spawn(name string, fn func(t *Task)) *Task {
	t := &Task{
		k:       k,
		resume:  make(chan struct{}),
		yielded: make(chan struct{}),
		name:    name,
	}

	k.liveTasks++

	go func() {
		<-t.resume
		fn(t)
		t.finish()
	}()

	k.ready = append(k.ready, t)

	return t
}

// RegisterIdleHandler registers a callback invoked with the final time
// once Run or RunUntil finds no more work to do. Statistics snapshots are
// meant to be taken from such a handler, or after Run returns.
func (k *Kernel) RegisterIdleHandler(fn func(now Time)) {
	k.idleHandlers = append(k.idleHandlers, fn)
}

// Run advances the simulation until no task can make further progress.
func (k *Kernel) Run() {
	k.RunUntil(Time(1<<63 - 1))
}

// RunUntil advances the simulation until either end is reached or no task
// can make further progress, whichever comes first. Same-time events are
// always driven to a fixpoint (the ready queue drains) before the kernel
// consults the wake heap and lets time advance; among wakes scheduled for
// the same time, tasks run in the order they were scheduled.
func (k *Kernel) RunUntil(end Time) {
	for {
		if len(k.ready) == 0 {
			if k.heap.Len() == 0 {
				k.notifyIdle()
				return
			}

			next := k.heap[0]
			if next.time > end {
				k.now = end
				k.notifyIdle()
				return
			}

			k.drainWakesAt(next.time)
		}

		t := k.ready[0]
		k.ready = k.ready[1:]

		if t.done {
			continue
		}

		t.resume <- struct{}{}
		<-t.yielded

		if t.done {
			k.liveTasks--
		}
	}
}

// drainWakesAt pops every wake entry scheduled for the earliest pending
// time and moves the corresponding tasks into the ready queue, advancing
// now to that time.
func (k *Kernel) drainWakesAt(t Time) {
	k.now = t

	for k.heap.Len() > 0 && k.heap[0].time == t {
		entry := heap.Pop(&k.heap).(*wakeEntry)
		k.ready = append(k.ready, entry.task)
	}
}

func (k *Kernel) notifyIdle() {
	for _, h := range k.idleHandlers {
		h(k.now)
	}
}

// scheduleWake arranges for t to be added to the ready queue once the
// kernel's clock reaches when.
func (k *Kernel) scheduleWake(t *Task, when Time) {
	k.seq++
	heap.Push(&k.heap, &wakeEntry{time: when, seq: k.seq, task: t})
}

// enqueueReady makes t runnable at the current simulated time, appended
// after any task already waiting to run this instant.
func (k *Kernel) enqueueReady(t *Task) {
	k.ready = append(k.ready, t)
}

type wakeEntry struct {
	time Time
	seq  uint64
	task *Task
}

// wakeHeap orders pending wakes by time, breaking ties by scheduling
// order so replays with identical registration order are deterministic.
type wakeHeap []*wakeEntry

func (h wakeHeap) Len() int { return len(h) }

func (h wakeHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}

	return h[i].seq < h[j].seq
}

func (h wakeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *wakeHeap) Push(x interface{}) {
	*h = append(*h, x.(*wakeEntry))
}

func (h *wakeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return entry
}
