package sim

// A Task is a cooperatively scheduled unit of work. Every module in this
// simulator runs its main loop as a Task: it executes uninterrupted until
// it reaches a suspension point (Wait, a Channel Send/Recv, or an Event
// Wait), at which point it hands control back to the owning Kernel.
//
// Task methods are only safe to call from the goroutine that is currently
// holding the kernel's baton, i.e. from inside the function passed to
// Kernel.Spawn while it is running. Akita's engine drives components
// through single Handle(Event) callbacks fired by a heap-ordered event
// loop; this Task type gives module code the equivalent guarantee -
// "only one thing touches shared state at a time" - while still letting a
// module be written as a plain sequential loop with blocking calls,
// matching the wait/send/recv suspension model this simulator specifies.
type Task struct {
	k       *Kernel
	resume  chan struct{}
	yielded chan struct{}
	done    bool
	name    string
}

// Name identifies the task, primarily for panics and trace records.
func (t *Task) Name() string {
	return t.name
}

// Now returns the kernel's current simulated time. It is a convenience
// wrapper so module code holding a *Task does not also need to thread a
// *Kernel through every call.
func (t *Task) Now() Time {
	return t.k.Now()
}

// Wait suspends the task until d has elapsed in simulated time.
func (t *Task) Wait(d Duration) {
	if d < 0 {
		panic("sim: Wait called with a negative duration")
	}

	wake := t.k.now.Add(d)
	t.k.scheduleWake(t, wake)
	t.block()
}

// block hands control back to the kernel and parks the calling goroutine
// until the kernel resumes it.
func (t *Task) block() {
	t.yielded <- struct{}{}
	<-t.resume
}

// finish is called once the task's function returns.
func (t *Task) finish() {
	t.done = true
	t.yielded <- struct{}{}
}
