// Package eventloop implements the single-threaded cooperative scheduler
// that drives promises, timers and socket readiness on the interpreter
// thread. Tasks run FIFO; the only suspension point in the VM is Await, so
// ordering between posted tasks is otherwise deterministic.
package eventloop

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ardar-lang/ardar/internal/config"
)

// Task is one unit of work posted to the loop: a microtask (promise
// callback), a macrotask (timer fire), or an I/O readiness callback,
// identified for diagnostics the way the original EventLoop tagged queue
// entries by id.
type Task struct {
	ID string
	Fn func()
}

type timer struct {
	at    time.Time
	task  Task
	index int
}

type timerQueue []*timer

func (q timerQueue) Len() int            { return len(q) }
func (q timerQueue) Less(i, j int) bool  { return q[i].at.Before(q[j].at) }
func (q timerQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index, q[j].index = i, j }
func (q *timerQueue) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}
func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// Loop is the FIFO task queue plus a timer heap and an optional readiness
// reactor for socket I/O. It is not safe for concurrent use from more than
// one goroutine: the VM that owns it is single-threaded by design.
type Loop struct {
	microtasks []Task
	macrotasks []Task
	timers     timerQueue
	reactor    reactor
	stopped    bool
	maxPending int
}

// New creates a Loop with its readiness reactor opened (kqueue on
// darwin/bsd, epoll on linux; see reactor_*.go) and config.DefaultQueueCapacity
// as its pending-macrotask ceiling.
func New() *Loop {
	return NewWithCapacity(config.DefaultQueueCapacity)
}

// NewWithCapacity is New with an explicit macrotask queue ceiling, the knob
// cmd/ardar's flags populate via internal/config.
func NewWithCapacity(capacity int) *Loop {
	l := &Loop{maxPending: capacity}
	l.reactor = newReactor()
	return l
}

func newTaskID() string { return uuid.NewString() }

// Post enqueues fn as a macrotask, run after all currently queued
// microtasks drain. `then` schedules resolve/reject callbacks as
// microtasks; everything else — timers, socket callbacks — is a macrotask.
// Returns an error instead of enqueuing once the queue is at capacity, a
// backstop against an unbounded setTimeout/setInterval flood.
func (l *Loop) Post(fn func()) (string, error) {
	if l.maxPending > 0 && len(l.macrotasks) >= l.maxPending {
		return "", fmt.Errorf("event loop queue at capacity (%d)", l.maxPending)
	}
	id := newTaskID()
	l.macrotasks = append(l.macrotasks, Task{ID: id, Fn: fn})
	return id, nil
}

// PostMicrotask enqueues fn to run before the next macrotask, matching
// promise-callback ordering.
func (l *Loop) PostMicrotask(fn func()) {
	l.microtasks = append(l.microtasks, Task{ID: newTaskID(), Fn: fn})
}

// PostDelayed schedules fn to run no earlier than d from now, the
// `setTimeout`-style primitive a script builtin drives.
func (l *Loop) PostDelayed(d time.Duration, fn func()) string {
	id := newTaskID()
	heap.Push(&l.timers, &timer{at: time.Now().Add(d), task: Task{ID: id, Fn: fn}})
	return id
}

// AddSocket registers fd with the reactor; onReadable/onWritable fire as
// macrotasks once fd becomes ready.
func (l *Loop) AddSocket(fd int, onReadable, onWritable func()) error {
	if l.reactor == nil {
		return nil
	}
	return l.reactor.add(fd, func() { l.Post(onReadable) }, func() {
		if onWritable != nil {
			l.Post(onWritable)
		}
	})
}

// RemoveSocket unregisters fd from the reactor.
func (l *Loop) RemoveSocket(fd int) {
	if l.reactor != nil {
		l.reactor.remove(fd)
	}
}

func (l *Loop) drainMicrotasks() {
	for len(l.microtasks) > 0 {
		t := l.microtasks[0]
		l.microtasks = l.microtasks[1:]
		t.Fn()
	}
}

// dueTimers moves any timers whose deadline has passed onto the macrotask
// queue, FIFO by deadline.
func (l *Loop) dueTimers() {
	now := time.Now()
	for len(l.timers) > 0 && !l.timers[0].at.After(now) {
		t := heap.Pop(&l.timers).(*timer)
		l.macrotasks = append(l.macrotasks, t.task)
	}
}

// RunOne drains pending microtasks, then runs exactly one macrotask (timer
// fire, socket callback, or posted task), polling the reactor for readiness
// if nothing else is due. Returns false once there is no more work at all —
// the signal Await's synchronous pump (vm.await) uses to stop blocking
// without spinning forever on a promise nothing will ever settle.
func (l *Loop) RunOne() bool {
	l.drainMicrotasks()
	l.dueTimers()
	if len(l.macrotasks) == 0 {
		if l.reactor != nil && l.reactor.poll(l.nextTimeout()) {
			l.dueTimers()
		}
	}
	if len(l.macrotasks) == 0 {
		return false
	}
	t := l.macrotasks[0]
	l.macrotasks = l.macrotasks[1:]
	t.Fn()
	l.drainMicrotasks()
	return true
}

func (l *Loop) nextTimeout() time.Duration {
	if len(l.timers) == 0 {
		return 0
	}
	d := time.Until(l.timers[0].at)
	if d < 0 {
		return 0
	}
	return d
}

// Run blocks the calling goroutine, pumping tasks until the queue and
// timers are fully drained or Stop is called.
func (l *Loop) Run() {
	for !l.stopped {
		if !l.RunOne() {
			return
		}
	}
}

// Stop ends a Run loop after its current task finishes.
func (l *Loop) Stop() { l.stopped = true }
