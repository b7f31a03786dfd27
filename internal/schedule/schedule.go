// Package schedule provides delayed task execution on a single logical thread.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending task.
type Timer interface {
	// Stop prevents the task from running. It reports whether the task was
	// still pending.
	Stop() bool
}

// Scheduler runs fn once d has elapsed.
type Scheduler interface {
	After(d time.Duration, fn func()) Timer
}

// Dispatcher schedules tasks on wall-clock time and hands them to post when
// due. post is expected to run the task on the caller's event loop, so tasks
// never run concurrently with event handling.
type Dispatcher struct {
	post func(func())
}

// NewDispatcher returns a Dispatcher delivering due tasks through post.
func NewDispatcher(post func(func())) *Dispatcher {
	return &Dispatcher{post: post}
}

type dispatchTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// After implements Scheduler.
func (d *Dispatcher) After(delay time.Duration, fn func()) Timer {
	t := &dispatchTimer{}
	t.timer = time.AfterFunc(delay, func() {
		d.post(func() {
			t.mu.Lock()
			stopped := t.stopped
			t.stopped = true
			t.mu.Unlock()
			if !stopped {
				fn()
			}
		})
	})
	return t
}

func (t *dispatchTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}

// Manual is a virtual-time Scheduler. Tasks run only from Advance.
type Manual struct {
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
}

func (t *manualTask) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewManual returns a Manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// After implements Scheduler.
func (m *Manual) After(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTask{at: m.now + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Pending returns the number of tasks that have not run or been stopped.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves virtual time forward by d, running due tasks in deadline
// order. Tasks scheduled while advancing run too if they fall due.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.now = next.at
		next.stopped = true
		next.fn()
	}
	m.now = target
	m.compact()
}

func (m *Manual) nextDue(target time.Duration) *manualTask {
	var due []*manualTask
	for _, t := range m.tasks {
		if !t.stopped && t.at <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	return due[0]
}

func (m *Manual) compact() {
	kept := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.stopped {
			kept = append(kept, t)
		}
	}
	m.tasks = kept
}
