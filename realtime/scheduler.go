package realtime

import "sync"

// Scheduler defers tasks to a later turn of the host's loop.
// ScheduleDeferred must never run the task synchronously.
type Scheduler interface {
	ScheduleDeferred(task func())
}

// Loop is a Scheduler backed by a task queue the host drains between turns.
// Tasks queued while a turn is running are left for the next turn.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop returns an empty Loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// ScheduleDeferred queues task for the next turn.
func (l *Loop) ScheduleDeferred(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	// Non-blocking: one pending wake-up is enough.
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wake returns a channel signalled whenever a task is queued.
func (l *Loop) Wake() <-chan struct{} {
	return l.wake
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Flush runs one turn: every task queued before the call. It returns the number of tasks run.
func (l *Loop) Flush() int {
	l.mu.Lock()
	tasks := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// RunUntilIdle runs turns until no task is left.
func (l *Loop) RunUntilIdle() int {
	total := 0
	for {
		n := l.Flush()
		if n == 0 {
			return total
		}
		total += n
	}
}
