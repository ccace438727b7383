// File: core/timer/queue.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later
//
// Deadline-ordered timer queue. Insertion is O(log n); two timers with the
// same deadline fire in insertion order. The queue itself is thread-safe so
// timers may be scheduled from outside the loop goroutine; callbacks are
// always invoked by the loop.

package timer

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// Token cancels a scheduled timer. Cancellation is idempotent and wins any
// race with an imminent deadline: a cancelled timer never fires, it is
// discarded when popped.
type Token struct {
	cancelled atomic.Bool
}

// Cancel invalidates the timer owning this token.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}

// Timer is one scheduled callback. Owned by the Queue until popped.
type Timer struct {
	deadline time.Time
	seq      uint64
	interval time.Duration // zero for one-shot
	fn       func()
	token    *Token
	index    int
}

// Deadline returns the absolute time the timer is due.
func (t *Timer) Deadline() time.Time { return t.deadline }

// Interval returns the recurrence interval, zero for one-shot timers.
func (t *Timer) Interval() time.Duration { return t.interval }

// Fn returns the callback.
func (t *Timer) Fn() func() { return t.fn }

// Token returns the cancellation token.
func (t *Timer) Token() *Token { return t.token }

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Queue is the deadline-ordered schedule.
type Queue struct {
	mu  sync.Mutex
	h   timerHeap
	seq uint64
}

// NewQueue creates an empty timer queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule inserts a callback due at deadline. A non-zero interval makes
// the timer recurring: the loop re-inserts it from the fire time via
// Reschedule. Returns the cancellation token.
func (q *Queue) Schedule(deadline time.Time, interval time.Duration, fn func()) *Token {
	t := &Timer{
		deadline: deadline,
		interval: interval,
		fn:       fn,
		token:    &Token{},
	}
	q.mu.Lock()
	q.seq++
	t.seq = q.seq
	heap.Push(&q.h, t)
	q.mu.Unlock()
	return t.token
}

// Reschedule re-inserts a popped timer with a new deadline, keeping its
// token. Used for recurring timers; a timer whose token was cancelled in
// the meantime is simply dropped at the next pop.
func (q *Queue) Reschedule(t *Timer, deadline time.Time) {
	t.deadline = deadline
	q.mu.Lock()
	q.seq++
	t.seq = q.seq
	heap.Push(&q.h, t)
	q.mu.Unlock()
}

// Next returns the earliest valid deadline, discarding cancelled timers
// that have surfaced at the head. ok is false when the queue is empty.
func (q *Queue) Next() (deadline time.Time, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.h) > 0 {
		head := q.h[0]
		if head.token.Cancelled() {
			heap.Pop(&q.h)
			continue
		}
		return head.deadline, true
	}
	return time.Time{}, false
}

// PopDue removes and returns the earliest timer with deadline <= now,
// skipping cancelled entries. ok is false when nothing is due.
func (q *Queue) PopDue(now time.Time) (t *Timer, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.h) > 0 {
		head := q.h[0]
		if head.token.Cancelled() {
			heap.Pop(&q.h)
			continue
		}
		if head.deadline.After(now) {
			return nil, false
		}
		heap.Pop(&q.h)
		return head, true
	}
	return nil, false
}

// Len reports the number of entries still held, including not yet
// discarded cancelled ones.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}
