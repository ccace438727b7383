// File: loop/loop.go
// Author: Brian Yi ZHANG <brianlions at gmail dot com>
// License: GPL-3.0-or-later

package loop

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/brianlions/nebula/api"
	"github.com/brianlions/nebula/core/backend"
	"github.com/brianlions/nebula/core/timer"
)

// registration binds a descriptor to its handler inside the loop. The
// removed flag tombstones an entry whose unregistration is buffered until
// the current dispatch pass completes, so later events in the same batch
// are dropped instead of reaching a dead handler.
type registration struct {
	d        api.Descriptor
	h        api.Handler
	interest api.EventMask
	deadline *timer.Token
	removed  bool
}

// EventLoop drives one backend, the handler registry and the timer queue
// from a single goroutine. All methods except Stop, Submit, SetDeadline
// and the Schedule family must be called on the loop goroutine, or
// before Run.
type EventLoop struct {
	backend   api.Backend
	log       api.Logger
	faultHook FaultHook
	maxIdle   time.Duration

	// regMu guards registry insert/delete and per-entry tombstone and
	// deadline state. The loop goroutine is the only writer besides
	// SetDeadline, so its own plain reads stay lock-free.
	regMu    sync.Mutex
	registry map[int]*registration
	timers   *timer.Queue
	wake     *waker
	events   []api.Event

	// pending holds registry mutations requested while a dispatch pass is
	// iterating the readiness batch.
	inDispatch bool
	pending    []func()

	submitMu sync.Mutex
	submitQ  *queue.Queue

	running atomic.Bool
	stopReq atomic.Bool
}

// New constructs an event loop. Unless WithBackend is given, the backend
// variant is chosen by capability probing, most capable first.
func New(opts ...Option) (*EventLoop, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	b := cfg.backend
	if b == nil {
		var err error
		b, err = backend.New(cfg.kind)
		if err != nil {
			return nil, err
		}
	}
	w, err := newWaker()
	if err != nil {
		b.Close()
		return nil, err
	}
	if err := b.Register(w.readFD(), api.EventRead); err != nil {
		w.close()
		b.Close()
		return nil, fmt.Errorf("register wake descriptor: %w", err)
	}
	return &EventLoop{
		backend:   b,
		log:       cfg.logger,
		faultHook: cfg.faultHook,
		maxIdle:   cfg.maxIdle,
		registry:  make(map[int]*registration),
		timers:    timer.NewQueue(),
		wake:      w,
		events:    make([]api.Event, cfg.batchSize),
		submitQ:   queue.New(),
	}, nil
}

// Backend exposes the multiplexing backend, mainly for introspection.
func (l *EventLoop) Backend() api.Backend { return l.backend }

// Len reports the number of registered descriptors.
func (l *EventLoop) Len() int {
	n := 0
	for _, ent := range l.registry {
		if !ent.removed {
			n++
		}
	}
	return n
}

// Running reports whether Run is currently executing.
func (l *EventLoop) Running() bool { return l.running.Load() }

// Register adds a descriptor to the loop using the descriptor's current
// interest mask. Registering an fd that is already present fails with
// ErrAlreadyRegistered; the existing registration is left untouched.
// When called from inside a handler the backend update is buffered until
// the dispatch pass completes.
func (l *EventLoop) Register(d api.Descriptor, h api.Handler) error {
	if d == nil || d.FD() < 0 {
		return fmt.Errorf("register: invalid descriptor")
	}
	if d.State() != api.StateOpen {
		return fmt.Errorf("register fd %d: %w", d.FD(), api.ErrClosed)
	}
	fd := d.FD()
	if ent, ok := l.registry[fd]; ok && !ent.removed {
		return fmt.Errorf("register fd %d: %w", fd, api.ErrAlreadyRegistered)
	}
	if l.inDispatch {
		l.pending = append(l.pending, func() {
			if err := l.applyRegister(fd, d, h); err != nil {
				l.fault(Fault{Code: api.ErrCodeDescriptorFault, FD: fd, Err: err})
			}
		})
		return nil
	}
	return l.applyRegister(fd, d, h)
}

func (l *EventLoop) applyRegister(fd int, d api.Descriptor, h api.Handler) error {
	if ent, ok := l.registry[fd]; ok && !ent.removed {
		return fmt.Errorf("register fd %d: %w", fd, api.ErrAlreadyRegistered)
	}
	interest := d.Interest()
	if err := l.backend.Register(fd, interest); err != nil {
		return err
	}
	l.regMu.Lock()
	l.registry[fd] = &registration{d: d, h: h, interest: interest}
	l.regMu.Unlock()
	l.log.Debug().Int("fd", fd).Str("interest", interest.String()).Log("descriptor registered")
	return nil
}

// Unregister removes a descriptor from the loop and cancels its deadline,
// if any. The descriptor itself is not closed. Inside a handler the
// removal takes effect immediately for dispatch purposes, while the
// backend update is buffered.
func (l *EventLoop) Unregister(d api.Descriptor) error {
	if d == nil {
		return fmt.Errorf("unregister: invalid descriptor")
	}
	return l.unregisterFD(d.FD())
}

func (l *EventLoop) unregisterFD(fd int) error {
	ent, ok := l.registry[fd]
	if !ok || ent.removed {
		return fmt.Errorf("unregister fd %d: %w", fd, api.ErrNotRegistered)
	}
	l.regMu.Lock()
	ent.removed = true
	if ent.deadline != nil {
		ent.deadline.Cancel()
		ent.deadline = nil
	}
	l.regMu.Unlock()
	if l.inDispatch {
		l.pending = append(l.pending, func() { l.applyUnregister(fd, ent) })
		return nil
	}
	l.applyUnregister(fd, ent)
	return nil
}

func (l *EventLoop) applyUnregister(fd int, ent *registration) {
	if l.registry[fd] != ent {
		return
	}
	if err := l.backend.Unregister(fd); err != nil {
		l.log.Warning().Int("fd", fd).Err(err).Log("backend unregister failed")
	}
	l.regMu.Lock()
	delete(l.registry, fd)
	l.regMu.Unlock()
	l.log.Debug().Int("fd", fd).Log("descriptor unregistered")
}

// Modify replaces the interest mask of a registered descriptor, in both
// the backend and the descriptor itself.
func (l *EventLoop) Modify(d api.Descriptor, events api.EventMask) error {
	if d == nil {
		return fmt.Errorf("modify: invalid descriptor")
	}
	fd := d.FD()
	ent, ok := l.registry[fd]
	if !ok || ent.removed {
		return fmt.Errorf("modify fd %d: %w", fd, api.ErrNotRegistered)
	}
	if err := l.backend.Modify(fd, events); err != nil {
		return err
	}
	d.SetInterest(events)
	ent.interest = events
	return nil
}

// SetDeadline arms (or, with a zero time, disarms) an inactivity deadline
// for a registered descriptor. When the deadline expires the handler's
// OnTimeout fires on the loop goroutine; a handler without OnTimeout gets
// its descriptor unregistered and closed instead. Arming replaces any
// earlier deadline. Safe to call from any goroutine.
func (l *EventLoop) SetDeadline(d api.Descriptor, at time.Time) error {
	if d == nil {
		return fmt.Errorf("set deadline: invalid descriptor")
	}
	fd := d.FD()
	l.regMu.Lock()
	defer l.regMu.Unlock()
	ent, ok := l.registry[fd]
	if !ok || ent.removed {
		return fmt.Errorf("set deadline fd %d: %w", fd, api.ErrNotRegistered)
	}
	if ent.deadline != nil {
		ent.deadline.Cancel()
		ent.deadline = nil
	}
	if at.IsZero() {
		return nil
	}
	// The closure runs on the loop goroutine. It takes regMu before
	// reading tok, so arming under the lock here publishes the token
	// even when the deadline is already due.
	var tok *timer.Token
	tok = l.timers.Schedule(at, 0, func() {
		l.regMu.Lock()
		if cur, ok := l.registry[fd]; !ok || cur != ent || ent.removed || ent.deadline != tok {
			l.regMu.Unlock()
			return
		}
		ent.deadline = nil
		l.regMu.Unlock()
		if ent.h.OnTimeout != nil {
			ent.h.OnTimeout(ent.d)
			return
		}
		l.log.Warning().Int("fd", fd).Log("deadline expired without timeout handler, closing")
		l.unregisterFD(fd)
		l.closeDescriptor(ent.d)
	})
	ent.deadline = tok
	l.wake.signal()
	return nil
}

// Schedule runs fn once on the loop goroutine after delay. Safe to call
// from any goroutine; the returned token cancels the timer.
func (l *EventLoop) Schedule(delay time.Duration, fn func()) *timer.Token {
	if delay < 0 {
		delay = 0
	}
	return l.ScheduleAt(time.Now().Add(delay), fn)
}

// ScheduleAt runs fn once on the loop goroutine at the given time.
func (l *EventLoop) ScheduleAt(at time.Time, fn func()) *timer.Token {
	tok := l.timers.Schedule(at, 0, fn)
	l.wake.signal()
	return tok
}

// ScheduleRepeating runs fn after delay and then every interval, measured
// from each firing. A non-positive interval degrades to a one-shot.
func (l *EventLoop) ScheduleRepeating(delay, interval time.Duration, fn func()) *timer.Token {
	if delay < 0 {
		delay = 0
	}
	tok := l.timers.Schedule(time.Now().Add(delay), interval, fn)
	l.wake.signal()
	return tok
}

// Submit queues fn for execution on the loop goroutine at the start of
// the next cycle. Safe to call from any goroutine; this is the intended
// way to register descriptors from outside the loop while it runs.
func (l *EventLoop) Submit(fn func()) {
	if fn == nil {
		return
	}
	l.submitMu.Lock()
	l.submitQ.Add(fn)
	l.submitMu.Unlock()
	l.wake.signal()
}

// Stop requests termination. The current cycle finishes dispatching in
// full before Run returns; a blocked wait is interrupted. Safe to call
// from any goroutine. Stopping a loop that is not yet running makes the
// next Run return immediately.
func (l *EventLoop) Stop() {
	l.stopReq.Store(true)
	l.wake.signal()
}

// Run executes dispatch cycles until Stop is called, the loop becomes
// completely idle (no descriptors, timers or submissions), or the
// backend fails. Handler and timer panics are recovered and reported as
// faults; only a backend error makes Run return non-nil.
func (l *EventLoop) Run() error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("event loop: already running")
	}
	defer l.running.Store(false)
	// The stop request is consumed on exit, not discarded on entry, so
	// a Stop issued before Run still takes effect.
	defer l.stopReq.Store(false)
	l.log.Info().Str("backend", l.backend.Name()).Log("event loop running")
	for !l.stopReq.Load() {
		idle, err := l.cycle()
		if err != nil {
			l.fault(Fault{Code: api.ErrCodeBackendFault, FD: -1, Err: err})
			l.log.Err().Err(err).Log("event loop aborting")
			return err
		}
		if idle {
			l.log.Notice().Log("nothing left to monitor, event loop exiting")
			return nil
		}
	}
	l.log.Info().Log("event loop stopped")
	return nil
}

// cycle runs one iteration: submissions, wait, dispatch, buffered
// mutations, due timers.
func (l *EventLoop) cycle() (idle bool, err error) {
	l.drainSubmissions()

	if _, hasTimer := l.timers.Next(); len(l.registry) == 0 && !hasTimer && l.submitLen() == 0 {
		return true, nil
	}

	n, err := l.backend.Wait(l.nextTimeout(), l.events)
	if err != nil {
		return false, fmt.Errorf("backend wait: %w", err)
	}

	l.inDispatch = true
	for i := 0; i < n; i++ {
		l.dispatch(l.events[i])
	}
	l.inDispatch = false

	if len(l.pending) > 0 {
		ops := l.pending
		l.pending = nil
		for _, op := range ops {
			op()
		}
	}

	l.fireTimers()

	return false, nil
}

// nextTimeout bounds the backend wait by the nearest timer deadline and
// the configured idle interval.
func (l *EventLoop) nextTimeout() time.Duration {
	timeout := l.maxIdle
	if next, ok := l.timers.Next(); ok {
		d := time.Until(next)
		if d < 0 {
			d = 0
		}
		if d < timeout {
			timeout = d
		}
	}
	return timeout
}

// dispatch routes one readiness event: readable first, then writable,
// then error conditions, re-checking liveness between callbacks so a
// handler that unregisters or closes its own descriptor is not entered
// again in the same cycle.
func (l *EventLoop) dispatch(ev api.Event) {
	if ev.FD == l.wake.readFD() {
		l.wake.drain()
		return
	}
	ent, ok := l.registry[ev.FD]
	if !ok || ent.removed {
		return
	}
	if ev.Events.Has(api.EventRead) && ent.h.OnReadable != nil {
		l.invoke(ev.FD, func() { ent.h.OnReadable(ent.d) })
	}
	if ent.removed {
		return
	}
	if ev.Events.Has(api.EventWrite) && ent.h.OnWritable != nil {
		l.invoke(ev.FD, func() { ent.h.OnWritable(ent.d) })
	}
	if ent.removed {
		return
	}
	if ev.Events&(api.EventError|api.EventHangup) != 0 {
		cause := descriptorError(ev)
		if ent.h.OnError != nil {
			l.invoke(ev.FD, func() { ent.h.OnError(ent.d, cause) })
		} else {
			l.log.Warning().Int("fd", ev.FD).Err(cause).Log("error condition without handler")
		}
		if !ent.removed {
			l.unregisterFD(ev.FD)
			l.closeDescriptor(ent.d)
		}
		return
	}
	l.syncInterest(ev.FD, ent)
}

// syncInterest propagates interest changes a handler made on the
// descriptor itself, so SetInterest alone is enough inside callbacks.
func (l *EventLoop) syncInterest(fd int, ent *registration) {
	want := ent.d.Interest()
	if want == ent.interest {
		return
	}
	if err := l.backend.Modify(fd, want); err != nil {
		l.log.Warning().Int("fd", fd).Err(err).Log("interest update failed")
		return
	}
	ent.interest = want
}

// descriptorError translates an error or hangup condition into something
// a handler can act on, preferring the socket's own pending error.
func descriptorError(ev api.Event) error {
	if soerr, err := unix.GetsockoptInt(ev.FD, unix.SOL_SOCKET, unix.SO_ERROR); err == nil && soerr != 0 {
		return unix.Errno(soerr)
	}
	if ev.Events.Has(api.EventHangup) {
		return io.EOF
	}
	return fmt.Errorf("fd %d: error condition reported", ev.FD)
}

// invoke runs a handler callback with panic isolation.
func (l *EventLoop) invoke(fd int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.fault(Fault{Code: api.ErrCodeHandlerFault, FD: fd, Err: fmt.Errorf("handler panic: %v", r)})
		}
	}()
	fn()
}

// fireTimers pops and runs every callback due at entry time. Recurring
// timers are rescheduled from their fire time; deadlines set by the
// callbacks themselves wait for the next cycle.
func (l *EventLoop) fireTimers() {
	now := time.Now()
	for {
		t, ok := l.timers.PopDue(now)
		if !ok {
			return
		}
		l.invokeTimer(t)
		if iv := t.Interval(); iv > 0 && !t.Token().Cancelled() {
			l.timers.Reschedule(t, time.Now().Add(iv))
		}
	}
}

func (l *EventLoop) invokeTimer(t *timer.Timer) {
	defer func() {
		if r := recover(); r != nil {
			l.fault(Fault{Code: api.ErrCodeTimerFault, FD: -1, Err: fmt.Errorf("timer panic: %v", r)})
		}
	}()
	t.Fn()()
}

func (l *EventLoop) drainSubmissions() {
	n := l.submitLen()
	for i := 0; i < n; i++ {
		l.submitMu.Lock()
		fn := l.submitQ.Remove().(func())
		l.submitMu.Unlock()
		l.invoke(-1, fn)
	}
}

func (l *EventLoop) submitLen() int {
	l.submitMu.Lock()
	n := l.submitQ.Length()
	l.submitMu.Unlock()
	return n
}

func (l *EventLoop) closeDescriptor(d api.Descriptor) {
	if err := d.Close(); err != nil {
		l.log.Warning().Int("fd", d.FD()).Err(err).Log("descriptor close failed")
	}
}

func (l *EventLoop) fault(f Fault) {
	l.log.Warning().Int("fd", f.FD).Err(f.Structured()).Log("fault recovered")
	if l.faultHook != nil {
		l.faultHook(f)
	}
}

// Close releases the wake descriptor and the backend. The loop must not
// be running; registered descriptors are left open for their owners.
func (l *EventLoop) Close() error {
	if l.running.Load() {
		return fmt.Errorf("event loop: close while running")
	}
	l.backend.Unregister(l.wake.readFD())
	l.wake.close()
	return l.backend.Close()
}
