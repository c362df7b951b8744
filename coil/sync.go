package coil

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Lock is a non-reentrant mutual-exclusion handle with an observable
// Locked state. Release on an already-free Lock is a no-op rather than a
// panic; a Release from any goroutine frees a held Lock, which is how
// Notification wakes its waiters. Event and Notification both depend on acquiring an already-held Lock a
// second time to block, so Lock must never be swapped for a reentrant
// mutex. The zero value is an unlocked Lock, ready to use.
type Lock struct {
	mu     sync.Mutex
	locked atomic.Bool
}

// NewLock returns an unlocked Lock.
func NewLock() *Lock {
	return &Lock{}
}

// Acquire blocks until the Lock is uncontended, then takes ownership.
func (l *Lock) Acquire() {
	l.mu.Lock()
	l.locked.Store(true)
}

// Release hands the Lock back. A Release on an already-free Lock is a
// no-op.
func (l *Lock) Release() {
	if !l.locked.CompareAndSwap(true, false) {
		return
	}
	l.mu.Unlock()
}

// Locked reports whether the Lock is currently held.
func (l *Lock) Locked() bool {
	return l.locked.Load()
}

// Notification is an ordered queue of suspended waiters. Notify(n) wakes
// exactly min(n, len(waiters)) in FIFO order. It introduces no spurious
// wakeups; callers that need a predicate must re-check it themselves.
type Notification struct {
	mu      Lock
	waiters []*Lock
}

// NewNotification returns an empty Notification.
func NewNotification() *Notification {
	return &Notification{}
}

// Wait appends a freshly acquired Lock to the waiter queue, then blocks on
// it a second time. A subsequent Notify releases that Lock, waking the
// caller.
func (n *Notification) Wait() {
	waiter := NewLock()
	waiter.Acquire()

	n.mu.Acquire()
	n.waiters = append(n.waiters, waiter)
	n.mu.Release()

	waiter.Acquire()
}

// Notify wakes the first count waiters, in enqueue order. Waking fewer
// waiters than requested (because count exceeds the queue) is not an
// error.
func (n *Notification) Notify(count int) {
	n.mu.Acquire()
	if count > len(n.waiters) {
		count = len(n.waiters)
	}
	woken := n.waiters[:count]
	n.waiters = n.waiters[count:]
	n.mu.Release()

	for _, w := range woken {
		w.Release()
	}
}

// NotifyOne wakes a single waiter.
func (n *Notification) NotifyOne() {
	n.Notify(1)
}

// NotifyAll wakes every current waiter.
func (n *Notification) NotifyAll() {
	n.mu.Acquire()
	count := len(n.waiters)
	n.mu.Release()
	n.Notify(count)
}

// Event is a one-shot latch with states {unset, set}. Set requires the
// latch to be currently unset; Clear requires it set; both fail
// otherwise. Wait is a cheap pass-through once latched, blocking while
// unset.
type Event struct {
	lock *Lock
}

// NewEvent returns an unset Event.
func NewEvent() *Event {
	e := &Event{lock: NewLock()}
	e.lock.Acquire()
	return e
}

// Set transitions unset -> set. Returns ErrEventAlreadySet if already set.
func (e *Event) Set() error {
	if !e.lock.Locked() {
		return ErrEventAlreadySet
	}
	e.lock.Release()
	return nil
}

// Clear transitions set -> unset. Returns ErrEventNotSet if already unset.
func (e *Event) Clear() error {
	if e.lock.Locked() {
		return ErrEventNotSet
	}
	e.lock.Acquire()
	return nil
}

// Wait blocks iff the Event is currently unset.
func (e *Event) Wait() {
	e.lock.Acquire()
	e.lock.Release()
}

// IsSet reports the current latch state.
func (e *Event) IsSet() bool {
	return !e.lock.Locked()
}

// Semaphore is a counting permit with FIFO-ish waiter wakeup. Invariant:
// issued - released = initial limit - Remaining, for any interleaving of
// Acquire/Release.
type Semaphore struct {
	mu        Lock
	remaining int
	waiters   *Notification
}

// NewSemaphore returns a Semaphore with limit initial permits.
func NewSemaphore(limit int) *Semaphore {
	return &Semaphore{remaining: limit, waiters: NewNotification()}
}

// Acquire blocks until a permit is available, then takes it.
func (s *Semaphore) Acquire() {
	for {
		s.mu.Acquire()
		if s.remaining > 0 {
			s.remaining--
			s.mu.Release()
			return
		}
		s.mu.Release()
		s.waiters.Wait()
	}
}

// Release returns a permit and wakes one waiter.
func (s *Semaphore) Release() {
	s.mu.Acquire()
	s.remaining++
	s.mu.Release()
	s.waiters.NotifyOne()
}

// Remaining reports the current permit count. Intended for diagnostics;
// callers must not rely on it for correctness.
func (s *Semaphore) Remaining() int {
	s.mu.Acquire()
	defer s.mu.Release()
	return s.remaining
}

// Barrier is a cyclic two-phase rendezvous for a fixed N participants.
// Push blocks until the N-th participant arrives (phase 1, broadcast),
// then blocks again until every participant has observed phase 1 and the
// count has drained back to zero (phase 2, broadcast). All N participants
// observe both phases before any Push returns.
type Barrier struct {
	needed  int
	mu      Lock
	waiting int
	phase1  *Notification
	phase2  *Notification
}

// NewBarrier returns a Barrier for exactly needed participants per cycle.
func NewBarrier(needed int) *Barrier {
	return &Barrier{
		needed: needed,
		phase1: NewNotification(),
		phase2: NewNotification(),
	}
}

// Push registers one arrival and blocks until the full cycle completes.
func (b *Barrier) Push() {
	b.mu.Acquire()
	b.waiting++
	mustWaitPhase1 := b.waiting != b.needed
	if !mustWaitPhase1 {
		b.phase1.NotifyAll()
	}
	b.mu.Release()

	if mustWaitPhase1 {
		b.phase1.Wait()
	}

	b.mu.Acquire()
	b.waiting--
	mustWaitPhase2 := b.waiting != 0
	if !mustWaitPhase2 {
		b.phase2.NotifyAll()
	}
	b.mu.Release()

	if mustWaitPhase2 {
		b.phase2.Wait()
	}
}

// OverflowPolicy governs Queue.Add behavior once the queue is at
// capacity.
type OverflowPolicy int

const (
	// PolicyRaise returns ErrQueueFull from Add when the queue is full.
	PolicyRaise OverflowPolicy = iota
	// PolicyBlock suspends Add until a Pop makes room, then adds.
	PolicyBlock
	// PolicyDrop silently discards the item being added.
	PolicyDrop
)

// Queue is a bounded FIFO. A maxSize of 0 means unbounded, in which case
// policy is never consulted. Invariant: len(Queue) <= maxSize whenever
// maxSize > 0.
type Queue struct {
	mu      Lock
	items   []any
	maxSize int
	policy  OverflowPolicy
	added   *Notification
	popped  *Notification
}

// NewQueue returns a Queue bounded at maxSize (0 for unbounded) governed
// by policy.
func NewQueue(maxSize int, policy OverflowPolicy) *Queue {
	return &Queue{
		maxSize: maxSize,
		policy:  policy,
		added:   NewNotification(),
		popped:  NewNotification(),
	}
}

// ParseOverflowPolicy maps a Config.QueuePolicy string ("raise", "block",
// "drop") onto its OverflowPolicy value. It returns ErrUnknownQueuePolicy
// for anything else.
func ParseOverflowPolicy(name string) (OverflowPolicy, error) {
	switch strings.ToLower(name) {
	case "raise":
		return PolicyRaise, nil
	case "block":
		return PolicyBlock, nil
	case "drop":
		return PolicyDrop, nil
	default:
		return 0, ErrUnknownQueuePolicy
	}
}

// NewQueueFromConfig returns a Queue bounded by cfg.QueueCapacity and
// governed by cfg.QueuePolicy, for callers that load their tunables from
// a Config file rather than hardcoding them.
func NewQueueFromConfig(cfg *Config) (*Queue, error) {
	policy, err := ParseOverflowPolicy(cfg.QueuePolicy)
	if err != nil {
		return nil, err
	}
	return NewQueue(cfg.QueueCapacity, policy), nil
}

// Add appends item, respecting the overflow policy when the queue is at
// capacity. Under PolicyBlock it blocks until room opens up and then
// completes the add rather than evicting anything.
func (q *Queue) Add(item any) error {
	q.mu.Acquire()
	for q.maxSize > 0 && len(q.items) >= q.maxSize {
		switch q.policy {
		case PolicyRaise:
			q.mu.Release()
			return ErrQueueFull
		case PolicyDrop:
			q.mu.Release()
			return nil
		case PolicyBlock:
			q.mu.Release()
			q.popped.Wait()
			q.mu.Acquire()
		}
	}
	q.items = append(q.items, item)
	q.mu.Release()
	q.added.NotifyOne()
	return nil
}

// Pop blocks while the queue is empty, then removes and returns the
// oldest item.
func (q *Queue) Pop() any {
	q.mu.Acquire()
	for len(q.items) == 0 {
		q.mu.Release()
		q.added.Wait()
		q.mu.Acquire()
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.mu.Release()
	q.popped.NotifyOne()
	return item
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Acquire()
	defer q.mu.Release()
	return len(q.items)
}
