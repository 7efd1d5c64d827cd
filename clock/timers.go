package clock

import (
	"sort"
	"time"
)

// Timer is a pending callback in a Timers queue.
type Timer struct {
	deadline time.Time
	seq      uint64
	fn       func()
	owner    *Timers
	done     bool
}

// Deadline returns when the timer becomes due.
func (t *Timer) Deadline() time.Time {
	return t.deadline
}

// Stop cancels the timer. It returns false if the timer already fired or was
// stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.done {
		return false
	}
	t.done = true
	t.owner.remove(t)
	return true
}

// Timers is a deadline-ordered queue of callbacks driven by Fire.
// It is not safe for concurrent use.
type Timers struct {
	clock   Clock
	pending []*Timer
	seq     uint64
}

// NewTimers creates a queue reading time from c.
func NewTimers(c Clock) *Timers {
	if c == nil {
		c = Real{}
	}
	return &Timers{clock: c}
}

// Clock returns the time source of the queue.
func (q *Timers) Clock() Clock {
	return q.clock
}

// AfterFunc schedules fn to run on the first Fire at or after now+d.
func (q *Timers) AfterFunc(d time.Duration, fn func()) *Timer {
	q.seq++
	t := &Timer{
		deadline: q.clock.Now().Add(d),
		seq:      q.seq,
		fn:       fn,
		owner:    q,
	}

	// Keep pending sorted by deadline, then by scheduling order
	idx := sort.Search(len(q.pending), func(i int) bool {
		p := q.pending[i]
		if p.deadline.Equal(t.deadline) {
			return p.seq > t.seq
		}
		return p.deadline.After(t.deadline)
	})
	q.pending = append(q.pending, nil)
	copy(q.pending[idx+1:], q.pending[idx:])
	q.pending[idx] = t

	return t
}

// Fire runs every timer that is due at the current time and returns how many
// ran. Timers scheduled by a callback wait for a later Fire even when their
// delay is zero.
func (q *Timers) Fire() int {
	now := q.clock.Now()

	var due []*Timer
	for _, t := range q.pending {
		if t.deadline.After(now) {
			break
		}
		due = append(due, t)
	}
	if len(due) == 0 {
		return 0
	}
	q.pending = q.pending[len(due):]

	fired := 0
	for _, t := range due {
		// An earlier callback may have stopped this one
		if t.done {
			continue
		}
		t.done = true
		t.fn()
		fired++
	}
	return fired
}

// Pending returns the number of scheduled timers.
func (q *Timers) Pending() int {
	return len(q.pending)
}

// Next returns the earliest pending deadline.
func (q *Timers) Next() (time.Time, bool) {
	if len(q.pending) == 0 {
		return time.Time{}, false
	}
	return q.pending[0].deadline, true
}

func (q *Timers) remove(t *Timer) {
	for i, p := range q.pending {
		if p == t {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}
