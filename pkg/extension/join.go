package extension

import (
	"sync"
	"sync/atomic"
)

// join fires once: when the countdown reaches zero, or on the first failure,
// whichever happens first. A zero count fires at construction.
type join struct {
	remaining atomic.Int64
	once      sync.Once
	fire      func(error)
}

func newJoin(n int, fire func(error)) *join {
	j := &join{fire: fire}
	j.remaining.Store(int64(n))
	if n == 0 {
		j.once.Do(func() { fire(nil) })
	}
	return j
}

func (j *join) arrive() {
	if j.remaining.Add(-1) == 0 {
		j.once.Do(func() { j.fire(nil) })
	}
}

func (j *join) fail(err error) {
	j.once.Do(func() { j.fire(err) })
}
