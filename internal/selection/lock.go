package selection

import "sync/atomic"

// ScrollLock suppresses background scrolling while a detail view is open.
// Every Acquire is matched by exactly one Release.
type ScrollLock interface {
	Acquire()
	Release()
}

type noopLock struct{}

func (noopLock) Acquire() {}
func (noopLock) Release() {}

// CountingLock counts outstanding holds. The zero value is ready to use.
type CountingLock struct {
	held atomic.Int64
	// OnChange, when set, receives the hold count after every change
	OnChange func(held int64)
}

// Acquire adds a hold
func (l *CountingLock) Acquire() {
	n := l.held.Add(1)
	if l.OnChange != nil {
		l.OnChange(n)
	}
}

// Release drops a hold
func (l *CountingLock) Release() {
	n := l.held.Add(-1)
	if l.OnChange != nil {
		l.OnChange(n)
	}
}

// Held returns the outstanding hold count
func (l *CountingLock) Held() int64 {
	return l.held.Load()
}
