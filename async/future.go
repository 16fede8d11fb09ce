// Package async provides the future-like completion handle spec §4.5/§4.7/§9
// asks for wherever a value is "to be filled later, awaitable... the stub
// returns immediately; waiting on the handle blocks the caller only, not an
// I/O worker". It is used on both halves of the wire: a server-side service
// method may return a *Future instead of completing synchronously, and the
// client-side stub factory returns a *Future for any method whose declared
// Go return type is *async.Future instead of unwrapping it inline.
package async

import "sync"

// Future is a one-shot completion handle: it completes exactly once, with
// either a result or an error, and any number of goroutines may Wait on it.
type Future struct {
	once sync.Once
	done chan struct{}

	mu     sync.Mutex
	result any
	err    error
}

// New returns an incomplete Future.
func New() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete fulfills the future. Only the first call has any effect; later
// calls are no-ops, so when several goroutines race to complete a future
// (as in TestFutureCompleteOnlyOnce), exactly one result is kept.
func (f *Future) Complete(result any, err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.result, f.err = result, err
		f.mu.Unlock()
		close(f.done)
	})
}

// Done returns a channel closed when the future completes, for use in a
// select alongside a timeout — the same idiom middleware.Timeout already
// uses against its own done channel.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks the calling goroutine (never an I/O worker, per spec §5) until
// the future completes, then returns its result and error.
func (f *Future) Wait() (any, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}
