// Package eventloop runs queued callbacks one at a time on a single goroutine.
//
// Sessions post every device, channel and timer callback onto their loop so
// cart and playback state is only ever touched from one goroutine.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned when posting to a loop that has stopped
var ErrClosed = errors.New("event loop closed")

// Loop is a serial executor with an unbounded queue
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}

	logger *zap.Logger
}

// New creates a loop. Call Run to start processing.
func New(logger *zap.Logger) *Loop {
	return &Loop{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues fn. It never blocks and reports false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Schedule is Post without the result, for APIs that take a func(func())
func (l *Loop) Schedule(fn func()) {
	if !l.Post(fn) {
		l.logger.Debug("Dropped callback posted after loop stopped")
	}
}

// Do runs fn on the loop and waits for it to return
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// the loop may have run fn right before stopping
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when Run returns
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run processes callbacks until ctx is cancelled. Callbacks still queued at
// that point are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			fn, ok := l.next()
			if !ok {
				break
			}
			l.run(fn)
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Recovered panic in event loop callback",
				zap.Error(fmt.Errorf("%v", r)))
		}
	}()
	fn()
}
