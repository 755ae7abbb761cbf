// Package repeat runs a function on a fixed cadence until it asks to stop
// or is cancelled. The playhead frame loop and the status poller both use it
// so neither can outlive its owner.
package repeat

import (
	"context"
	"sync"
	"time"
)

// Func is called once per tick. Returning false ends the loop.
// It must not call Stop on its own Task.
type Func func(ctx context.Context) bool

// Task is a handle to a running loop.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches fn every interval until fn returns false, ctx is cancelled
// or Stop is called. The first call happens one interval after Start.
func Start(ctx context.Context, interval time.Duration, fn Func) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		defer cancel()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Stop may have raced the tick.
				if ctx.Err() != nil {
					return
				}
				if !fn(ctx) {
					return
				}
			}
		}
	}()

	return t
}

// Stop cancels the loop and waits for it to exit. After Stop returns fn is
// not running and will not run again. Safe on a nil or already stopped Task.
func (t *Task) Stop() {
	if t == nil {
		return
	}
	t.once.Do(t.cancel)
	<-t.done
}

// Done is closed once the loop has exited for any reason.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Running reports whether the loop is still active.
func (t *Task) Running() bool {
	if t == nil {
		return false
	}
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}
