// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package bridge

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/apex/log"
)

// Tasks tracks the goroutines the bridge spawns, so that they can all be
// waited for before the connections are released. Tasks may be added while
// Wait is running.
type Tasks struct {
	ctx log.Interface

	mu     sync.Mutex
	done   []chan struct{}
	failed int
}

// NewTasks returns a new, empty, task registry
func NewTasks(ctx log.Interface) *Tasks {
	return &Tasks{ctx: ctx}
}

// Go runs fn in a new goroutine. An error returned by fn, or a panic, is
// logged and counted; it does not affect other tasks.
func (t *Tasks) Go(name string, fn func() error) {
	done := make(chan struct{})

	t.mu.Lock()
	t.done = append(pending(t.done), done)
	t.mu.Unlock()

	tasksInFlight.Inc()
	go func() {
		ctx := t.ctx.WithField("Task", name)
		defer close(done)
		defer tasksInFlight.Dec()
		defer func() {
			if r := recover(); r != nil {
				ctx.WithField("Panic", r).Errorf("Task panicked\n%s", debug.Stack())
				t.fail()
			}
		}()
		if err := fn(); err != nil {
			ctx.WithError(err).Warn("Task failed")
			t.fail()
		}
	}()
}

func (t *Tasks) fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed++
}

// pending drops the tasks that already completed; waiting for them would return immediately
func pending(tasks []chan struct{}) []chan struct{} {
	kept := tasks[:0]
	for _, done := range tasks {
		select {
		case <-done:
		default:
			kept = append(kept, done)
		}
	}
	return kept
}

// Len returns the number of tasks that are tracked
func (t *Tasks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done)
}

// Wait until all tasks (including the ones started while waiting) have
// completed. The returned error reports how many tasks failed since the
// previous Wait.
func (t *Tasks) Wait() error {
	for {
		t.mu.Lock()
		tasks := t.done
		t.done = nil
		t.mu.Unlock()
		if len(tasks) == 0 {
			break
		}
		for _, done := range tasks {
			<-done
		}
	}
	t.mu.Lock()
	failed := t.failed
	t.failed = 0
	t.mu.Unlock()
	if failed > 0 {
		return fmt.Errorf("bridge: %d tasks failed", failed)
	}
	return nil
}
