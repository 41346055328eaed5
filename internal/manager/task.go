// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manager

import "context"

// Task is the pending result of a lifecycle event. The event is finished
// only once Done is closed.
type Task struct {
	done chan struct{}
	err  error
}

func startTask(fn func() error) *Task {
	t := &Task{done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.err = fn()
	}()
	return t
}

func failedTask(err error) *Task {
	t := &Task{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

// Done is closed when the task settles.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task result, or nil while it is still running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task settles or ctx ends. Abandoning the wait does
// not cancel the task; cancel the context given to Install or Activate for
// that.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
