package queuebuilder

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Fault is a panic recovered while building. It is kept apart from ordinary
// errors because it escalates to locking the queue.
type Fault struct {
	Value any
	Stack []byte
}

func (f *Fault) Error() string {
	return fmt.Sprintf("panic: %v", f.Value)
}

// Unwrap exposes a panicked error value.
func (f *Fault) Unwrap() error {
	if err, ok := f.Value.(error); ok {
		return err
	}
	return nil
}

// runIsolated calls fn and converts a panic into a *Fault.
func runIsolated(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Fault{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}
