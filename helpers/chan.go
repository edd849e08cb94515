package helpers

import "context"

// Send writes value to ch unless ctx is done first.
func Send[T any](ctx context.Context, ch chan<- T, value T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- value:
		return true
	}
}

// Receive reads from ch unless ctx is done first or ch is closed.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, false
	case value, ok := <-ch:
		return value, ok
	}
}
