// Package services adapts user intents to backend round trips. Every
// operation moves its state slice through pending and then exactly one of
// fulfilled or rejected.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/HammerMeetNail/widgetshare/internal/state"
)

var now = func() time.Time { return time.Now().UTC() }

// Run dispatches op as pending, runs fn, and settles op. On success the
// actions built by onSuccess are dispatched before fulfilled; on failure a
// single rejected carries the readable reason and the error is returned.
func Run[T any](ctx context.Context, d state.Dispatcher, op state.Op, fn func(ctx context.Context) (T, error), onSuccess func(T) []state.Action) (result T, err error) {
	d.Dispatch(state.OperationPending{Op: op})

	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, err = zero, fmt.Errorf("%s: unexpected failure: %v", op, r)
			d.Dispatch(state.OperationRejected{Op: op, Reason: Describe(err)})
		}
	}()

	result, err = fn(ctx)
	if err != nil {
		var zero T
		d.Dispatch(state.OperationRejected{Op: op, Reason: Describe(err)})
		return zero, err
	}

	if onSuccess != nil {
		for _, a := range onSuccess(result) {
			d.Dispatch(a)
		}
	}
	d.Dispatch(state.OperationFulfilled{Op: op})
	return result, nil
}

func actions(a ...state.Action) []state.Action {
	return a
}
