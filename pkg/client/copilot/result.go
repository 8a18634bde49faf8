package copilot

import "context"

// Result holds either the value of a successful call or its error.
// It is used where calls complete asynchronously, so receivers must
// handle both branches.
type Result[T any] struct {
	value T
	err   error
}

// Ok returns a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail returns a failed Result. A nil err yields a successful zero Result.
func Fail[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Do runs fn and captures its outcome.
func Do[T any](ctx context.Context, fn func(context.Context) (T, error)) Result[T] {
	v, err := fn(ctx)
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// IsOk reports whether the call succeeded.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Value returns the value, or the zero value of T on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the failure, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Unwrap returns the Result as a conventional value and error pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// Match calls ok or fail depending on the outcome.
func (r Result[T]) Match(ok func(T), fail func(error)) {
	if r.err != nil {
		fail(r.err)
		return
	}
	ok(r.value)
}
