// Package pool runs short-lived tasks on a bounded ants goroutine pool.
package pool

import "errors"

var (
	// ErrPoolClosed is returned when submitting to a released pool.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrPoolOverload is returned by a nonblocking pool that has no free worker.
	ErrPoolOverload = errors.New("pool is overloaded")
)
