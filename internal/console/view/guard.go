package view

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned when an action is submitted while the previous one is pending.
var ErrBusy = errors.New("a request is already in progress")

// ActionGuard admits at most one in-flight action of a kind.
// The zero value is ready to use.
type ActionGuard struct {
	busy atomic.Bool
}

// TryBegin marks the action as started. It returns false when one is already pending.
func (g *ActionGuard) TryBegin() bool {
	return g.busy.CompareAndSwap(false, true)
}

// End marks the pending action as finished.
func (g *ActionGuard) End() {
	g.busy.Store(false)
}

// Busy reports whether an action is pending.
func (g *ActionGuard) Busy() bool {
	return g.busy.Load()
}
