package state

import (
	"errors"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/reducer"
)

var (
	// ErrDeferQueueFull is returned by Defer when too much work is pending.
	ErrDeferQueueFull = errors.New("deferred work queue is full")
	// ErrNestedDispatch is returned by Dispatch when called from a listener.
	ErrNestedDispatch = errors.New("dispatch called from a listener")
)

// Listener is notified after every dispatch that changed the state.
// Listeners run before Dispatch returns. Calling Dispatch from a listener
// fails with ErrNestedDispatch; work that needs to dispatch goes through Defer.
type Listener func(prev, next *types.GameState)

// StateManager provides shared access to the canonical game state.
// Implementations must be thread-safe.
type StateManager interface {
	// Get returns the current canonical state. It must not be mutated.
	Get() *types.GameState
	// Dispatch reduces the action into the canonical state.
	Dispatch(action actions.Action) reducer.Result
	// Subscribe registers a listener and returns a function removing it.
	Subscribe(listener Listener) func()
	// Defer schedules fn to run on the next tick.
	Defer(fn func()) error
}
