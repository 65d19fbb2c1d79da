// Package reducer maps (state, action) to the next canonical state.
//
// Reduction is pure: handlers read time, ids and seeds only from the action,
// never from the environment, and never perform I/O. A handler returns the
// state it was given when nothing changes, so consumers can compare by
// reference.
package reducer

import (
	"fmt"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/types"
)

// Catalog supplies static trade definitions.
type Catalog interface {
	Trade(id string) (types.Trade, bool)
}

// Offspring is what an OffspringFunc derives from two parents.
type Offspring struct {
	Species string
	Stats   map[string]int
}

// OffspringFunc derives an offspring's species and base stats from its parents.
type OffspringFunc func(parent1, parent2 *types.Creature) Offspring

// Env holds the read-only collaborators handlers may consult.
type Env struct {
	Catalog   Catalog
	Offspring OffspringFunc
}

// Handler reduces one action type.
type Handler func(env *Env, state *types.GameState, action actions.Action) (*types.GameState, error)

// Typed adapts a handler for a concrete action type.
func Typed[A actions.Action](fn func(env *Env, state *types.GameState, action A) (*types.GameState, error)) Handler {
	return func(env *Env, state *types.GameState, action actions.Action) (*types.GameState, error) {
		typed, ok := action.(A)
		if !ok {
			return state, fmt.Errorf("%w: handler for %s received %T", ErrUnknownAction, action.Type(), action)
		}
		return fn(env, state, typed)
	}
}

// Result reports the outcome of a reduction alongside the new state.
type Result struct {
	// Changed is true when the returned state differs from the input.
	Changed bool
	// Err is the reason the action was rejected, if any. A rejected action
	// always leaves the state unchanged.
	Err error
}

type Reducer struct {
	env      *Env
	handlers map[actions.Type]Handler
	strict   bool
}

type NewReducerOptions struct {
	Catalog   Catalog
	Offspring OffspringFunc
	// Handlers are merged over the core handlers.
	Handlers map[actions.Type]Handler
	// Strict makes unknown actions panic. Used in development builds.
	Strict bool
}

func New(opts NewReducerOptions) *Reducer {
	handlers := CoreHandlers()
	for t, h := range opts.Handlers {
		handlers[t] = h
	}
	return &Reducer{
		env: &Env{
			Catalog:   opts.Catalog,
			Offspring: opts.Offspring,
		},
		handlers: handlers,
		strict:   opts.Strict,
	}
}

// Handles reports whether the reducer has a handler for the action type.
func (r *Reducer) Handles(t actions.Type) bool {
	_, ok := r.handlers[t]
	return ok
}

// Reduce applies the action to state. On rejection the input state is
// returned with Result.Err set.
func (r *Reducer) Reduce(state *types.GameState, action actions.Action) (*types.GameState, Result) {
	handler, ok := r.handlers[action.Type()]
	if !ok {
		if r.strict {
			panic(fmt.Sprintf("reducer: no handler for action type %q", action.Type()))
		}
		return state, Result{Err: fmt.Errorf("%w: %s", ErrUnknownAction, action.Type())}
	}

	next, err := handler(r.env, state, action)
	if err != nil {
		return state, Result{Err: err}
	}
	if next == nil {
		next = state
	}
	return next, Result{Changed: next != state}
}
