package game

import (
	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/breeding"
	"github.com/cbodonnell/menagerie/pkg/reducer"
	"github.com/cbodonnell/menagerie/pkg/shop"
)

type NewReducerOptions struct {
	Catalog reducer.Catalog
	// Offspring overrides breeding.DefaultOffspring.
	Offspring reducer.OffspringFunc
	// Strict makes unknown actions panic.
	Strict bool
}

// NewReducer builds the reducer with the shop and breeding subsystems wired in.
func NewReducer(opts NewReducerOptions) *reducer.Reducer {
	handlers := make(map[actions.Type]reducer.Handler)
	for t, h := range shop.Handlers() {
		handlers[t] = h
	}
	for t, h := range breeding.Handlers() {
		handlers[t] = h
	}
	offspring := opts.Offspring
	if offspring == nil {
		offspring = breeding.DefaultOffspring
	}
	return reducer.New(reducer.NewReducerOptions{
		Catalog:   opts.Catalog,
		Offspring: offspring,
		Handlers:  handlers,
		Strict:    opts.Strict,
	})
}
