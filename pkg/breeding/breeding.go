// Package breeding implements the creature breeding reducer.
package breeding

import (
	"sort"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/reducer"
)

// Handlers returns the breeding reducers keyed by action type.
func Handlers() map[actions.Type]reducer.Handler {
	return map[actions.Type]reducer.Handler{
		actions.TypeBreedCreatures: reducer.Typed(breedCreatures),
	}
}

// Cost returns the gold needed to breed the two parents.
func Cost(parent1, parent2 *types.Creature) int64 {
	generation := max(parent1.Generation, parent2.Generation)
	return constants.BreedingBaseCost + constants.BreedingGenerationSurcharge*int64(generation)
}

// DefaultOffspring inherits the first parent's species and averages the
// parents' base stats, rounding up.
func DefaultOffspring(parent1, parent2 *types.Creature) reducer.Offspring {
	names := make(map[string]struct{}, len(parent1.BaseStats)+len(parent2.BaseStats))
	for name := range parent1.BaseStats {
		names[name] = struct{}{}
	}
	for name := range parent2.BaseStats {
		names[name] = struct{}{}
	}
	stats := make(map[string]int, len(names))
	for name := range names {
		sum := parent1.BaseStats[name] + parent2.BaseStats[name]
		stats[name] = (sum + 1) / 2
	}
	return reducer.Offspring{
		Species: parent1.Species,
		Stats:   stats,
	}
}

// exhaust returns a copy of the creature one exhaustion level further, with
// effective stats recomputed from its base stats.
func exhaust(c *types.Creature) *types.Creature {
	n := c.Copy()
	n.ExhaustionLevel++
	n.Stats = reducer.EffectiveStats(n.BaseStats, n.ExhaustionLevel)
	return n
}

// breedCreatures is all-or-nothing: every check runs before the roster or
// gold is touched.
func breedCreatures(env *reducer.Env, state *types.GameState, a *actions.BreedCreatures) (*types.GameState, error) {
	if a.ParentID1 == "" || a.ParentID2 == "" {
		return state, reducer.Invalid("parentIds", "both parents are required")
	}
	if a.ParentID1 == a.ParentID2 {
		return state, reducer.Invalid("parentIds", "a creature cannot breed with itself")
	}
	if a.OffspringID == "" {
		return state, reducer.Invalid("offspringId", "is required")
	}

	current := reducer.Roster(state)
	parent1, ok1 := current.Get(a.ParentID1)
	parent2, ok2 := current.Get(a.ParentID2)
	if !ok1 || !ok2 {
		return state, reducer.ErrUnknownParent
	}
	if _, exists := current.Get(a.OffspringID); exists {
		return state, reducer.Invalid("offspringId", "already exists")
	}

	cost := Cost(parent1, parent2)
	if cost > state.Player.Gold {
		return state, reducer.ErrInsufficientFunds
	}

	offspringFn := DefaultOffspring
	if env != nil && env.Offspring != nil {
		offspringFn = env.Offspring
	}
	derived := offspringFn(parent1, parent2)
	base := make(map[string]int, len(derived.Stats))
	for name, v := range derived.Stats {
		base[name] = v
	}
	offspring := &types.Creature{
		ID:         a.OffspringID,
		Species:    derived.Species,
		Generation: max(parent1.Generation, parent2.Generation) + 1,
		ParentIDs:  []string{a.ParentID1, a.ParentID2},
		BaseStats:  base,
		Stats:      reducer.EffectiveStats(base, 0),
		BornAt:     a.At,
	}

	roster := current.Clone()
	roster.Entries[offspring.ID] = offspring
	roster.Entries[parent1.ID] = exhaust(parent1)
	roster.Entries[parent2.ID] = exhaust(parent2)
	roster.LastUpdated = reducer.NextTimestamp(current.LastUpdated, a.At)
	roster.BreedingAttempts = current.BreedingAttempts + 1

	next := state.Clone()
	next.Player.Gold -= cost
	next.Creatures = roster
	return next, nil
}

// Lineage returns the ids of every known ancestor of the creature, sorted.
func Lineage(roster *types.CreatureRoster, id string) []string {
	seen := map[string]struct{}{}
	var walk func(string)
	walk = func(cur string) {
		c, ok := roster.Get(cur)
		if !ok {
			return
		}
		for _, parent := range c.ParentIDs {
			if _, done := seen[parent]; done {
				continue
			}
			seen[parent] = struct{}{}
			walk(parent)
		}
	}
	walk(id)
	ancestors := make([]string, 0, len(seen))
	for ancestor := range seen {
		ancestors = append(ancestors, ancestor)
	}
	sort.Strings(ancestors)
	return ancestors
}
