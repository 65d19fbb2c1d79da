package reducer

import (
	"math"
	"strings"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
)

// CoreHandlers returns the handlers for actions that are not owned by a
// subsystem package.
func CoreHandlers() map[actions.Type]Handler {
	return map[actions.Type]Handler{
		actions.TypeSetStoryFlag:   Typed(setStoryFlag),
		actions.TypeUnlockArea:     Typed(unlockArea),
		actions.TypeGainExperience: Typed(gainExperience),
		actions.TypeAddCreature:    Typed(addCreature),
		actions.TypeSeedCreatures:  Typed(seedCreatures),
		actions.TypeReplaceState:   Typed(replaceState),
	}
}

func setStoryFlag(_ *Env, state *types.GameState, a *actions.SetStoryFlag) (*types.GameState, error) {
	if strings.TrimSpace(a.Flag) == "" {
		return state, Invalid("flag", "is required")
	}
	flags := state.StoryFlags.With(a.Flag)
	if len(flags) == len(state.StoryFlags) {
		return state, nil
	}
	next := state.Clone()
	next.StoryFlags = flags
	return next, nil
}

func unlockArea(_ *Env, state *types.GameState, a *actions.UnlockArea) (*types.GameState, error) {
	if strings.TrimSpace(a.AreaID) == "" {
		return state, Invalid("areaId", "is required")
	}
	areas := state.UnlockedAreas.With(a.AreaID)
	if len(areas) == len(state.UnlockedAreas) {
		return state, nil
	}
	next := state.Clone()
	next.UnlockedAreas = areas
	return next, nil
}

func gainExperience(_ *Env, state *types.GameState, a *actions.GainExperience) (*types.GameState, error) {
	if a.Amount <= 0 {
		return state, Invalid("amount", "must be positive")
	}
	next := state.Clone()
	next.Player.Experience += a.Amount
	level := constants.StartingLevel + int(next.Player.Experience/constants.ExperiencePerLevel)
	if level > next.Player.Level {
		next.Player.Level = level
	}
	return next, nil
}

func addCreature(_ *Env, state *types.GameState, a *actions.AddCreature) (*types.GameState, error) {
	creature, err := normalizeCreature(a.Creature)
	if err != nil {
		return state, err
	}
	if _, exists := state.Creatures.Get(creature.ID); exists {
		return state, Invalid("creature.id", "already exists")
	}
	current := Roster(state)
	roster := current.Clone()
	roster.Entries[creature.ID] = creature
	roster.LastUpdated = NextTimestamp(current.LastUpdated, a.At)

	next := state.Clone()
	next.Creatures = roster
	return next, nil
}

// seedCreatures only ever fills an empty roster. A populated roster is
// canonical and is left untouched.
func seedCreatures(_ *Env, state *types.GameState, a *actions.SeedCreatures) (*types.GameState, error) {
	if state.Creatures.Len() > 0 || len(a.Creatures) == 0 {
		return state, nil
	}
	current := Roster(state)
	roster := types.NewCreatureRoster()
	roster.BreedingAttempts = current.BreedingAttempts
	for _, c := range a.Creatures {
		creature, err := normalizeCreature(c)
		if err != nil {
			return state, err
		}
		if _, exists := roster.Entries[creature.ID]; exists {
			return state, Invalid("creature.id", "duplicated in seed")
		}
		roster.Entries[creature.ID] = creature
	}
	roster.LastUpdated = NextTimestamp(current.LastUpdated, a.At)

	next := state.Clone()
	next.Creatures = roster
	return next, nil
}

func replaceState(_ *Env, state *types.GameState, a *actions.ReplaceState) (*types.GameState, error) {
	if a.State == nil {
		return state, Invalid("state", "is required")
	}
	if a.State == state {
		return state, nil
	}
	return a.State, nil
}

func normalizeCreature(c types.Creature) (*types.Creature, error) {
	if strings.TrimSpace(c.ID) == "" {
		return nil, Invalid("creature.id", "is required")
	}
	if c.Generation < 0 {
		return nil, Invalid("creature.generation", "must not be negative")
	}
	if c.ExhaustionLevel < 0 {
		return nil, Invalid("creature.exhaustionLevel", "must not be negative")
	}
	if len(c.ParentIDs) != 0 && len(c.ParentIDs) != 2 {
		return nil, Invalid("creature.parentIds", "must have zero or two entries")
	}
	n := c.Copy()
	if len(n.ParentIDs) == 0 {
		n.ParentIDs = nil
	}
	if n.BaseStats == nil {
		n.BaseStats = n.Stats
	}
	if n.BaseStats == nil {
		n.BaseStats = map[string]int{}
	}
	n.BaseStats = copyStats(n.BaseStats)
	n.Stats = EffectiveStats(n.BaseStats, n.ExhaustionLevel)
	return n, nil
}

// Roster returns the state's creature roster, or an empty one.
func Roster(state *types.GameState) *types.CreatureRoster {
	if state.Creatures == nil {
		return types.NewCreatureRoster()
	}
	return state.Creatures
}

// Shops returns the state's shop state, or the default one.
func Shops(state *types.GameState) *types.ShopState {
	if state.Shops == nil {
		return types.DefaultShopState()
	}
	return state.Shops
}

// NextTimestamp returns at, or prev+1 when at would not advance past prev.
func NextTimestamp(prev, at int64) int64 {
	if at <= prev {
		return prev + 1
	}
	return at
}

// ExhaustionMultiplier is the stat multiplier for an exhaustion level.
func ExhaustionMultiplier(level int) float64 {
	m := 1 - constants.ExhaustionPenaltyPerLevel*float64(level)
	if m < constants.MinExhaustionMultiplier {
		return constants.MinExhaustionMultiplier
	}
	return m
}

// EffectiveStats applies the exhaustion multiplier to base stats, rounding to
// the nearest integer.
func EffectiveStats(base map[string]int, exhaustionLevel int) map[string]int {
	m := ExhaustionMultiplier(exhaustionLevel)
	stats := make(map[string]int, len(base))
	for name, v := range base {
		stats[name] = int(math.Round(float64(v) * m))
	}
	return stats
}

func copyStats(stats map[string]int) map[string]int {
	c := make(map[string]int, len(stats))
	for k, v := range stats {
		c[k] = v
	}
	return c
}
