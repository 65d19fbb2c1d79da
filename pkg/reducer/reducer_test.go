package reducer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unknownAction struct {
	actions.Meta
}

func (*unknownAction) Type() actions.Type { return "unknown" }

func TestReduce_UnknownAction(t *testing.T) {
	s := types.NewGameState()

	next, result := New(NewReducerOptions{}).Reduce(s, &unknownAction{})
	assert.Same(t, s, next)
	assert.False(t, result.Changed)
	assert.ErrorIs(t, result.Err, ErrUnknownAction)

	strict := New(NewReducerOptions{Strict: true})
	assert.Panics(t, func() { strict.Reduce(s, &unknownAction{}) })
}

func TestReduce_UnchangedReturnsSameState(t *testing.T) {
	r := New(NewReducerOptions{})
	s := types.NewGameState()

	next, result := r.Reduce(s, &actions.SetStoryFlag{Flag: "intro"})
	require.NoError(t, result.Err)
	require.True(t, result.Changed)

	again, result := r.Reduce(next, &actions.SetStoryFlag{Flag: "intro"})
	require.NoError(t, result.Err)
	assert.False(t, result.Changed)
	assert.Same(t, next, again)
}

func TestReduce_SharesUnchangedSubtrees(t *testing.T) {
	r := New(NewReducerOptions{})
	s := types.NewGameState()
	before := s.Copy()

	next, result := r.Reduce(s, &actions.UnlockArea{AreaID: "meadow"})
	require.NoError(t, result.Err)

	assert.NotSame(t, s, next)
	assert.Same(t, s.Shops, next.Shops)
	assert.Same(t, s.Creatures, next.Creatures)
	assert.Equal(t, types.StringSet{"meadow"}, next.UnlockedAreas)
	assert.Equal(t, before, s, "input state must not be mutated")
}

func TestReduce_ValidationLeavesStateUnchanged(t *testing.T) {
	r := New(NewReducerOptions{})
	s := types.NewGameState()

	for _, action := range []actions.Action{
		&actions.SetStoryFlag{Flag: " "},
		&actions.UnlockArea{},
		&actions.GainExperience{Amount: -1},
		&actions.AddCreature{},
		&actions.ReplaceState{},
	} {
		t.Run(string(action.Type()), func(t *testing.T) {
			next, result := r.Reduce(s, action)
			assert.ErrorIs(t, result.Err, ErrValidation)
			assert.False(t, IsBusinessRule(result.Err))
			assert.Same(t, s, next)
		})
	}
}

func TestGainExperience(t *testing.T) {
	r := New(NewReducerOptions{})
	s := types.NewGameState()

	s, result := r.Reduce(s, &actions.GainExperience{Amount: 999})
	require.NoError(t, result.Err)
	assert.Equal(t, 1, s.Player.Level)

	s, result = r.Reduce(s, &actions.GainExperience{Amount: 1001})
	require.NoError(t, result.Err)
	assert.Equal(t, int64(2000), s.Player.Experience)
	assert.Equal(t, 3, s.Player.Level)
}

func TestAddCreature(t *testing.T) {
	r := New(NewReducerOptions{})
	s := types.NewGameState()

	s, result := r.Reduce(s, &actions.AddCreature{
		Meta:     actions.Meta{At: 100},
		Creature: types.Creature{ID: "a", Species: "fox", Stats: map[string]int{"atk": 100}},
	})
	require.NoError(t, result.Err)

	a, ok := s.Creatures.Get("a")
	require.True(t, ok)
	assert.Equal(t, map[string]int{"atk": 100}, a.BaseStats)
	assert.Equal(t, map[string]int{"atk": 100}, a.Stats)
	assert.Nil(t, a.ParentIDs)
	assert.Equal(t, int64(100), s.Creatures.LastUpdated)

	// Same timestamp still advances LastUpdated.
	s, result = r.Reduce(s, &actions.AddCreature{
		Meta:     actions.Meta{At: 100},
		Creature: types.Creature{ID: "b", Species: "owl", BaseStats: map[string]int{"atk": 50}, ExhaustionLevel: 2},
	})
	require.NoError(t, result.Err)
	assert.Equal(t, int64(101), s.Creatures.LastUpdated)
	b, _ := s.Creatures.Get("b")
	assert.Equal(t, map[string]int{"atk": 30}, b.Stats)

	next, result := r.Reduce(s, &actions.AddCreature{Creature: types.Creature{ID: "a"}})
	assert.ErrorIs(t, result.Err, ErrValidation)
	assert.Same(t, s, next)

	_, result = r.Reduce(s, &actions.AddCreature{Creature: types.Creature{ID: "c", ParentIDs: []string{"a"}}})
	assert.ErrorIs(t, result.Err, ErrValidation)
}

func TestSeedCreatures(t *testing.T) {
	r := New(NewReducerOptions{})
	seed := []types.Creature{
		{ID: "a", Species: "fox", BaseStats: map[string]int{"atk": 10}},
		{ID: "b", Species: "owl", BaseStats: map[string]int{"atk": 20}},
	}

	empty := types.NewGameState()
	seeded, result := r.Reduce(empty, &actions.SeedCreatures{Meta: actions.Meta{At: 5}, Creatures: seed})
	require.NoError(t, result.Err)
	assert.Equal(t, 2, seeded.Creatures.Len())
	assert.Equal(t, int64(5), seeded.Creatures.LastUpdated)

	again, result := r.Reduce(seeded, &actions.SeedCreatures{Creatures: []types.Creature{{ID: "z"}}})
	require.NoError(t, result.Err)
	assert.False(t, result.Changed)
	assert.Same(t, seeded, again)

	_, result = r.Reduce(empty, &actions.SeedCreatures{Creatures: append(seed, seed[0])})
	assert.ErrorIs(t, result.Err, ErrValidation)
}

func TestReplaceState(t *testing.T) {
	r := New(NewReducerOptions{})
	s := types.NewGameState()
	replacement := types.NewGameState()
	replacement.Player.Gold = 42

	next, result := r.Reduce(s, &actions.ReplaceState{State: replacement})
	require.NoError(t, result.Err)
	assert.True(t, result.Changed)
	assert.Same(t, replacement, next)
}

func TestCustomHandlersOverrideCore(t *testing.T) {
	called := false
	r := New(NewReducerOptions{
		Handlers: map[actions.Type]Handler{
			actions.TypeSetStoryFlag: func(_ *Env, state *types.GameState, _ actions.Action) (*types.GameState, error) {
				called = true
				return nil, nil
			},
		},
	})
	s := types.NewGameState()
	next, result := r.Reduce(s, &actions.SetStoryFlag{Flag: "x"})
	assert.True(t, called)
	assert.NoError(t, result.Err)
	assert.Same(t, s, next)
	assert.True(t, r.Handles(actions.TypeUnlockArea))
	assert.False(t, r.Handles(actions.TypeBuyItem))
}

func TestTyped_WrongAction(t *testing.T) {
	h := Typed(func(_ *Env, state *types.GameState, _ *actions.SetStoryFlag) (*types.GameState, error) {
		return state, nil
	})
	_, err := h(nil, types.NewGameState(), &actions.UnlockArea{AreaID: "x"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestAddItems(t *testing.T) {
	testCases := []struct {
		name      string
		inventory []types.ItemStack
		quantity  int
		want      []types.ItemStack
		err       error
	}{
		{
			name:     "new stack",
			quantity: 3,
			want:     []types.ItemStack{{ItemID: "herb", Quantity: 3}},
		},
		{
			name:      "merges into existing stack",
			inventory: []types.ItemStack{{ItemID: "gem", Quantity: 1}, {ItemID: "herb", Quantity: 10}},
			quantity:  5,
			want:      []types.ItemStack{{ItemID: "gem", Quantity: 1}, {ItemID: "herb", Quantity: 15}},
		},
		{
			name:      "overflows into new stacks",
			inventory: []types.ItemStack{{ItemID: "herb", Quantity: 98}},
			quantity:  101,
			want: []types.ItemStack{
				{ItemID: "herb", Quantity: 99},
				{ItemID: "herb", Quantity: 99},
				{ItemID: "herb", Quantity: 1},
			},
		},
		{
			name:     "zero quantity",
			quantity: 0,
			err:      ErrValidation,
		},
		{
			name:      "full inventory",
			inventory: fullInventory(),
			quantity:  1,
			err:       ErrInventoryFull,
		},
		{
			name:      "full inventory absorbed by existing stack",
			inventory: append(fullInventory()[1:], types.ItemStack{ItemID: "herb", Quantity: 90}),
			quantity:  9,
			want:      append(fullInventory()[1:], types.ItemStack{ItemID: "herb", Quantity: 99}),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := types.CopyInventory(tc.inventory)
			got, err := AddItems(input, "herb", tc.quantity)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.inventory, input, "input inventory must not be mutated")
		})
	}
}

func fullInventory() []types.ItemStack {
	inventory := make([]types.ItemStack, constants.InventoryCapacity)
	for i := range inventory {
		inventory[i] = types.ItemStack{ItemID: fmt.Sprintf("item-%d", i), Quantity: constants.MaxStackSize}
	}
	return inventory
}

func TestRemoveItems(t *testing.T) {
	inventory := []types.ItemStack{
		{ItemID: "herb", Quantity: 99},
		{ItemID: "gem", Quantity: 1},
		{ItemID: "herb", Quantity: 4},
	}

	got, err := RemoveItems(inventory, "herb", 6)
	require.NoError(t, err)
	assert.Equal(t, []types.ItemStack{{ItemID: "herb", Quantity: 97}, {ItemID: "gem", Quantity: 1}}, got)

	got, err = RemoveItems(inventory, "gem", 1)
	require.NoError(t, err)
	assert.Equal(t, []types.ItemStack{{ItemID: "herb", Quantity: 99}, {ItemID: "herb", Quantity: 4}}, got)

	_, err = RemoveItems(inventory, "herb", 104)
	assert.ErrorIs(t, err, ErrInsufficientInventory)
	assert.True(t, IsBusinessRule(err))

	_, err = RemoveItems(inventory, "herb", -1)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, 99, inventory[0].Quantity, "input inventory must not be mutated")
}

func TestCreditGold(t *testing.T) {
	assert.Equal(t, int64(688), CreditGold(628, 60))
	assert.Equal(t, int64(constants.GoldMax), CreditGold(constants.GoldMax-1, 60))
	assert.Equal(t, int64(constants.GoldMax), CreditGold(constants.GoldMax, 0))
}

func TestEffectiveStats(t *testing.T) {
	base := map[string]int{"atk": 100, "def": 33}

	assert.Equal(t, base, EffectiveStats(base, 0))
	assert.Equal(t, map[string]int{"atk": 80, "def": 26}, EffectiveStats(base, 1))
	assert.Equal(t, map[string]int{"atk": 20, "def": 7}, EffectiveStats(base, 4))
	assert.Equal(t, map[string]int{"atk": 20, "def": 7}, EffectiveStats(base, 12))
	assert.InDelta(t, constants.MinExhaustionMultiplier, ExhaustionMultiplier(100), 1e-9)
}

func TestNextTimestamp(t *testing.T) {
	assert.Equal(t, int64(10), NextTimestamp(5, 10))
	assert.Equal(t, int64(6), NextTimestamp(5, 5))
	assert.Equal(t, int64(6), NextTimestamp(5, 1))
}

func TestErrors(t *testing.T) {
	err := Invalid("quantity", "must be positive")
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "invalid quantity: must be positive")

	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "quantity", validation.Field)

	assert.True(t, IsBusinessRule(fmt.Errorf("wrapped: %w", ErrTradeOnCooldown)))
	assert.False(t, IsBusinessRule(ErrUnknownAction))
}
