package types

import (
	"github.com/cbodonnell/menagerie/pkg/game/constants"
)

// GameState is the canonical game state.
//
// A published GameState is never mutated. Reducers produce a new GameState
// and new nested values along the changed path only, so unchanged subtrees
// can be compared by reference.
type GameState struct {
	Player        Player          `json:"player"`
	Inventory     []ItemStack     `json:"inventory"`
	Creatures     *CreatureRoster `json:"creatures"`
	Shops         *ShopState      `json:"shops"`
	StoryFlags    StringSet       `json:"storyFlags"`
	UnlockedAreas StringSet       `json:"unlockedAreas"`
	// ActiveShopID is the shop currently open in the UI. It is not persisted.
	ActiveShopID string `json:"-"`
}

type Player struct {
	Level      int   `json:"level"`
	Gold       int64 `json:"gold"`
	Experience int64 `json:"experience"`
}

type ItemStack struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// NewGameState returns the state of a fresh game.
func NewGameState() *GameState {
	return &GameState{
		Player: Player{
			Level: constants.StartingLevel,
			Gold:  constants.StartingGold,
		},
		Inventory:     []ItemStack{},
		Creatures:     NewCreatureRoster(),
		Shops:         DefaultShopState(),
		StoryFlags:    StringSet{},
		UnlockedAreas: StringSet{},
	}
}

// Clone returns a shallow copy of the state. Nested values are shared.
func (g *GameState) Clone() *GameState {
	c := *g
	return &c
}

// Copy returns a deep copy of the state.
func (g *GameState) Copy() *GameState {
	return &GameState{
		Player:        g.Player,
		Inventory:     CopyInventory(g.Inventory),
		Creatures:     g.Creatures.Copy(),
		Shops:         g.Shops.Copy(),
		StoryFlags:    g.StoryFlags.Copy(),
		UnlockedAreas: g.UnlockedAreas.Copy(),
		ActiveShopID:  g.ActiveShopID,
	}
}

// HasStoryFlag reports whether the story flag has been set.
func (g *GameState) HasStoryFlag(flag string) bool {
	return g.StoryFlags.Contains(flag)
}

// ItemQuantity returns the total quantity of an item across all stacks.
func (g *GameState) ItemQuantity(itemID string) int {
	total := 0
	for _, stack := range g.Inventory {
		if stack.ItemID == itemID {
			total += stack.Quantity
		}
	}
	return total
}

func CopyInventory(inventory []ItemStack) []ItemStack {
	if inventory == nil {
		return nil
	}
	c := make([]ItemStack, len(inventory))
	copy(c, inventory)
	return c
}
