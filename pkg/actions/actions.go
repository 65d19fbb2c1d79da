// Package actions declares every mutation that can be dispatched to the
// canonical store.
package actions

import (
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/menagerie/pkg/game/types"
)

type Type string

const (
	TypeDiscoverShop          Type = "discoverShop"
	TypeUnlockShop            Type = "unlockShop"
	TypeOpenShop              Type = "openShop"
	TypeCloseShop             Type = "closeShop"
	TypeBuyItem               Type = "buyItem"
	TypeSellItem              Type = "sellItem"
	TypeAddTransaction        Type = "addTransaction"
	TypeCompleteShopTutorial  Type = "completeShopTutorial"
	TypeCompleteTradeTutorial Type = "completeTradeTutorial"
	TypeCompleteNPCTrade      Type = "completeNPCTrade"
	TypeExecuteTrade          Type = "executeTrade"
	TypeBreedCreatures        Type = "breedCreatures"
	TypeAddCreature           Type = "addCreature"
	TypeSeedCreatures         Type = "seedCreatures"
	TypeSetStoryFlag          Type = "setStoryFlag"
	TypeUnlockArea            Type = "unlockArea"
	TypeGainExperience        Type = "gainExperience"
	TypeReplaceState          Type = "replaceState"
	TypeSetShopInventory      Type = "setShopInventory"
)

// Meta is stamped on every action by the store before it is reduced.
type Meta struct {
	// At is the dispatch time in unix milliseconds.
	At int64 `json:"at,omitempty"`
}

func (m *Meta) Metadata() *Meta {
	return m
}

// Action is a declared mutation of the canonical state.
type Action interface {
	Type() Type
	Metadata() *Meta
}

// Identified is implemented by actions that create an entity and need a
// fresh unique id assigned before reduction.
type Identified interface {
	Action
	AssignID(newID func() string)
}

// Seeded is implemented by actions that need a random seed assigned before
// reduction so their outcome stays deterministic.
type Seeded interface {
	Action
	AssignSeed(newSeed func() int64)
}

type DiscoverShop struct {
	Meta
	ShopID string `json:"shopId"`
}

func (*DiscoverShop) Type() Type { return TypeDiscoverShop }

type UnlockShop struct {
	Meta
	ShopID string `json:"shopId"`
}

func (*UnlockShop) Type() Type { return TypeUnlockShop }

type OpenShop struct {
	Meta
	ShopID string `json:"shopId"`
}

func (*OpenShop) Type() Type { return TypeOpenShop }

type CloseShop struct {
	Meta
}

func (*CloseShop) Type() Type { return TypeCloseShop }

type BuyItem struct {
	Meta
	ShopID    string `json:"shopId"`
	ItemID    string `json:"itemId"`
	Quantity  int    `json:"quantity"`
	TotalCost int64  `json:"totalCost"`
}

func (*BuyItem) Type() Type { return TypeBuyItem }

type SellItem struct {
	Meta
	ShopID     string `json:"shopId"`
	ItemID     string `json:"itemId"`
	Quantity   int    `json:"quantity"`
	TotalValue int64  `json:"totalValue"`
}

func (*SellItem) Type() Type { return TypeSellItem }

type AddTransaction struct {
	Meta
	Transaction types.Transaction `json:"transaction"`
}

func (*AddTransaction) Type() Type { return TypeAddTransaction }

// SetShopInventory caches the stock a shop currently offers.
type SetShopInventory struct {
	Meta
	ShopID string           `json:"shopId"`
	Items  []types.ShopItem `json:"items"`
}

func (*SetShopInventory) Type() Type { return TypeSetShopInventory }

type CompleteShopTutorial struct {
	Meta
}

func (*CompleteShopTutorial) Type() Type { return TypeCompleteShopTutorial }

type CompleteTradeTutorial struct {
	Meta
}

func (*CompleteTradeTutorial) Type() Type { return TypeCompleteTradeTutorial }

type CompleteNPCTrade struct {
	Meta
	TradeID string `json:"tradeId"`
}

func (*CompleteNPCTrade) Type() Type { return TypeCompleteNPCTrade }

// ExecuteTrade exchanges the trade's required items and gold for its offered
// items and gold, then records the trade as completed.
type ExecuteTrade struct {
	Meta
	TradeID string `json:"tradeId"`
	// Seed drives the drop chance rolls of offered items.
	Seed int64 `json:"seed,omitempty"`
}

func (*ExecuteTrade) Type() Type { return TypeExecuteTrade }

func (a *ExecuteTrade) AssignSeed(newSeed func() int64) {
	if a.Seed == 0 {
		a.Seed = newSeed()
	}
}

type BreedCreatures struct {
	Meta
	ParentID1 string `json:"parentId1"`
	ParentID2 string `json:"parentId2"`
	// OffspringID is the id given to the offspring.
	OffspringID string `json:"offspringId,omitempty"`
}

func (*BreedCreatures) Type() Type { return TypeBreedCreatures }

func (a *BreedCreatures) AssignID(newID func() string) {
	if a.OffspringID == "" {
		a.OffspringID = newID()
	}
}

// AddCreature adds a captured creature to the roster.
type AddCreature struct {
	Meta
	Creature types.Creature `json:"creature"`
}

func (*AddCreature) Type() Type { return TypeAddCreature }

func (a *AddCreature) AssignID(newID func() string) {
	if a.Creature.ID == "" {
		a.Creature.ID = newID()
	}
}

// SeedCreatures populates an empty roster from a derived cache.
type SeedCreatures struct {
	Meta
	Creatures []types.Creature `json:"creatures"`
}

func (*SeedCreatures) Type() Type { return TypeSeedCreatures }

type SetStoryFlag struct {
	Meta
	Flag string `json:"flag"`
}

func (*SetStoryFlag) Type() Type { return TypeSetStoryFlag }

type UnlockArea struct {
	Meta
	AreaID string `json:"areaId"`
}

func (*UnlockArea) Type() Type { return TypeUnlockArea }

type GainExperience struct {
	Meta
	Amount int64 `json:"amount"`
}

func (*GainExperience) Type() Type { return TypeGainExperience }

// ReplaceState swaps the whole canonical state, as on load or new game.
type ReplaceState struct {
	Meta
	State *types.GameState `json:"-"`
}

func (*ReplaceState) Type() Type { return TypeReplaceState }

var factories = map[Type]func() Action{
	TypeDiscoverShop:          func() Action { return &DiscoverShop{} },
	TypeUnlockShop:            func() Action { return &UnlockShop{} },
	TypeOpenShop:              func() Action { return &OpenShop{} },
	TypeCloseShop:             func() Action { return &CloseShop{} },
	TypeBuyItem:               func() Action { return &BuyItem{} },
	TypeSellItem:              func() Action { return &SellItem{} },
	TypeAddTransaction:        func() Action { return &AddTransaction{} },
	TypeCompleteShopTutorial:  func() Action { return &CompleteShopTutorial{} },
	TypeCompleteTradeTutorial: func() Action { return &CompleteTradeTutorial{} },
	TypeCompleteNPCTrade:      func() Action { return &CompleteNPCTrade{} },
	TypeExecuteTrade:          func() Action { return &ExecuteTrade{} },
	TypeBreedCreatures:        func() Action { return &BreedCreatures{} },
	TypeAddCreature:           func() Action { return &AddCreature{} },
	TypeSeedCreatures:         func() Action { return &SeedCreatures{} },
	TypeSetStoryFlag:          func() Action { return &SetStoryFlag{} },
	TypeUnlockArea:            func() Action { return &UnlockArea{} },
	TypeGainExperience:        func() Action { return &GainExperience{} },
	TypeSetShopInventory:      func() Action { return &SetShopInventory{} },
}

// Decode builds an action of the given type from its JSON payload.
// ReplaceState cannot be decoded; it is only dispatched by the save manager.
func Decode(t Type, payload []byte) (Action, error) {
	factory, ok := factories[t]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", t)
	}
	action := factory()
	if len(payload) == 0 {
		return action, nil
	}
	if err := json.Unmarshal(payload, action); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
	}
	*action.Metadata() = Meta{}
	return action, nil
}
