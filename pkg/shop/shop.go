// Package shop implements the shop and NPC trade reducers.
package shop

import (
	"fmt"
	"strings"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/reducer"
)

// Handlers returns the shop reducers keyed by action type.
func Handlers() map[actions.Type]reducer.Handler {
	return map[actions.Type]reducer.Handler{
		actions.TypeDiscoverShop:          reducer.Typed(discoverShop),
		actions.TypeUnlockShop:            reducer.Typed(unlockShop),
		actions.TypeOpenShop:              reducer.Typed(openShop),
		actions.TypeCloseShop:             reducer.Typed(closeShop),
		actions.TypeBuyItem:               reducer.Typed(buyItem),
		actions.TypeSellItem:              reducer.Typed(sellItem),
		actions.TypeAddTransaction:        reducer.Typed(addTransaction),
		actions.TypeCompleteShopTutorial:  reducer.Typed(completeShopTutorial),
		actions.TypeCompleteTradeTutorial: reducer.Typed(completeTradeTutorial),
		actions.TypeCompleteNPCTrade:      reducer.Typed(completeNPCTrade),
		actions.TypeExecuteTrade:          reducer.Typed(executeTrade),
		actions.TypeSetShopInventory:      reducer.Typed(setShopInventory),
	}
}

// IsShopUnlocked reports whether the shop has been unlocked.
func IsShopUnlocked(state *types.GameState, shopID string) bool {
	return state.Shops.IsUnlocked(shopID)
}

// TransactionHistory returns the recorded transactions, most recent first.
func TransactionHistory(state *types.GameState) []types.Transaction {
	if state.Shops == nil {
		return []types.Transaction{}
	}
	return append([]types.Transaction{}, state.Shops.History...)
}

// PrependTransaction returns a history with tx at its head, truncated to
// TransactionHistoryLimit entries.
func PrependTransaction(history []types.Transaction, tx types.Transaction) []types.Transaction {
	n := min(len(history)+1, constants.TransactionHistoryLimit)
	next := make([]types.Transaction, 0, n)
	next = append(next, tx)
	return append(next, history[:n-1]...)
}

func requireID(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return reducer.Invalid(field, "is required")
	}
	return nil
}

func withShops(state *types.GameState, shops *types.ShopState) *types.GameState {
	next := state.Clone()
	next.Shops = shops
	return next
}

func discoverShop(_ *reducer.Env, state *types.GameState, a *actions.DiscoverShop) (*types.GameState, error) {
	if err := requireID("shopId", a.ShopID); err != nil {
		return state, err
	}
	current := reducer.Shops(state)
	if current.Discovered.Contains(a.ShopID) {
		return state, nil
	}
	shops := current.Clone()
	shops.Discovered = current.Discovered.With(a.ShopID)
	return withShops(state, shops), nil
}

func unlockShop(_ *reducer.Env, state *types.GameState, a *actions.UnlockShop) (*types.GameState, error) {
	if err := requireID("shopId", a.ShopID); err != nil {
		return state, err
	}
	current := reducer.Shops(state)
	if current.Unlocked.Contains(a.ShopID) && current.Discovered.Contains(a.ShopID) {
		return state, nil
	}
	shops := current.Clone()
	shops.Discovered = current.Discovered.With(a.ShopID)
	shops.Unlocked = current.Unlocked.With(a.ShopID)
	return withShops(state, shops), nil
}

func openShop(_ *reducer.Env, state *types.GameState, a *actions.OpenShop) (*types.GameState, error) {
	if err := requireID("shopId", a.ShopID); err != nil {
		return state, err
	}
	if state.ActiveShopID == a.ShopID {
		return state, nil
	}
	next := state.Clone()
	next.ActiveShopID = a.ShopID
	return next, nil
}

func closeShop(_ *reducer.Env, state *types.GameState, _ *actions.CloseShop) (*types.GameState, error) {
	if state.ActiveShopID == "" {
		return state, nil
	}
	next := state.Clone()
	next.ActiveShopID = ""
	return next, nil
}

func buyItem(_ *reducer.Env, state *types.GameState, a *actions.BuyItem) (*types.GameState, error) {
	if err := requireID("shopId", a.ShopID); err != nil {
		return state, err
	}
	if err := requireID("itemId", a.ItemID); err != nil {
		return state, err
	}
	if a.Quantity <= 0 {
		return state, reducer.Invalid("quantity", "must be positive")
	}
	if a.TotalCost < 0 {
		return state, reducer.Invalid("totalCost", "must not be negative")
	}
	if a.TotalCost > state.Player.Gold {
		return state, reducer.ErrInsufficientFunds
	}
	current := reducer.Shops(state)
	inventories, err := takeStock(current.Inventories, a.ShopID, a.ItemID, a.Quantity)
	if err != nil {
		return state, err
	}
	inventory, err := reducer.AddItems(state.Inventory, a.ItemID, a.Quantity)
	if err != nil {
		return state, err
	}

	shops := current.Clone()
	shops.Inventories = inventories
	shops.History = PrependTransaction(current.History, types.Transaction{
		ShopID:     a.ShopID,
		ItemID:     a.ItemID,
		Quantity:   a.Quantity,
		UnitValue:  a.TotalCost / int64(a.Quantity),
		TotalValue: a.TotalCost,
		Direction:  types.TransactionBuy,
		Timestamp:  a.At,
	})

	next := withShops(state, shops)
	next.Player.Gold -= a.TotalCost
	next.Inventory = inventory
	return next, nil
}

// takeStock removes quantity from a cached shop's stock. Shops whose stock
// was never cached are not limited.
func takeStock(inventories map[string][]types.ShopItem, shopID, itemID string, quantity int) (map[string][]types.ShopItem, error) {
	cached, ok := inventories[shopID]
	if !ok {
		return inventories, nil
	}
	idx := -1
	for i, item := range cached {
		if item.ItemID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, reducer.Invalid("itemId", fmt.Sprintf("%s is not sold at %s", itemID, shopID))
	}
	if cached[idx].Stock < quantity {
		return nil, fmt.Errorf("%w: %d %s left", reducer.ErrOutOfStock, cached[idx].Stock, itemID)
	}

	stock := make([]types.ShopItem, len(cached))
	copy(stock, cached)
	stock[idx].Stock -= quantity

	next := make(map[string][]types.ShopItem, len(inventories))
	for id, items := range inventories {
		next[id] = items
	}
	next[shopID] = stock
	return next, nil
}

func sellItem(_ *reducer.Env, state *types.GameState, a *actions.SellItem) (*types.GameState, error) {
	if err := requireID("shopId", a.ShopID); err != nil {
		return state, err
	}
	if err := requireID("itemId", a.ItemID); err != nil {
		return state, err
	}
	if a.Quantity <= 0 {
		return state, reducer.Invalid("quantity", "must be positive")
	}
	if a.TotalValue < 0 {
		return state, reducer.Invalid("totalValue", "must not be negative")
	}
	inventory, err := reducer.RemoveItems(state.Inventory, a.ItemID, a.Quantity)
	if err != nil {
		return state, err
	}

	current := reducer.Shops(state)
	shops := current.Clone()
	shops.History = PrependTransaction(current.History, types.Transaction{
		ShopID:     a.ShopID,
		ItemID:     a.ItemID,
		Quantity:   a.Quantity,
		UnitValue:  a.TotalValue / int64(a.Quantity),
		TotalValue: a.TotalValue,
		Direction:  types.TransactionSell,
		Timestamp:  a.At,
	})

	next := withShops(state, shops)
	next.Player.Gold = reducer.CreditGold(state.Player.Gold, a.TotalValue)
	next.Inventory = inventory
	return next, nil
}

func addTransaction(_ *reducer.Env, state *types.GameState, a *actions.AddTransaction) (*types.GameState, error) {
	tx := a.Transaction
	if tx.Quantity < 0 {
		return state, reducer.Invalid("transaction.quantity", "must not be negative")
	}
	if tx.Timestamp == 0 {
		tx.Timestamp = a.At
	}
	current := reducer.Shops(state)
	shops := current.Clone()
	shops.History = PrependTransaction(current.History, tx)
	return withShops(state, shops), nil
}

func setShopInventory(_ *reducer.Env, state *types.GameState, a *actions.SetShopInventory) (*types.GameState, error) {
	if err := requireID("shopId", a.ShopID); err != nil {
		return state, err
	}
	items := make([]types.ShopItem, 0, len(a.Items))
	for i, item := range a.Items {
		if err := requireID(fmt.Sprintf("items[%d].itemId", i), item.ItemID); err != nil {
			return state, err
		}
		if item.Price < 0 || item.Stock < 0 {
			return state, reducer.Invalid(fmt.Sprintf("items[%d]", i), "price and stock must not be negative")
		}
		items = append(items, item)
	}
	current := reducer.Shops(state)
	shops := current.Clone()
	inventories := make(map[string][]types.ShopItem, len(current.Inventories)+1)
	for id, cached := range current.Inventories {
		inventories[id] = cached
	}
	inventories[a.ShopID] = items
	shops.Inventories = inventories
	return withShops(state, shops), nil
}

func completeShopTutorial(_ *reducer.Env, state *types.GameState, _ *actions.CompleteShopTutorial) (*types.GameState, error) {
	current := reducer.Shops(state)
	if current.ShopTutorialCompleted {
		return state, nil
	}
	shops := current.Clone()
	shops.ShopTutorialCompleted = true
	return withShops(state, shops), nil
}

func completeTradeTutorial(_ *reducer.Env, state *types.GameState, _ *actions.CompleteTradeTutorial) (*types.GameState, error) {
	current := reducer.Shops(state)
	if current.TradeTutorialCompleted {
		return state, nil
	}
	shops := current.Clone()
	shops.TradeTutorialCompleted = true
	return withShops(state, shops), nil
}
