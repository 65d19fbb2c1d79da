package shop

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/reducer"
)

func lookupTrade(env *reducer.Env, tradeID string) (types.Trade, error) {
	if err := requireID("tradeId", tradeID); err != nil {
		return types.Trade{}, err
	}
	if env == nil || env.Catalog == nil {
		return types.Trade{}, reducer.Invalid("tradeId", "no trade catalog configured")
	}
	trade, ok := env.Catalog.Trade(tradeID)
	if !ok {
		return types.Trade{}, reducer.Invalid("tradeId", fmt.Sprintf("unknown trade %q", tradeID))
	}
	return trade, nil
}

// Cooldown returns the cooldown applied after completing the trade.
func Cooldown(trade types.Trade) time.Duration {
	if trade.Cooldown > 0 {
		return trade.Cooldown
	}
	switch trade.Repeatability {
	case types.RepeatDaily:
		return constants.DailyCooldown
	case types.RepeatWeekly:
		return constants.WeeklyCooldown
	}
	return 0
}

// markCompleted records the trade as completed on a clone of current.
func markCompleted(current *types.ShopState, trade types.Trade, at int64) *types.ShopState {
	shops := current.Clone()
	shops.CompletedTrades = current.CompletedTrades.With(trade.ID)
	if trade.Repeatability != types.RepeatOneTime {
		cooldowns := make(map[string]int64, len(current.Cooldowns)+1)
		for id, expiry := range current.Cooldowns {
			cooldowns[id] = expiry
		}
		cooldowns[trade.ID] = at + Cooldown(trade).Milliseconds()
		shops.Cooldowns = cooldowns
	}
	return shops
}

// completeNPCTrade is bookkeeping only. Completing a one-time trade twice is
// a silent no-op.
func completeNPCTrade(env *reducer.Env, state *types.GameState, a *actions.CompleteNPCTrade) (*types.GameState, error) {
	trade, err := lookupTrade(env, a.TradeID)
	if err != nil {
		return state, err
	}
	current := reducer.Shops(state)
	if trade.Repeatability == types.RepeatOneTime && current.CompletedTrades.Contains(trade.ID) {
		return state, nil
	}
	return withShops(state, markCompleted(current, trade, a.At)), nil
}

// CheckRequirements reports whether the state satisfies the trade's unlock
// requirements.
func CheckRequirements(state *types.GameState, req types.TradeRequirements) error {
	if req.MinLevel > 0 && state.Player.Level < req.MinLevel {
		return fmt.Errorf("%w: requires level %d", reducer.ErrRequirementsNotMet, req.MinLevel)
	}
	if req.Quest != "" && !state.StoryFlags.Contains(types.QuestFlag(req.Quest)) {
		return fmt.Errorf("%w: requires quest %s", reducer.ErrRequirementsNotMet, req.Quest)
	}
	if req.Area != "" && !state.UnlockedAreas.Contains(req.Area) {
		return fmt.Errorf("%w: requires area %s", reducer.ErrRequirementsNotMet, req.Area)
	}
	if req.StoryFlag != "" && !state.StoryFlags.Contains(req.StoryFlag) {
		return fmt.Errorf("%w: requires story flag %s", reducer.ErrRequirementsNotMet, req.StoryFlag)
	}
	return nil
}

// CheckTrade reports why the trade cannot be executed at the given time, or
// nil if it can.
func CheckTrade(state *types.GameState, trade types.Trade, at int64) error {
	current := reducer.Shops(state)
	if trade.Repeatability == types.RepeatOneTime && current.CompletedTrades.Contains(trade.ID) {
		return fmt.Errorf("%w: trade %s already completed", reducer.ErrRequirementsNotMet, trade.ID)
	}
	if expiry, ok := current.Cooldowns[trade.ID]; ok && at < expiry {
		return reducer.ErrTradeOnCooldown
	}
	if err := CheckRequirements(state, trade.Requirements); err != nil {
		return err
	}
	if trade.RequiredGold > state.Player.Gold {
		return reducer.ErrInsufficientFunds
	}
	inventory := state.Inventory
	for _, item := range trade.RequiredItems {
		var err error
		if inventory, err = reducer.RemoveItems(inventory, item.ItemID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func executeTrade(env *reducer.Env, state *types.GameState, a *actions.ExecuteTrade) (*types.GameState, error) {
	trade, err := lookupTrade(env, a.TradeID)
	if err != nil {
		return state, err
	}
	if err := CheckTrade(state, trade, a.At); err != nil {
		return state, err
	}
	current := reducer.Shops(state)

	inventory := state.Inventory
	for _, item := range trade.RequiredItems {
		inventory, err = reducer.RemoveItems(inventory, item.ItemID, item.Quantity)
		if err != nil {
			return state, err
		}
	}

	rng := rand.New(rand.NewPCG(uint64(a.Seed), uint64(a.At)))
	for _, item := range trade.OfferedItems {
		if !dropped(rng, item.DropChance) {
			continue
		}
		inventory, err = reducer.AddItems(inventory, item.ItemID, item.Quantity)
		if err != nil {
			return state, err
		}
	}

	shops := markCompleted(current, trade, a.At)
	net := trade.OfferedGold - trade.RequiredGold
	shops.History = PrependTransaction(current.History, types.Transaction{
		ShopID:     trade.ShopID,
		ItemID:     trade.ID,
		Quantity:   1,
		UnitValue:  net,
		TotalValue: net,
		Direction:  types.TransactionTrade,
		Timestamp:  a.At,
	})

	next := withShops(state, shops)
	next.Player.Gold = reducer.CreditGold(state.Player.Gold-trade.RequiredGold, trade.OfferedGold)
	next.Inventory = inventory
	return next, nil
}

// dropped rolls an offered item. A zero chance means the item is guaranteed.
func dropped(rng *rand.Rand, chance float64) bool {
	if chance <= 0 || chance >= 1 {
		return true
	}
	return rng.Float64() < chance
}
