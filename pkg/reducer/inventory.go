package reducer

import (
	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
)

// AddItems returns a new inventory holding quantity more of itemID. Existing
// stacks are filled up to MaxStackSize first, then new stacks are appended.
// The input inventory is not modified.
func AddItems(inventory []types.ItemStack, itemID string, quantity int) ([]types.ItemStack, error) {
	if quantity <= 0 {
		return nil, Invalid("quantity", "must be positive")
	}

	remaining := quantity
	free := 0
	for _, stack := range inventory {
		if stack.ItemID == itemID {
			free += constants.MaxStackSize - stack.Quantity
		}
	}
	overflow := remaining - free
	newStacks := 0
	if overflow > 0 {
		newStacks = (overflow + constants.MaxStackSize - 1) / constants.MaxStackSize
	}
	if len(inventory)+newStacks > constants.InventoryCapacity {
		return nil, ErrInventoryFull
	}

	next := make([]types.ItemStack, len(inventory), len(inventory)+newStacks)
	copy(next, inventory)
	for i := range next {
		if remaining == 0 {
			break
		}
		if next[i].ItemID != itemID {
			continue
		}
		room := constants.MaxStackSize - next[i].Quantity
		if room <= 0 {
			continue
		}
		n := min(room, remaining)
		next[i].Quantity += n
		remaining -= n
	}
	for remaining > 0 {
		n := min(constants.MaxStackSize, remaining)
		next = append(next, types.ItemStack{ItemID: itemID, Quantity: n})
		remaining -= n
	}
	return next, nil
}

// RemoveItems returns a new inventory holding quantity less of itemID.
// Stacks are drained from the last one backwards and removed when empty.
func RemoveItems(inventory []types.ItemStack, itemID string, quantity int) ([]types.ItemStack, error) {
	if quantity <= 0 {
		return nil, Invalid("quantity", "must be positive")
	}

	owned := 0
	for _, stack := range inventory {
		if stack.ItemID == itemID {
			owned += stack.Quantity
		}
	}
	if owned < quantity {
		return nil, ErrInsufficientInventory
	}

	remaining := quantity
	drained := make([]types.ItemStack, len(inventory))
	copy(drained, inventory)
	for i := len(drained) - 1; i >= 0 && remaining > 0; i-- {
		if drained[i].ItemID != itemID {
			continue
		}
		n := min(drained[i].Quantity, remaining)
		drained[i].Quantity -= n
		remaining -= n
	}

	next := make([]types.ItemStack, 0, len(drained))
	for _, stack := range drained {
		if stack.Quantity > 0 {
			next = append(next, stack)
		}
	}
	return next, nil
}

// CreditGold adds amount to gold, capped at GoldMax.
func CreditGold(gold, amount int64) int64 {
	if amount > constants.GoldMax-gold {
		return constants.GoldMax
	}
	return gold + amount
}
