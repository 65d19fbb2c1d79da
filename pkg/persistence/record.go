// Package persistence serializes the canonical state into versioned records
// and loads older records through a chain of forward migrations.
package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
)

// CurrentVersion is the schema version written by Serialize.
//
//	1: player, inventory, creatures, storyFlags, unlockedAreas
//	2: shops
//	3: creature baseStats and exhaustionLevel, roster breedingAttempts
const CurrentVersion = 3

// Record is the durable envelope of a saved game.
type Record struct {
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

// Serialize snapshots the state into a record at CurrentVersion.
func Serialize(state *types.GameState) (*Record, error) {
	if state == nil {
		return nil, fmt.Errorf("game state is nil")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game state: %w", err)
	}
	return &Record{
		Version: CurrentVersion,
		Payload: payload,
	}, nil
}

// Deserialize rebuilds the state stored in a record, migrating it forward
// if it was written by an older version. It either returns a complete state
// or a corrupt record error, never a partial state.
func Deserialize(record *Record) (*types.GameState, error) {
	if record == nil {
		return nil, corrupt("record is nil", nil)
	}
	if record.Version < 1 || record.Version > CurrentVersion {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", record.Version), nil)
	}

	var doc document
	decoder := json.NewDecoder(bytes.NewReader(record.Payload))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, corrupt("payload is not valid JSON", err)
	}
	if doc == nil {
		return nil, corrupt("payload is empty", nil)
	}

	if err := migrate(doc, record.Version); err != nil {
		return nil, corrupt("migration failed", err)
	}
	if err := requireScalars(doc); err != nil {
		return nil, err
	}

	migrated, err := json.Marshal(doc)
	if err != nil {
		return nil, corrupt("failed to re-encode payload", err)
	}
	state := &types.GameState{}
	if err := json.Unmarshal(migrated, state); err != nil {
		return nil, corrupt("payload does not match schema", err)
	}

	normalize(state)
	if err := validate(state); err != nil {
		return nil, err
	}
	return state, nil
}

func requireScalars(doc document) error {
	player, ok := doc["player"].(map[string]any)
	if !ok {
		return corrupt("player is missing", nil)
	}
	for _, field := range []string{"gold", "level"} {
		if _, ok := player[field].(json.Number); !ok {
			return corrupt(fmt.Sprintf("player.%s is missing", field), nil)
		}
	}
	return nil
}

// normalize replaces absent collections with empty ones so loaded states
// have the same shape as fresh ones.
func normalize(state *types.GameState) {
	if state.Inventory == nil {
		state.Inventory = []types.ItemStack{}
	}
	if state.StoryFlags == nil {
		state.StoryFlags = types.StringSet{}
	}
	if state.UnlockedAreas == nil {
		state.UnlockedAreas = types.StringSet{}
	}
	if state.Creatures == nil {
		state.Creatures = types.NewCreatureRoster()
	}
	if state.Creatures.Entries == nil {
		state.Creatures.Entries = make(map[string]*types.Creature)
	}
	for id, creature := range state.Creatures.Entries {
		if creature == nil {
			continue
		}
		if creature.ID == "" {
			creature.ID = id
		}
		if creature.BaseStats == nil {
			creature.BaseStats = map[string]int{}
		}
		if creature.Stats == nil {
			creature.Stats = map[string]int{}
		}
	}
	defaults := types.DefaultShopState()
	if state.Shops == nil {
		state.Shops = defaults
		return
	}
	if state.Shops.Discovered == nil {
		state.Shops.Discovered = defaults.Discovered
	}
	if state.Shops.Unlocked == nil {
		state.Shops.Unlocked = defaults.Unlocked
	}
	if state.Shops.Inventories == nil {
		state.Shops.Inventories = defaults.Inventories
	}
	for id, items := range state.Shops.Inventories {
		if items == nil {
			state.Shops.Inventories[id] = []types.ShopItem{}
		}
	}
	if state.Shops.History == nil {
		state.Shops.History = defaults.History
	}
	if state.Shops.CompletedTrades == nil {
		state.Shops.CompletedTrades = defaults.CompletedTrades
	}
	if state.Shops.Cooldowns == nil {
		state.Shops.Cooldowns = defaults.Cooldowns
	}
}

func validate(state *types.GameState) error {
	if state.Player.Gold < 0 || state.Player.Gold > constants.GoldMax {
		return corrupt(fmt.Sprintf("player.gold %d out of range", state.Player.Gold), nil)
	}
	if state.Player.Level < 1 {
		return corrupt(fmt.Sprintf("player.level %d out of range", state.Player.Level), nil)
	}
	for i, stack := range state.Inventory {
		if stack.Quantity <= 0 {
			return corrupt(fmt.Sprintf("inventory[%d] has quantity %d", i, stack.Quantity), nil)
		}
	}
	if len(state.Shops.History) > constants.TransactionHistoryLimit {
		return corrupt(fmt.Sprintf("transaction history has %d entries", len(state.Shops.History)), nil)
	}
	for name, set := range map[string]types.StringSet{
		"storyFlags":            state.StoryFlags,
		"unlockedAreas":         state.UnlockedAreas,
		"shops.discovered":      state.Shops.Discovered,
		"shops.unlocked":        state.Shops.Unlocked,
		"shops.completedTrades": state.Shops.CompletedTrades,
	} {
		seen := make(map[string]struct{}, len(set))
		for _, v := range set {
			if _, dup := seen[v]; dup {
				return corrupt(fmt.Sprintf("%s contains %q twice", name, v), nil)
			}
			seen[v] = struct{}{}
		}
	}
	for id, creature := range state.Creatures.Entries {
		if creature == nil {
			return corrupt(fmt.Sprintf("creature %s is null", id), nil)
		}
		if creature.ID != id {
			return corrupt(fmt.Sprintf("creature %s stored under id %s", creature.ID, id), nil)
		}
		if creature.Generation < 0 || creature.ExhaustionLevel < 0 {
			return corrupt(fmt.Sprintf("creature %s has negative counters", id), nil)
		}
	}
	return nil
}
