package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/catalog"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/cbodonnell/menagerie/pkg/persistence"
	"github.com/cbodonnell/menagerie/pkg/reducer"
	"github.com/cbodonnell/menagerie/pkg/repositories"
	"github.com/cbodonnell/menagerie/pkg/roster"
	"github.com/cbodonnell/menagerie/pkg/state"
	"github.com/cbodonnell/menagerie/pkg/workers"
)

const defaultTickInterval = 16 * time.Millisecond

// GameManager owns the canonical store and the services around it: saving,
// autosave, the derived roster view and the tick loop running deferred work.
type GameManager struct {
	store        *state.InMemoryStateManager
	saves        *persistence.SaveManager
	autosave     *workers.AutosaveWorker
	roster       *roster.Cache
	catalog      *catalog.Catalog
	slotLock     sync.RWMutex
	slot         string
	delay        time.Duration
	tickInterval time.Duration
	logger       *log.Logger
}

// NewGameManagerOptions contains options for creating a new GameManager.
type NewGameManagerOptions struct {
	Repository repositories.Repository
	Catalog    *catalog.Catalog
	// Slot is the save slot loaded on Start and written by autosave.
	Slot          string
	AutosaveDelay time.Duration
	TickInterval  time.Duration
	// Strict makes the reducer panic on unknown actions.
	Strict bool
	// Clock, NewID and NewSeed override the store defaults.
	Clock   func() time.Time
	NewID   func() string
	NewSeed func() int64
}

func NewGameManager(opts NewGameManagerOptions) *GameManager {
	gameCatalog := opts.Catalog
	if gameCatalog == nil {
		gameCatalog = catalog.Empty()
	}
	store := state.NewInMemoryStateManager(state.NewInMemoryStateManagerOptions{
		Reducer: NewReducer(NewReducerOptions{
			Catalog: gameCatalog,
			Strict:  opts.Strict,
		}),
		Clock:   opts.Clock,
		NewID:   opts.NewID,
		NewSeed: opts.NewSeed,
	})
	gm := &GameManager{
		store: store,
		saves: persistence.NewSaveManager(persistence.NewSaveManagerOptions{
			Repository: opts.Repository,
			Store:      store,
		}),
		roster:       roster.NewCache(store),
		catalog:      gameCatalog,
		slot:         opts.Slot,
		delay:        opts.AutosaveDelay,
		tickInterval: opts.TickInterval,
		logger:       log.Default().WithComponent("game"),
	}
	if gm.slot == "" {
		gm.slot = "default"
	}
	if gm.tickInterval <= 0 {
		gm.tickInterval = defaultTickInterval
	}
	return gm
}

// Load replaces the canonical state with the save slot and starts watching
// for changes to autosave. A corrupt slot is reported and autosave is not
// started, so the slot is never overwritten by a fresh game.
func (gm *GameManager) Load(ctx context.Context) error {
	slot := gm.Slot()
	loaded, err := gm.saves.Load(ctx, slot)
	if err != nil {
		return fmt.Errorf("failed to load save slot %s: %w", slot, err)
	}
	gm.logger.Info("Loaded slot %s: level %d, %d gold, %d creatures",
		slot, loaded.Player.Level, loaded.Player.Gold, loaded.Creatures.Len())

	if gm.autosave == nil {
		gm.autosave = workers.NewAutosaveWorker(workers.NewAutosaveWorkerOptions{
			Saver: gm.saves,
			Store: gm.store,
			Slot:  slot,
			Delay: gm.delay,
		})
	}
	return nil
}

// Start loads the save slot if needed and runs the tick loop until the
// context is cancelled.
func (gm *GameManager) Start(ctx context.Context) error {
	if gm.autosave == nil {
		if err := gm.Load(ctx); err != nil {
			return err
		}
	}
	go gm.autosave.Start(ctx)

	gm.logger.Info("Game loop running every %s", gm.tickInterval)
	gm.store.Run(ctx, gm.tickInterval)
	return nil
}

// Stop writes unsaved changes and releases the roster view.
func (gm *GameManager) Stop(ctx context.Context) error {
	defer gm.roster.Close()
	if gm.autosave == nil {
		return nil
	}
	if err := gm.autosave.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush autosave: %w", err)
	}
	return nil
}

// Dispatch reduces the action into the canonical state.
func (gm *GameManager) Dispatch(action actions.Action) reducer.Result {
	return gm.store.Dispatch(action)
}

// OpenShop opens the shop and caches its catalog stock the first time it
// is opened.
func (gm *GameManager) OpenShop(shopID string) reducer.Result {
	result := gm.store.Dispatch(&actions.OpenShop{ShopID: shopID})
	if result.Err != nil {
		return result
	}
	shop, ok := gm.catalog.Shop(shopID)
	if !ok {
		return result
	}
	if _, cached := reducer.Shops(gm.store.Get()).Inventories[shopID]; cached {
		return result
	}
	stock := gm.store.Dispatch(&actions.SetShopInventory{ShopID: shopID, Items: shop.Stock})
	if stock.Err != nil {
		return stock
	}
	return reducer.Result{Changed: result.Changed || stock.Changed}
}

// Hydrate offers a locally cached roster to seed an empty canonical roster.
func (gm *GameManager) Hydrate(local []types.Creature) (roster.HydrateOutcome, error) {
	return gm.roster.Hydrate(local)
}

// Save writes the current state to the given slot immediately.
func (gm *GameManager) Save(ctx context.Context, slot string) error {
	return gm.saves.Save(ctx, slot)
}

// LoadSlot replaces the canonical state with another slot's contents and
// makes it the active slot. Unsaved changes are written to the previous slot
// first, and later autosaves go to the loaded one.
func (gm *GameManager) LoadSlot(ctx context.Context, slot string) (*types.GameState, error) {
	if gm.autosave == nil {
		loaded, err := gm.saves.Load(ctx, slot)
		if err != nil {
			return nil, err
		}
		gm.setSlot(slot)
		return loaded, nil
	}

	var loaded *types.GameState
	err := gm.autosave.SwitchSlot(ctx, slot, func() error {
		var err error
		loaded, err = gm.saves.Load(ctx, slot)
		return err
	})
	if err != nil {
		return nil, err
	}
	gm.setSlot(slot)
	return loaded, nil
}

// Slot returns the active save slot.
func (gm *GameManager) Slot() string {
	gm.slotLock.RLock()
	defer gm.slotLock.RUnlock()
	return gm.slot
}

func (gm *GameManager) setSlot(slot string) {
	gm.slotLock.Lock()
	defer gm.slotLock.Unlock()
	gm.slot = slot
}

func (gm *GameManager) Slots(ctx context.Context) ([]string, error) {
	return gm.saves.Slots(ctx)
}

func (gm *GameManager) Store() *state.InMemoryStateManager {
	return gm.store
}

func (gm *GameManager) Roster() *roster.Cache {
	return gm.roster
}

// Trades returns the catalog trades offered at the shop, sorted by id.
func (gm *GameManager) Trades(shopID string) []types.Trade {
	return gm.catalog.Trades(shopID)
}

func (gm *GameManager) Catalog() *catalog.Catalog {
	return gm.catalog
}

// State returns the current canonical state.
func (gm *GameManager) State() *types.GameState {
	return gm.store.Get()
}

func (gm *GameManager) Subscribe(listener state.Listener) func() {
	return gm.store.Subscribe(listener)
}

// Creatures returns the derived roster view, sorted by id.
func (gm *GameManager) Creatures() []*types.Creature {
	return gm.roster.Creatures()
}
