// Package roster provides a read-only creature view derived from the
// canonical state.
//
// The view can seed the canonical roster exactly once, and only while the
// canonical roster is empty. After that the canonical state is the single
// source of truth and the view is rebuilt from it on every change.
package roster

import (
	"sort"
	"sync"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/cbodonnell/menagerie/pkg/state"
)

type HydrateOutcome int

const (
	// HydrateScheduled means the local seed will be pushed on the next tick.
	HydrateScheduled HydrateOutcome = iota
	// HydrateDiscarded means the canonical roster was already populated.
	HydrateDiscarded
	// HydrateSkipped means the cache has already hydrated once.
	HydrateSkipped
)

func (o HydrateOutcome) String() string {
	switch o {
	case HydrateScheduled:
		return "scheduled"
	case HydrateDiscarded:
		return "discarded"
	case HydrateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

type Cache struct {
	store state.StateManager

	lock        sync.RWMutex
	view        []*types.Creature
	hydrated    bool
	unsubscribe func()
	logger      *log.Logger
}

// NewCache builds the view from the current canonical state and keeps it up
// to date. Call Close to stop listening.
func NewCache(store state.StateManager) *Cache {
	c := &Cache{
		store:  store,
		logger: log.Default().WithComponent("roster"),
	}
	c.rebuild(store.Get())
	c.unsubscribe = store.Subscribe(func(prev, next *types.GameState) {
		if prev.Creatures != next.Creatures {
			c.rebuild(next)
		}
	})
	return c
}

func (c *Cache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Cache) rebuild(gameState *types.GameState) {
	view := make([]*types.Creature, 0, gameState.Creatures.Len())
	if gameState.Creatures != nil {
		for _, creature := range gameState.Creatures.Entries {
			view = append(view, creature.Copy())
		}
	}
	sort.Slice(view, func(i, j int) bool { return view[i].ID < view[j].ID })

	c.lock.Lock()
	c.view = view
	c.lock.Unlock()
}

// Creatures returns copies of every creature, sorted by id.
func (c *Cache) Creatures() []*types.Creature {
	c.lock.RLock()
	defer c.lock.RUnlock()
	out := make([]*types.Creature, len(c.view))
	for i, creature := range c.view {
		out[i] = creature.Copy()
	}
	return out
}

func (c *Cache) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.view)
}

// Hydrate offers a locally loaded roster as the initial canonical roster.
// It only has an effect the first time it is called, and only if the
// canonical roster is empty; the push is deferred to the next tick so it
// never runs inside another dispatch.
func (c *Cache) Hydrate(local []types.Creature) (HydrateOutcome, error) {
	c.lock.Lock()
	if c.hydrated {
		c.lock.Unlock()
		return HydrateSkipped, nil
	}
	c.hydrated = true
	c.lock.Unlock()

	if c.store.Get().Creatures.Len() > 0 {
		c.logger.Debug("Discarding %d local creatures, canonical roster is populated", len(local))
		return HydrateDiscarded, nil
	}

	seed := make([]types.Creature, len(local))
	copy(seed, local)
	err := c.store.Defer(func() {
		result := c.store.Dispatch(&actions.SeedCreatures{Creatures: seed})
		if result.Err != nil {
			c.logger.Error("Failed to seed creatures: %v", result.Err)
		}
	})
	if err != nil {
		c.lock.Lock()
		c.hydrated = false
		c.lock.Unlock()
		return HydrateSkipped, err
	}
	return HydrateScheduled, nil
}
