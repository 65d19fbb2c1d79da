package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/cbodonnell/menagerie/pkg/repositories"
	"github.com/cbodonnell/menagerie/pkg/state"
)

const slotPrefix = "save/"

// SlotKey returns the repository key of a save slot.
func SlotKey(slot string) string {
	return slotPrefix + slot
}

// SaveManager moves the canonical state between the store and a repository.
type SaveManager struct {
	repository repositories.Repository
	store      state.StateManager
	logger     *log.Logger
}

type NewSaveManagerOptions struct {
	Repository repositories.Repository
	Store      state.StateManager
}

func NewSaveManager(opts NewSaveManagerOptions) *SaveManager {
	return &SaveManager{
		repository: opts.Repository,
		store:      opts.Store,
		logger:     log.Default().WithComponent("persistence"),
	}
}

// Save writes the current canonical state to the slot.
func (m *SaveManager) Save(ctx context.Context, slot string) error {
	return m.SaveState(ctx, slot, m.store.Get())
}

// SaveState writes the given state to the slot.
func (m *SaveManager) SaveState(ctx context.Context, slot string, gameState *types.GameState) error {
	if strings.TrimSpace(slot) == "" {
		return fmt.Errorf("save slot is required")
	}
	data, err := EncodeState(gameState)
	if err != nil {
		return err
	}
	if err := m.repository.Set(ctx, SlotKey(slot), data); err != nil {
		return &WriteFailure{Slot: slot, Err: err}
	}
	m.logger.Debug("Saved slot %s (%d bytes)", slot, len(data))
	return nil
}

// Load replaces the canonical state with the slot's contents. A slot that
// was never written starts a new game. A corrupt slot returns an error and
// leaves the canonical state as it was.
func (m *SaveManager) Load(ctx context.Context, slot string) (*types.GameState, error) {
	if strings.TrimSpace(slot) == "" {
		return nil, fmt.Errorf("save slot is required")
	}
	data, err := m.repository.Get(ctx, SlotKey(slot))
	if err != nil && !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to read save slot %s: %w", slot, err)
	}

	var loaded *types.GameState
	if err != nil {
		m.logger.Info("Save slot %s is empty, starting a new game", slot)
		loaded = types.NewGameState()
	} else {
		loaded, err = DecodeState(data)
		if err != nil {
			m.logger.Error("Failed to load save slot %s: %v", slot, err)
			return nil, err
		}
	}

	if result := m.store.Dispatch(&actions.ReplaceState{State: loaded}); result.Err != nil {
		return nil, fmt.Errorf("failed to replace state: %w", result.Err)
	}
	return loaded, nil
}

// Slots lists the names of the written save slots.
func (m *SaveManager) Slots(ctx context.Context) ([]string, error) {
	keys, err := m.repository.Keys(ctx, slotPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list save slots: %w", err)
	}
	slots := make([]string, 0, len(keys))
	for _, key := range keys {
		slots = append(slots, strings.TrimPrefix(key, slotPrefix))
	}
	return slots, nil
}
