package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cbodonnell/menagerie/pkg/game/constants"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/cbodonnell/menagerie/pkg/state"
)

// StateSaver writes a state snapshot to a save slot.
type StateSaver interface {
	SaveState(ctx context.Context, slot string, gameState *types.GameState) error
}

// AutosaveWorker saves the canonical state a short while after it last
// changed. Bursts of changes collapse into one write, and changes made while
// a write is in flight are saved by a follow-up write.
type AutosaveWorker struct {
	saver StateSaver
	store state.StateManager
	slot  string
	delay time.Duration

	// writeLock is held for the duration of a write.
	writeLock sync.Mutex

	lock        sync.Mutex
	ctx         context.Context
	dirty       bool
	pending     bool
	timer       *time.Timer
	unsubscribe func()
	logger      *log.Logger
}

type NewAutosaveWorkerOptions struct {
	Saver StateSaver
	Store state.StateManager
	Slot  string
	// Delay is how long the state must stay unchanged before it is written.
	// Defaults to constants.AutosaveDelay.
	Delay time.Duration
}

// NewAutosaveWorker creates an AutosaveWorker that starts watching the store
// immediately.
func NewAutosaveWorker(opts NewAutosaveWorkerOptions) *AutosaveWorker {
	w := &AutosaveWorker{
		saver:  opts.Saver,
		store:  opts.Store,
		slot:   opts.Slot,
		delay:  opts.Delay,
		ctx:    context.Background(),
		logger: log.Default().WithComponent("autosave"),
	}
	if w.delay <= 0 {
		w.delay = constants.AutosaveDelay
	}
	w.unsubscribe = w.store.Subscribe(func(prev, next *types.GameState) {
		if persistedChange(prev, next) {
			w.markDirty()
		}
	})
	return w
}

// Start runs the worker until the context is cancelled. Writes triggered by
// the debounce timer use this context.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.lock.Lock()
	w.ctx = ctx
	w.lock.Unlock()

	<-ctx.Done()

	w.unsubscribe()
	w.lock.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.lock.Unlock()
}

// Flush cancels the pending debounce and writes now if anything is unsaved.
func (w *AutosaveWorker) Flush(ctx context.Context) error {
	w.lock.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.lock.Unlock()

	w.writeLock.Lock()
	defer w.writeLock.Unlock()
	return w.write(ctx)
}

// Slot returns the save slot the worker writes to.
func (w *AutosaveWorker) Slot() string {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.slot
}

// SwitchSlot writes unsaved changes to the current slot, runs load and, if
// it succeeds, makes slot the target of later writes. No write happens while
// load runs, so the loaded state is never written to the previous slot.
func (w *AutosaveWorker) SwitchSlot(ctx context.Context, slot string, load func() error) error {
	w.writeLock.Lock()
	defer w.writeLock.Unlock()

	if err := w.write(ctx); err != nil {
		return fmt.Errorf("failed to save slot %s before switching: %w", w.Slot(), err)
	}
	if err := load(); err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	w.logger.Info("Switched autosave from slot %s to %s", w.slot, slot)
	w.slot = slot
	if w.pending {
		w.pending = false
		if w.dirty {
			w.schedule()
		}
	}
	return nil
}

// Dirty reports whether there are changes that have not been written.
func (w *AutosaveWorker) Dirty() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.dirty
}

func (w *AutosaveWorker) markDirty() {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.dirty = true
	w.schedule()
}

// schedule restarts the debounce timer. Callers hold w.lock.
func (w *AutosaveWorker) schedule() {
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *AutosaveWorker) fire() {
	if !w.writeLock.TryLock() {
		w.lock.Lock()
		w.pending = true
		w.lock.Unlock()
		return
	}
	defer w.writeLock.Unlock()

	w.lock.Lock()
	ctx := w.ctx
	w.lock.Unlock()

	if err := w.write(ctx); err != nil {
		w.logger.Error("Failed to autosave: %v", err)
	}
}

// write saves the current state if it is dirty. Callers hold w.writeLock.
func (w *AutosaveWorker) write(ctx context.Context) error {
	w.lock.Lock()
	if !w.dirty {
		w.lock.Unlock()
		return nil
	}
	w.dirty = false
	snapshot := w.store.Get()
	slot := w.slot
	w.lock.Unlock()

	err := w.saver.SaveState(ctx, slot, snapshot)
	if err != nil {
		w.logger.With("slot", slot).Debug("Write failed, keeping changes dirty")
	}

	w.lock.Lock()
	defer w.lock.Unlock()
	if err != nil {
		w.dirty = true
	}
	if w.pending {
		w.pending = false
		if w.dirty {
			w.schedule()
		}
	}
	return err
}

// persistedChange reports whether a transition touched anything that is
// written to a save. Reducers replace whatever they change, so comparing
// references is enough.
func persistedChange(prev, next *types.GameState) bool {
	return prev.Player != next.Player ||
		lastUpdated(prev) != lastUpdated(next) ||
		prev.Shops != next.Shops ||
		!sameSlice(prev.Inventory, next.Inventory) ||
		!sameSlice(prev.StoryFlags, next.StoryFlags) ||
		!sameSlice(prev.UnlockedAreas, next.UnlockedAreas)
}

func lastUpdated(gameState *types.GameState) int64 {
	if gameState.Creatures == nil {
		return 0
	}
	return gameState.Creatures.LastUpdated
}

func sameSlice[T any](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
