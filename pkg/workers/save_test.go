package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/reducer"
	"github.com/cbodonnell/menagerie/pkg/shop"
	"github.com/cbodonnell/menagerie/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	lock   sync.Mutex
	saves  []*types.GameState
	slots  []string
	fail   int
	block  chan struct{}
	inside chan struct{}
}

func (s *recordingSaver) SaveState(ctx context.Context, slot string, gameState *types.GameState) error {
	if s.inside != nil {
		s.inside <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("disk full")
	}
	s.saves = append(s.saves, gameState)
	s.slots = append(s.slots, slot)
	return nil
}

func (s *recordingSaver) count() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.saves)
}

func (s *recordingSaver) last() *types.GameState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.saves[len(s.saves)-1]
}

func (s *recordingSaver) savedSlots() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string{}, s.slots...)
}

func newTestStore() *state.InMemoryStateManager {
	return state.NewInMemoryStateManager(state.NewInMemoryStateManagerOptions{
		Reducer: reducer.New(reducer.NewReducerOptions{Handlers: shop.Handlers()}),
	})
}

func TestAutosaveWorker_Debounces(t *testing.T) {
	store := newTestStore()
	saver := &recordingSaver{}
	NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: store, Slot: "one", Delay: 20 * time.Millisecond})

	for _, flag := range []string{"a", "b", "c"} {
		require.NoError(t, store.Dispatch(&actions.SetStoryFlag{Flag: flag}).Err)
	}

	assert.Eventually(t, func() bool { return saver.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, types.StringSet{"a", "b", "c"}, saver.last().StoryFlags)
	assert.Never(t, func() bool { return saver.count() > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestAutosaveWorker_IgnoresTransientChanges(t *testing.T) {
	store := newTestStore()
	saver := &recordingSaver{}
	w := NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: store, Slot: "one", Delay: 10 * time.Millisecond})

	result := store.Dispatch(&actions.OpenShop{ShopID: "general"})
	require.NoError(t, result.Err)
	require.True(t, result.Changed)

	assert.False(t, w.Dirty())
	assert.Never(t, func() bool { return saver.count() > 0 }, 80*time.Millisecond, 10*time.Millisecond)
}

func TestAutosaveWorker_FailureKeepsDirty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	saver := &recordingSaver{fail: 1}
	w := NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: store, Slot: "one", Delay: time.Hour})

	require.NoError(t, store.Dispatch(&actions.UnlockArea{AreaID: "meadow"}).Err)

	assert.Error(t, w.Flush(ctx))
	assert.True(t, w.Dirty())

	require.NoError(t, w.Flush(ctx))
	assert.False(t, w.Dirty())
	require.Equal(t, 1, saver.count())
	assert.Equal(t, types.StringSet{"meadow"}, saver.last().UnlockedAreas)
}

func TestAutosaveWorker_FlushWithoutChanges(t *testing.T) {
	saver := &recordingSaver{}
	w := NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: newTestStore(), Slot: "one"})

	require.NoError(t, w.Flush(context.Background()))
	assert.Equal(t, 0, saver.count())
}

func TestAutosaveWorker_ChangeDuringWrite(t *testing.T) {
	store := newTestStore()
	saver := &recordingSaver{block: make(chan struct{}), inside: make(chan struct{}, 2)}
	NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: store, Slot: "one", Delay: 10 * time.Millisecond})

	require.NoError(t, store.Dispatch(&actions.SetStoryFlag{Flag: "first"}).Err)
	<-saver.inside

	require.NoError(t, store.Dispatch(&actions.SetStoryFlag{Flag: "second"}).Err)
	// Let the debounce for the second change expire while the first write
	// is still in flight.
	time.Sleep(30 * time.Millisecond)
	close(saver.block)

	assert.Eventually(t, func() bool { return saver.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, types.StringSet{"first", "second"}, saver.last().StoryFlags)
}

func TestAutosaveWorker_StopsWithContext(t *testing.T) {
	store := newTestStore()
	saver := &recordingSaver{}
	w := NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: store, Slot: "one", Delay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()
	<-done

	require.NoError(t, store.Dispatch(&actions.SetStoryFlag{Flag: "late"}).Err)
	assert.False(t, w.Dirty())
	assert.Never(t, func() bool { return saver.count() > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestPersistedChange(t *testing.T) {
	prev := types.NewGameState()

	transient := prev.Clone()
	transient.ActiveShopID = "general"
	assert.False(t, persistedChange(prev, transient))

	gold := prev.Clone()
	gold.Player.Gold++
	assert.True(t, persistedChange(prev, gold))

	roster := prev.Clone()
	roster.Creatures = prev.Creatures.Clone()
	roster.Creatures.LastUpdated = 10
	assert.True(t, persistedChange(prev, roster))

	inventory := prev.Clone()
	inventory.Inventory = []types.ItemStack{{ItemID: "herb", Quantity: 1}}
	assert.True(t, persistedChange(prev, inventory))
}

func TestAutosaveWorker_SwitchSlot(t *testing.T) {
	store := newTestStore()
	saver := &recordingSaver{}
	w := NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: store, Slot: "one", Delay: 5 * time.Millisecond})
	require.NoError(t, store.Dispatch(&actions.SetStoryFlag{Flag: "unsaved"}).Err)

	err := w.SwitchSlot(context.Background(), "two", func() error {
		loaded := types.NewGameState()
		loaded.StoryFlags = types.StringSet{"from-two"}
		require.NoError(t, store.Dispatch(&actions.ReplaceState{State: loaded}).Err)
		// Give the debounce time to fire while the switch is in progress.
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "two", w.Slot())

	// The pending change is written to the old slot, the loaded state only
	// ever to the new one.
	assert.Eventually(t, func() bool { return saver.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"one", "two"}, saver.savedSlots())
	assert.Equal(t, types.StringSet{"unsaved"}, saver.saves[0].StoryFlags)
	assert.Equal(t, types.StringSet{"from-two"}, saver.last().StoryFlags)
}

func TestAutosaveWorker_SwitchSlotFailedLoad(t *testing.T) {
	store := newTestStore()
	saver := &recordingSaver{}
	w := NewAutosaveWorker(NewAutosaveWorkerOptions{Saver: saver, Store: store, Slot: "one", Delay: time.Hour})

	err := w.SwitchSlot(context.Background(), "two", func() error { return errors.New("corrupt") })
	assert.EqualError(t, err, "corrupt")
	assert.Equal(t, "one", w.Slot())
}
