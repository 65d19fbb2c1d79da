package state

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/breeding"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/reducer"
	"github.com/cbodonnell/menagerie/pkg/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(opts NewInMemoryStateManagerOptions) *InMemoryStateManager {
	handlers := shop.Handlers()
	for t, h := range breeding.Handlers() {
		handlers[t] = h
	}
	opts.Reducer = reducer.New(reducer.NewReducerOptions{Handlers: handlers})
	return NewInMemoryStateManager(opts)
}

func TestDispatch_StampsActions(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	m := newTestManager(NewInMemoryStateManagerOptions{
		Clock: func() time.Time { return now },
		NewID: func() string { return "generated" },
	})

	result := m.Dispatch(&actions.AddCreature{Creature: types.Creature{Species: "fox"}})
	require.NoError(t, result.Err)
	creature, ok := m.Get().Creatures.Get("generated")
	require.True(t, ok)
	assert.Equal(t, "fox", creature.Species)
	assert.Equal(t, now.UnixMilli(), m.Get().Creatures.LastUpdated)

	buy := &actions.BuyItem{ShopID: "general", ItemID: "herb", Quantity: 1, TotalCost: 5}
	require.NoError(t, m.Dispatch(buy).Err)
	assert.Equal(t, now.UnixMilli(), buy.At)
	assert.Equal(t, now.UnixMilli(), m.TransactionHistory()[0].Timestamp)

	explicit := &actions.SetStoryFlag{Meta: actions.Meta{At: 5}, Flag: "x"}
	require.NoError(t, m.Dispatch(explicit).Err)
	assert.Equal(t, int64(5), explicit.At)
}

func TestDispatch_AssignsSeeds(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{
		NewSeed: func() int64 { return 99 },
	})
	trade := &actions.ExecuteTrade{TradeID: "anything"}
	m.Dispatch(trade)
	assert.Equal(t, int64(99), trade.Seed)

	fixed := &actions.ExecuteTrade{TradeID: "anything", Seed: 3}
	m.Dispatch(fixed)
	assert.Equal(t, int64(3), fixed.Seed)
}

func TestDispatch_NotifiesInOrderOnChange(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})

	var calls []string
	m.Subscribe(func(prev, next *types.GameState) {
		assert.NotSame(t, prev, next)
		calls = append(calls, "first:"+next.StoryFlags[len(next.StoryFlags)-1])
	})
	m.Subscribe(func(prev, next *types.GameState) {
		assert.Same(t, next, m.Get())
		calls = append(calls, "second:"+next.StoryFlags[len(next.StoryFlags)-1])
	})

	require.NoError(t, m.Dispatch(&actions.SetStoryFlag{Flag: "a"}).Err)
	require.NoError(t, m.Dispatch(&actions.SetStoryFlag{Flag: "a"}).Err)
	require.NoError(t, m.Dispatch(&actions.SetStoryFlag{Flag: "b"}).Err)

	assert.Equal(t, []string{"first:a", "second:a", "first:b", "second:b"}, calls)
}

func TestDispatch_RejectedLeavesState(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	before := m.Get()
	notified := false
	m.Subscribe(func(prev, next *types.GameState) { notified = true })

	result := m.Dispatch(&actions.BuyItem{ShopID: "general", ItemID: "herb", Quantity: 1, TotalCost: 10000})
	assert.ErrorIs(t, result.Err, reducer.ErrInsufficientFunds)
	assert.Same(t, before, m.Get())
	assert.False(t, notified)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	count := 0
	unsubscribe := m.Subscribe(func(prev, next *types.GameState) { count++ })

	m.Dispatch(&actions.SetStoryFlag{Flag: "a"})
	unsubscribe()
	m.Dispatch(&actions.SetStoryFlag{Flag: "b"})
	assert.Equal(t, 1, count)
}

func TestDefer_RunsOnNextTick(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	m.Subscribe(func(prev, next *types.GameState) {
		if next.HasStoryFlag("trigger") && !next.HasStoryFlag("follow-up") {
			require.NoError(t, m.Defer(func() {
				m.Dispatch(&actions.SetStoryFlag{Flag: "follow-up"})
			}))
		}
	})

	m.Dispatch(&actions.SetStoryFlag{Flag: "trigger"})
	assert.False(t, m.HasStoryFlag("follow-up"))

	assert.Equal(t, 1, m.Tick())
	assert.True(t, m.HasStoryFlag("follow-up"))
	assert.Equal(t, 0, m.Tick())
}

func TestDefer_WorkDeferredDuringTickWaits(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	ran := 0
	require.NoError(t, m.Defer(func() {
		ran++
		require.NoError(t, m.Defer(func() { ran++ }))
	}))

	assert.Equal(t, 1, m.Tick())
	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, m.Tick())
	assert.Equal(t, 2, ran)
}

func TestDefer_QueueFull(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{DeferredQueueSize: 1})
	require.NoError(t, m.Defer(func() {}))
	assert.ErrorIs(t, m.Defer(func() {}), ErrDeferQueueFull)
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.NoError(t, m.Defer(func() { m.Dispatch(&actions.UnlockArea{AreaID: "meadow"}) }))
	assert.Eventually(t, func() bool { return m.Get().UnlockedAreas.Contains("meadow") }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestDispatch_ConcurrentDispatchesAreSerialized(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	var order []string
	var orderLock sync.Mutex
	m.Subscribe(func(prev, next *types.GameState) {
		orderLock.Lock()
		defer orderLock.Unlock()
		order = append(order, next.Shops.History[0].ItemID)
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Dispatch(&actions.AddTransaction{Transaction: types.Transaction{ItemID: fmt.Sprintf("tx-%d", i)}})
			m.Dispatch(&actions.GainExperience{Amount: 10})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(500), m.Get().Player.Experience)

	orderLock.Lock()
	defer orderLock.Unlock()
	// Experience gains do not touch history, so drop repeated heads.
	var txOrder []string
	for _, id := range order {
		if len(txOrder) == 0 || txOrder[len(txOrder)-1] != id {
			txOrder = append(txOrder, id)
		}
	}
	require.Len(t, txOrder, 50)
	history := m.TransactionHistory()
	for i, tx := range history {
		assert.Equal(t, txOrder[len(txOrder)-1-i], tx.ItemID)
	}
}

func TestQueries(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	assert.False(t, m.IsShopUnlocked("general"))
	assert.Empty(t, m.TransactionHistory())

	m.Dispatch(&actions.UnlockShop{ShopID: "general"})
	m.Dispatch(&actions.SetStoryFlag{Flag: "intro"})

	assert.True(t, m.IsShopUnlocked("general"))
	assert.True(t, m.HasStoryFlag("intro"))
}

func TestDispatch_FromListenerIsRejected(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	var nested reducer.Result
	m.Subscribe(func(prev, next *types.GameState) {
		if next.HasStoryFlag("a") && !next.HasStoryFlag("b") {
			nested = m.Dispatch(&actions.SetStoryFlag{Flag: "b"})
		}
	})

	done := make(chan reducer.Result, 1)
	go func() { done <- m.Dispatch(&actions.SetStoryFlag{Flag: "a"}) }()

	select {
	case outer := <-done:
		require.NoError(t, outer.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch from a listener blocked the store")
	}
	assert.ErrorIs(t, nested.Err, ErrNestedDispatch)
	assert.False(t, m.HasStoryFlag("b"))

	// The store keeps working afterwards.
	require.NoError(t, m.Dispatch(&actions.UnlockArea{AreaID: "meadow"}).Err)
	assert.True(t, m.Get().UnlockedAreas.Contains("meadow"))
}

func TestDispatch_OtherGoroutinesWaitForListeners(t *testing.T) {
	m := newTestManager(NewInMemoryStateManagerOptions{})
	inside := make(chan struct{})
	release := make(chan struct{})
	m.Subscribe(func(prev, next *types.GameState) {
		if next.HasStoryFlag("slow") && !next.HasStoryFlag("other") {
			close(inside)
			<-release
		}
	})

	go m.Dispatch(&actions.SetStoryFlag{Flag: "slow"})
	<-inside

	result := make(chan reducer.Result, 1)
	go func() { result <- m.Dispatch(&actions.SetStoryFlag{Flag: "other"}) }()
	close(release)

	select {
	case r := <-result:
		require.NoError(t, r.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent dispatch never completed")
	}
	assert.True(t, m.HasStoryFlag("other"))
}
