package state

import (
	"context"
	"bytes"
	"math/rand/v2"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/menagerie/pkg/actions"
	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/cbodonnell/menagerie/pkg/log"
	"github.com/cbodonnell/menagerie/pkg/queue"
	"github.com/cbodonnell/menagerie/pkg/reducer"
	"github.com/cbodonnell/menagerie/pkg/shop"
	"github.com/google/uuid"
)

// InMemoryStateManager holds the canonical state in memory. Dispatches are
// serialized, so action order, state transition order and notification order
// are the same.
type InMemoryStateManager struct {
	lock      sync.Mutex
	stateLock sync.RWMutex
	gameState *types.GameState
	reducer   *reducer.Reducer

	listenersLock sync.RWMutex
	listeners     map[int]Listener
	nextListener  int
	// notifier is the id of the goroutine running listeners, 0 when idle.
	notifier atomic.Int64

	deferred queue.Queue[func()]
	clock    func() time.Time
	newID    func() string
	newSeed  func() int64
	logger   *log.Logger
}

type NewInMemoryStateManagerOptions struct {
	Reducer *reducer.Reducer
	// Initial is the starting state. Defaults to a fresh game.
	Initial *types.GameState
	// Clock stamps action times. Defaults to time.Now.
	Clock func() time.Time
	// NewID generates entity ids. Defaults to random UUIDs.
	NewID func() string
	// NewSeed generates random seeds. Defaults to a random int64.
	NewSeed func() int64
	// DeferredQueueSize bounds pending deferred work.
	DeferredQueueSize int
}

func NewInMemoryStateManager(opts NewInMemoryStateManagerOptions) *InMemoryStateManager {
	m := &InMemoryStateManager{
		gameState: opts.Initial,
		reducer:   opts.Reducer,
		listeners: make(map[int]Listener),
		deferred:  queue.NewInMemoryQueue[func()](opts.DeferredQueueSize),
		clock:     opts.Clock,
		newID:     opts.NewID,
		newSeed:   opts.NewSeed,
		logger:    log.Default().WithComponent("state"),
	}
	if m.gameState == nil {
		m.gameState = types.NewGameState()
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	if m.newSeed == nil {
		m.newSeed = rand.Int64
	}
	return m
}

func (m *InMemoryStateManager) Get() *types.GameState {
	m.stateLock.RLock()
	defer m.stateLock.RUnlock()
	return m.gameState
}

// Dispatch stamps the action, reduces it and notifies listeners when the
// state changed. Business rule rejections are reported in the result and
// leave the state untouched.
//
// Dispatch called from a listener returns ErrNestedDispatch. Dispatches from
// other goroutines wait for the listeners to finish.
func (m *InMemoryStateManager) Dispatch(action actions.Action) reducer.Result {
	if id := m.notifier.Load(); id != 0 && id == goroutineID() {
		m.logger.Error("Rejected nested dispatch of %s from a listener", action.Type())
		return reducer.Result{Err: ErrNestedDispatch}
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.stamp(action)

	prev := m.Get()
	next, result := m.reducer.Reduce(prev, action)
	if result.Err != nil {
		m.logger.Debug("Rejected %s: %v", action.Type(), result.Err)
		return result
	}
	if !result.Changed {
		return result
	}

	m.stateLock.Lock()
	m.gameState = next
	m.stateLock.Unlock()

	if m.logger.Enabled(log.LogLevelTrace) {
		m.logger.Trace("Dispatched %s at %d", action.Type(), action.Metadata().At)
	}
	m.notify(prev, next)
	return result
}

func (m *InMemoryStateManager) stamp(action actions.Action) {
	meta := action.Metadata()
	if meta.At == 0 {
		meta.At = m.clock().UnixMilli()
	}
	if identified, ok := action.(actions.Identified); ok {
		identified.AssignID(m.newID)
	}
	if seeded, ok := action.(actions.Seeded); ok {
		seeded.AssignSeed(m.newSeed)
	}
}

func (m *InMemoryStateManager) notify(prev, next *types.GameState) {
	m.listenersLock.RLock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, m.listeners[id])
	}
	m.listenersLock.RUnlock()

	m.notifier.Store(goroutineID())
	defer m.notifier.Store(0)
	for _, listener := range listeners {
		listener(prev, next)
	}
}

// goroutineID parses the current goroutine's id from its stack header,
// "goroutine 18 [running]:".
func goroutineID() int64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// Subscribe registers a listener. Listeners are called in subscription order.
func (m *InMemoryStateManager) Subscribe(listener Listener) func() {
	m.listenersLock.Lock()
	defer m.listenersLock.Unlock()

	id := m.nextListener
	m.nextListener++
	m.listeners[id] = listener

	return func() {
		m.listenersLock.Lock()
		defer m.listenersLock.Unlock()
		delete(m.listeners, id)
	}
}

// Defer schedules fn to run on the next Tick, outside of any dispatch.
func (m *InMemoryStateManager) Defer(fn func()) error {
	if err := m.deferred.Enqueue(fn); err != nil {
		return ErrDeferQueueFull
	}
	return nil
}

// Tick runs the deferred work that was pending when it was called and
// returns how many functions ran.
func (m *InMemoryStateManager) Tick() int {
	pending, err := m.deferred.ReadAll()
	if err != nil {
		m.logger.Error("Failed to read deferred work: %v", err)
		return 0
	}
	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Run ticks at the given interval until the context is cancelled.
func (m *InMemoryStateManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// HasStoryFlag reports whether the story flag is set.
func (m *InMemoryStateManager) HasStoryFlag(flag string) bool {
	return m.Get().HasStoryFlag(flag)
}

// TransactionHistory returns the transaction history, most recent first.
func (m *InMemoryStateManager) TransactionHistory() []types.Transaction {
	return shop.TransactionHistory(m.Get())
}

// IsShopUnlocked reports whether the shop is unlocked.
func (m *InMemoryStateManager) IsShopUnlocked(shopID string) bool {
	return shop.IsShopUnlocked(m.Get(), shopID)
}
