package queue

import "sync"

const (
	// DefaultQueueSize is the capacity used when none is given
	DefaultQueueSize = 1024
)

// InMemoryQueue implements a bounded in-memory queue.
type InMemoryQueue[T any] struct {
	ch   chan T
	lock sync.Mutex
}

// NewInMemoryQueue creates a new queue holding at most size items.
func NewInMemoryQueue[T any](size int) *InMemoryQueue[T] {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &InMemoryQueue[T]{
		ch: make(chan T, size),
	}
}

// Enqueue adds an item to the end of the queue without blocking.
func (q *InMemoryQueue[T]) Enqueue(item T) error {
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue removes and returns the item from the front of the queue.
func (q *InMemoryQueue[T]) Dequeue() (T, error) {
	select {
	case item := <-q.ch:
		return item, nil
	default:
		var zero T
		return zero, ErrQueueEmpty
	}
}

// Size returns the current size of the queue.
func (q *InMemoryQueue[T]) Size() int {
	return len(q.ch)
}

// ReadAll drains the items that were pending when it was called.
// Items enqueued while draining are left for the next read.
func (q *InMemoryQueue[T]) ReadAll() ([]T, error) {
	q.lock.Lock()
	defer q.lock.Unlock()

	n := len(q.ch)
	items := make([]T, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, <-q.ch)
	}
	return items, nil
}

// Clear discards all pending items.
func (q *InMemoryQueue[T]) Clear() {
	q.lock.Lock()
	defer q.lock.Unlock()

	for len(q.ch) > 0 {
		<-q.ch
	}
}
