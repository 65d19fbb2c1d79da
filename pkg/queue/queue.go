package queue

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when the queue is at capacity.
	ErrQueueFull = errors.New("queue is full")
	// ErrQueueEmpty is returned by Dequeue when there is nothing to read.
	ErrQueueEmpty = errors.New("queue is empty")
)

// Queue represents a basic FIFO queue.
type Queue[T any] interface {
	Enqueue(item T) error
	Dequeue() (T, error)
	Size() int
	ReadAll() ([]T, error)
	Clear()
}
