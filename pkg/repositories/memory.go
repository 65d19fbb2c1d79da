package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// InMemoryRepository keeps values in process memory. Values are copied on
// the way in and out.
type InMemoryRepository struct {
	lock   sync.RWMutex
	values map[string][]byte
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		values: make(map[string][]byte),
	}
}

func (r *InMemoryRepository) Close(ctx context.Context) error {
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()

	value, ok := r.values[key]
	if !ok {
		return nil, &ErrNotFound{Key: key}
	}
	return append([]byte(nil), value...), nil
}

func (r *InMemoryRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	r.values[key] = append([]byte(nil), value...)
	return nil
}

func (r *InMemoryRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.lock.RLock()
	defer r.lock.RUnlock()

	keys := make([]string, 0, len(r.values))
	for key := range r.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
