package resilient

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Failure is one failed batch item.
type Failure[K any] struct {
	Item K
	Err  error
}

// BatchResult partitions a batch's items. Every input item lands in exactly
// one of the two slices, in input order.
type BatchResult[K any] struct {
	Successful []K
	Failed     []Failure[K]
}

// Total is len(Successful)+len(Failed).
func (r BatchResult[K]) Total() int { return len(r.Successful) + len(r.Failed) }

// Batch runs op for each item in order, each under Retry. A failure does not
// stop the batch. Once ctx is done, remaining items fail with ctx's error.
func Batch[K any](ctx context.Context, cfg Config, items []K, op func(ctx context.Context, item K) error) BatchResult[K] {
	res := BatchResult[K]{
		Successful: make([]K, 0, len(items)),
	}
	for _, item := range items {
		it := item
		_, err := Retry(ctx, cfg, func(ctx context.Context, _ int) (struct{}, error) {
			return struct{}{}, op(ctx, it)
		})
		if err != nil {
			res.Failed = append(res.Failed, Failure[K]{Item: it, Err: err})
			continue
		}
		res.Successful = append(res.Successful, it)
	}
	return res
}

// Registry hands out one Executor per logical resource key, so operations on
// the same resource supersede each other and different resources run
// independently.
type Registry[T any] struct {
	cfg Config
	log *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot[T]
}

type slot[T any] struct {
	ex   *Executor[T]
	refs int
}

func NewRegistry[T any](cfg Config, logger *zap.Logger) *Registry[T] {
	return &Registry[T]{cfg: cfg, log: logger, slots: make(map[string]*slot[T])}
}

// Slot returns the executor for key, creating it on first use. The slot
// stays registered until Remove.
func (r *Registry[T]) Slot(key string) *Executor[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(key).ex
}

// Execute runs op on key's executor. A slot created here is dropped once no
// Execute call holds it.
func (r *Registry[T]) Execute(ctx context.Context, key string, op Op[T], opt *Optimistic[T]) (T, error) {
	r.mu.Lock()
	s := r.get(key)
	s.refs++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		s.refs--
		if s.refs == 0 && r.slots[key] == s {
			delete(r.slots, key)
		}
		r.mu.Unlock()
	}()

	return s.ex.Execute(ctx, op, opt)
}

func (r *Registry[T]) get(key string) *slot[T] {
	s, ok := r.slots[key]
	if !ok {
		s = &slot[T]{ex: NewExecutor[T](r.cfg, r.log)}
		r.slots[key] = s
	}
	return s
}

// Remove cancels and forgets key's executor.
func (r *Registry[T]) Remove(key string) {
	r.mu.Lock()
	s, ok := r.slots[key]
	delete(r.slots, key)
	r.mu.Unlock()
	if ok {
		s.ex.Reset()
	}
}

// Len reports the number of live slots.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
