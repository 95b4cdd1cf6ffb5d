package resilient

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned to a caller whose operation finished after a
	// newer Execute, Cancel, or Reset on the same slot. Its result was discarded.
	ErrSuperseded = errors.New("operation superseded by a newer call on the same slot")
)

// State is the observable state of one executor slot.
type State[T any] struct {
	Data       T
	Loading    bool
	Err        error
	RetryCount int
}

// Optimistic carries data to show while the operation is in flight.
type Optimistic[T any] struct {
	Data T
}

// Op is the operation an Executor runs.
type Op[T any] func(ctx context.Context) (T, error)

// Executor owns one slot of state. At most one operation is attached to the
// slot at a time: starting a new one cancels the previous one's context and
// discards its result.
type Executor[T any] struct {
	cfg Config
	log *zap.Logger

	mu        sync.Mutex
	state     State[T]
	committed T
	gen       uint64
	cancel    context.CancelFunc
}

func NewExecutor[T any](cfg Config, logger *zap.Logger) *Executor[T] {
	return &Executor[T]{cfg: cfg, log: logger}
}

// Execute runs op under retry. With opt, the slot shows opt.Data until op
// finishes; on failure the slot rolls back to the last committed data.
func (e *Executor[T]) Execute(ctx context.Context, op Op[T], opt *Optimistic[T]) (T, error) {
	var zero T
	start := time.Now()
	label := e.cfg.label()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	gen := e.gen
	e.cancel = cancel
	if opt != nil {
		e.state.Data = opt.Data
	}
	e.state.Loading = true
	e.state.Err = nil
	e.state.RetryCount = 0
	e.mu.Unlock()

	v, retries, err := retry(runCtx, e.cfg, func(ctx context.Context, attempt int) (T, error) {
		if attempt > 0 {
			e.noteRetry(gen, attempt)
		}
		return op(ctx)
	})
	operationDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		outcomesTotal.WithLabelValues(label, outcomeSuperseded).Inc()
		e.log.Debug("discarding superseded result",
			zap.String("operation", label),
			zap.Uint64("generation", gen))
		return zero, ErrSuperseded
	}
	e.cancel = nil
	e.state.Loading = false
	e.state.RetryCount = retries

	if err != nil {
		e.state.Err = err
		if opt != nil {
			e.state.Data = e.committed
			rollbacksTotal.WithLabelValues(label).Inc()
		}
		outcomesTotal.WithLabelValues(label, outcomeFailure).Inc()
		e.log.Info("operation failed",
			zap.String("operation", label),
			zap.Int("retries", retries),
			zap.Bool("rolled_back", opt != nil),
			zap.Error(err))
		return zero, err
	}

	e.committed = v
	e.state.Data = v
	outcomesTotal.WithLabelValues(label, outcomeSuccess).Inc()
	return v, nil
}

func (e *Executor[T]) noteRetry(gen uint64, attempt int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.gen {
		e.state.RetryCount = attempt
	}
}

// Cancel detaches the in-flight operation. Its context is canceled and its
// eventual result is discarded; optimistic data is rolled back.
func (e *Executor[T]) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
	e.gen++
	e.state.Loading = false
	e.state.Data = e.committed
	outcomesTotal.WithLabelValues(e.cfg.label(), outcomeCanceled).Inc()
}

// State returns a snapshot of the slot.
func (e *Executor[T]) State() State[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Reset cancels any in-flight operation and clears the slot.
func (e *Executor[T]) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	var zero T
	e.committed = zero
	e.state = State[T]{}
}
