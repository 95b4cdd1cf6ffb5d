// Package events carries domain events from the lifecycle service and the
// creation saga to side-effect subscribers (audit notes, notifications,
// out-of-process forwarding). Publishing is best-effort: a failing
// subscriber is logged and never fails the operation that emitted the event.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Type names a domain event.
type Type string

const (
	GroupRequestSubmitted Type = "group.request_submitted"
	GroupApproved         Type = "group.approved"
	GroupDeclined         Type = "group.declined"
	GroupClosed           Type = "group.closed"

	MemberPromoted Type = "membership.promoted"
	MemberDemoted  Type = "membership.demoted"
	MemberRemoved  Type = "membership.removed"
	MemberLeft     Type = "membership.left"

	JoinRequested Type = "join.requested"
	JoinApproved  Type = "join.approved"
	JoinDeclined  Type = "join.declined"
)

// Event describes one committed state change.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	ActorID      primitive.ObjectID `json:"actor_id"`
	ChurchID     primitive.ObjectID `json:"church_id"`
	GroupID      primitive.ObjectID `json:"group_id"`
	GroupName    string             `json:"group_name,omitempty"`
	MembershipID primitive.ObjectID `json:"membership_id,omitempty"`
	// UserID is the subject of a membership event.
	UserID primitive.ObjectID `json:"user_id,omitempty"`

	PreviousValue string `json:"previous_value,omitempty"`
	NewValue      string `json:"new_value,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// Publisher accepts events. Implementations must not block on slow subscribers
// for longer than the ctx allows.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Subscriber handles one event. Returned errors are logged by the Bus.
type Subscriber interface {
	Handle(ctx context.Context, e Event) error
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, e Event) error

func (f SubscriberFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

type subscription struct {
	name string
	sub  Subscriber
}

// Bus dispatches each event to every subscriber, in subscription order, on
// the publishing goroutine.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
	log  *zap.Logger
}

func NewBus(logger *zap.Logger) *Bus {
	return &Bus{log: logger}
}

// Subscribe registers s under name (used in log output).
func (b *Bus) Subscribe(name string, s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, sub: s})
}

// Publish stamps e with an ID and time when missing and hands it to every
// subscriber.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	subs := append([]subscription(nil), b.subs...)
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(ctx, s, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event subscriber panicked",
				zap.String("subscriber", s.name),
				zap.String("event_type", string(e.Type)),
				zap.Any("panic", r))
		}
	}()
	if err := s.sub.Handle(ctx, e); err != nil {
		b.log.Warn("event subscriber failed",
			zap.String("subscriber", s.name),
			zap.String("event_type", string(e.Type)),
			zap.String("event_id", e.ID),
			zap.Error(err))
	}
}

// Recorder is a Publisher that keeps every event in memory. Tests use it to
// assert on side effects.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
