package events

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestBus_DispatchesInOrderAndStamps(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var got []string
	var seen Event
	bus.Subscribe("first", SubscriberFunc(func(_ context.Context, e Event) error {
		got = append(got, "first")
		seen = e
		return nil
	}))
	bus.Subscribe("second", SubscriberFunc(func(_ context.Context, e Event) error {
		got = append(got, "second")
		return nil
	}))

	bus.Publish(context.Background(), Event{Type: GroupApproved})

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Fatalf("dispatch order = %v", got)
	}
	if seen.ID == "" {
		t.Error("expected event ID to be assigned")
	}
	if seen.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to be assigned")
	}
}

func TestBus_FailingSubscriberDoesNotStopOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	called := false
	bus.Subscribe("broken", SubscriberFunc(func(context.Context, Event) error {
		return errors.New("boom")
	}))
	bus.Subscribe("panics", SubscriberFunc(func(context.Context, Event) error {
		panic("bad subscriber")
	}))
	bus.Subscribe("ok", SubscriberFunc(func(context.Context, Event) error {
		called = true
		return nil
	}))

	bus.Publish(context.Background(), Event{Type: MemberRemoved})

	if !called {
		t.Error("expected later subscriber to run")
	}
}

func TestEncodeDecode(t *testing.T) {
	e := Event{
		ID:       "abc",
		Type:     JoinRequested,
		GroupID:  primitive.NewObjectID(),
		UserID:   primitive.NewObjectID(),
		NewValue: "pending",
	}
	raw, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Type != e.Type || back.GroupID != e.GroupID || back.UserID != e.UserID || back.NewValue != "pending" {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

func TestRecorder_OfType(t *testing.T) {
	var r Recorder
	r.Publish(context.Background(), Event{Type: GroupApproved})
	r.Publish(context.Background(), Event{Type: GroupClosed})
	r.Publish(context.Background(), Event{Type: GroupApproved})

	if n := len(r.OfType(GroupApproved)); n != 2 {
		t.Errorf("OfType(GroupApproved) = %d, want 2", n)
	}
	if n := len(r.Events()); n != 3 {
		t.Errorf("Events() = %d, want 3", n)
	}
}
