package events

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func testRedisAddr() string {
	if addr := os.Getenv("FELLOWSHIP_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func TestRedisForwarder_PublishesEncodedEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := NewRedisClient(ctx, testRedisAddr())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer rdb.Close()

	channel := "fellowship.test." + primitive.NewObjectID().Hex()
	sub := rdb.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	f := NewRedisForwarder(rdb, channel, zap.NewNop())
	if err := f.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	want := Event{ID: "evt-1", Type: GroupApproved, GroupID: primitive.NewObjectID(), GroupName: "Young Adults"}
	if err := f.Handle(ctx, want); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	got, err := Decode([]byte(msg.Payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != want.ID || got.Type != want.Type || got.GroupID != want.GroupID || got.GroupName != want.GroupName {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestNewRedisForwarder_DefaultChannel(t *testing.T) {
	f := NewRedisForwarder(nil, "", zap.NewNop())
	if f.channel != "fellowship.events" {
		t.Errorf("channel = %q", f.channel)
	}
}
