// Package notify turns domain events into notifications for the people who
// need to act on them, and hands them to a Notifier.
package notify

import (
	"context"
	"fmt"

	"github.com/dalemusser/fellowship/internal/app/system/events"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier delivers a notification. Delivery is best-effort.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// OutboxStore persists notifications for a separate delivery process.
type OutboxStore interface {
	Insert(ctx context.Context, n models.Notification) (models.Notification, error)
}

// Outbox is the default Notifier: it writes to the notifications collection.
type Outbox struct {
	store OutboxStore
}

func NewOutbox(store OutboxStore) *Outbox {
	return &Outbox{store: store}
}

func (o *Outbox) Send(ctx context.Context, n models.Notification) error {
	_, err := o.store.Insert(ctx, n)
	return err
}

// UserSource lists users by role within a church.
type UserSource interface {
	ListByChurchRole(ctx context.Context, churchID primitive.ObjectID, role string) ([]models.User, error)
}

// LeaderSource lists a group's active leaders.
type LeaderSource interface {
	ListActiveLeaders(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error)
}

// Dispatcher is an events.Subscriber that resolves recipients and sends.
type Dispatcher struct {
	notifier    Notifier
	users       UserSource
	leaders     LeaderSource
	log         *zap.Logger
	notifyAdmin bool
}

// NewDispatcher builds a Dispatcher. notifyAdmins controls whether church
// admins hear about new group requests.
func NewDispatcher(n Notifier, users UserSource, leaders LeaderSource, logger *zap.Logger, notifyAdmins bool) *Dispatcher {
	return &Dispatcher{notifier: n, users: users, leaders: leaders, log: logger, notifyAdmin: notifyAdmins}
}

// Handle implements events.Subscriber.
func (d *Dispatcher) Handle(ctx context.Context, e events.Event) error {
	n, recipients, err := d.build(ctx, e)
	if err != nil {
		return fmt.Errorf("resolve recipients for %s: %w", e.Type, err)
	}
	if len(recipients) == 0 {
		return nil
	}
	n.RecipientIDs = recipients
	n.ChurchID = e.ChurchID
	n.GroupID = e.GroupID
	if err := d.notifier.Send(ctx, n); err != nil {
		return fmt.Errorf("send %s: %w", n.Kind, err)
	}
	d.log.Debug("notification queued",
		zap.String("kind", n.Kind),
		zap.Int("recipients", len(recipients)),
		zap.String("group_id", e.GroupID.Hex()))
	return nil
}

func (d *Dispatcher) build(ctx context.Context, e events.Event) (models.Notification, []primitive.ObjectID, error) {
	name := e.GroupName
	if name == "" {
		name = "a group"
	}

	switch e.Type {
	case events.GroupRequestSubmitted:
		if !d.notifyAdmin {
			return models.Notification{}, nil, nil
		}
		admins, err := d.users.ListByChurchRole(ctx, e.ChurchID, models.UserRoleChurchAdmin)
		if err != nil {
			return models.Notification{}, nil, err
		}
		ids := make([]primitive.ObjectID, 0, len(admins))
		for _, u := range admins {
			ids = append(ids, u.ID)
		}
		return models.Notification{
			Kind:  models.NotifyGroupRequestSubmitted,
			Title: fmt.Sprintf("New group request: %s", name),
		}, without(ids, e.ActorID), nil

	case events.GroupApproved:
		return models.Notification{
			Kind:  models.NotifyGroupApproved,
			Title: fmt.Sprintf("Your group %s was approved", name),
		}, single(e.UserID), nil

	case events.GroupDeclined:
		return models.Notification{
			Kind:  models.NotifyGroupDeclined,
			Title: fmt.Sprintf("Your group %s was declined", name),
			Body:  e.Reason,
		}, single(e.UserID), nil

	case events.JoinRequested:
		leaders, err := d.leaders.ListActiveLeaders(ctx, e.GroupID)
		if err != nil {
			return models.Notification{}, nil, err
		}
		ids := make([]primitive.ObjectID, 0, len(leaders))
		for _, m := range leaders {
			ids = append(ids, m.UserID)
		}
		return models.Notification{
			Kind:  models.NotifyJoinRequestReceived,
			Title: fmt.Sprintf("New join request for %s", name),
		}, ids, nil

	case events.JoinApproved:
		return models.Notification{
			Kind:  models.NotifyJoinRequestApproved,
			Title: fmt.Sprintf("You joined %s", name),
		}, single(e.UserID), nil

	case events.JoinDeclined:
		return models.Notification{
			Kind:  models.NotifyJoinRequestDeclined,
			Title: fmt.Sprintf("Your request to join %s was declined", name),
		}, single(e.UserID), nil
	}
	return models.Notification{}, nil, nil
}

func single(id primitive.ObjectID) []primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return []primitive.ObjectID{id}
}

// without drops id from ids; nobody is notified of their own action.
func without(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
