package authz_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/fellowship/internal/app/system/apperr"
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/dalemusser/fellowship/internal/app/system/authz"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"github.com/dalemusser/fellowship/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// blockingUsers holds every GetByID until release is closed.
type blockingUsers struct {
	*testutil.MemUsers
	started chan struct{}
	release chan struct{}
	fetches atomic.Int32
}

func newBlockingUsers(u *testutil.MemUsers) *blockingUsers {
	return &blockingUsers{MemUsers: u, started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingUsers) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	b.fetches.Add(1)
	b.started <- struct{}{}
	<-b.release
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	return b.MemUsers.GetByID(ctx, id)
}

func TestIdentity_InvalidateDuringFetchIsNotOverwritten(t *testing.T) {
	s := testutil.NewMemStore()
	u := s.AddUser(primitive.NewObjectID(), models.UserRoleChurchAdmin)
	users := newBlockingUsers(s.Users)
	engine := authz.NewEngine(users, s.Groups, s.Memberships, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := engine.Identity(context.Background(), u.ID)
		done <- err
	}()

	<-users.started
	engine.InvalidateUser(u.ID)
	close(users.release)
	if err := <-done; err != nil {
		t.Fatalf("Identity: %v", err)
	}

	if _, err := engine.Identity(context.Background(), u.ID); err != nil {
		t.Fatalf("second Identity: %v", err)
	}
	if n := users.fetches.Load(); n != 2 {
		t.Errorf("fetches = %d, want 2 (the first result must not be cached)", n)
	}
}

func TestIdentity_CanceledCallerDoesNotFailOthers(t *testing.T) {
	s := testutil.NewMemStore()
	u := s.AddUser(primitive.NewObjectID())
	users := newBlockingUsers(s.Users)
	engine := authz.NewEngine(users, s.Groups, s.Memberships, zap.NewNop())

	firstCtx, cancelFirst := context.WithCancel(auth.WithUserID(context.Background(), u.ID))
	first := make(chan error, 1)
	go func() {
		_, err := engine.Caller(firstCtx)
		first <- err
	}()

	<-users.started
	cancelFirst()
	select {
	case err := <-first:
		if !apperr.IsKind(err, apperr.KindNetwork) {
			t.Errorf("canceled caller: err = %v, want network", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("canceled caller did not return")
	}

	second := make(chan error, 1)
	go func() {
		_, err := engine.Caller(auth.WithUserID(context.Background(), u.ID))
		second <- err
	}()
	close(users.release)

	select {
	case err := <-second:
		if err != nil {
			t.Errorf("second caller: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
	if n := users.fetches.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}
