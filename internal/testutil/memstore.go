package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	groupstore "github.com/dalemusser/fellowship/internal/app/store/groups"
	membershipstore "github.com/dalemusser/fellowship/internal/app/store/memberships"
	"github.com/dalemusser/fellowship/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Operation names accepted by MemStore.FailOn.
const (
	OpUsersGet           = "users.GetByID"
	OpGroupsGet          = "groups.GetByID"
	OpGroupsCreate       = "groups.Create"
	OpGroupsUpdateStatus = "groups.UpdateStatus"
	OpGroupsDelete       = "groups.Delete"
	OpGroupsList         = "groups.ListByChurch"
	OpMembershipsGet     = "memberships.Get"
	OpMembershipsInsert  = "memberships.Insert"
	OpMembershipsUpdate  = "memberships.Update"
	OpMembershipsCount   = "memberships.CountActiveLeaders"
	OpMembershipsList    = "memberships.ListByGroup"
	OpNotesAppend        = "notes.Append"
	OpOutboxInsert       = "outbox.Insert"
)

// MemStore is an in-memory stand-in for the MongoDB stores. Its sub-stores
// satisfy the same interfaces as the real ones and return the same sentinel
// errors (mongo.ErrNoDocuments, groupstore.ErrStatusMismatch,
// membershipstore.ErrDuplicateMembership, membershipstore.ErrStateChanged).
type MemStore struct {
	mu          sync.Mutex
	users       map[primitive.ObjectID]models.User
	groups      map[primitive.ObjectID]models.Group
	memberships map[primitive.ObjectID]models.GroupMembership
	services    map[primitive.ObjectID]models.ChurchService
	notes       []models.MembershipNote
	outbox      []models.Notification
	failures    map[string][]error
	calls       map[string]int

	Users       *MemUsers
	Groups      *MemGroups
	Memberships *MemMemberships
	Services    *MemServices
	Notes       *MemNotes
	Outbox      *MemOutbox
}

func NewMemStore() *MemStore {
	s := &MemStore{
		users:       map[primitive.ObjectID]models.User{},
		groups:      map[primitive.ObjectID]models.Group{},
		memberships: map[primitive.ObjectID]models.GroupMembership{},
		services:    map[primitive.ObjectID]models.ChurchService{},
		failures:    map[string][]error{},
		calls:       map[string]int{},
	}
	s.Users = &MemUsers{s}
	s.Groups = &MemGroups{s}
	s.Memberships = &MemMemberships{s}
	s.Services = &MemServices{s}
	s.Notes = &MemNotes{s}
	s.Outbox = &MemOutbox{s}
	return s
}

// FailOn queues errs to be returned, one per call, by the next calls to op.
func (s *MemStore) FailOn(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], errs...)
}

// Calls reports how many times op was called.
func (s *MemStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter records a call to op and pops a queued failure. Callers hold s.mu.
func (s *MemStore) enter(op string) error {
	s.calls[op]++
	q := s.failures[op]
	if len(q) == 0 {
		return nil
	}
	s.failures[op] = q[1:]
	return q[0]
}

/* ---------------------------- seeding helpers ----------------------------- */

// AddUser seeds a user in churchID with roles (member is implied).
func (s *MemStore) AddUser(churchID primitive.ObjectID, roles ...string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := models.User{
		ID:       primitive.NewObjectID(),
		ChurchID: churchID,
		FullName: "User " + primitive.NewObjectID().Hex()[18:],
		Roles:    append([]string{models.UserRoleMember}, roles...),
		Status:   "active",
	}
	s.users[u.ID] = u
	return u
}

// AddService seeds a church service.
func (s *MemStore) AddService(churchID primitive.ObjectID) models.ChurchService {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := models.ChurchService{ID: primitive.NewObjectID(), ChurchID: churchID, Name: "Sunday 9am"}
	s.services[cs.ID] = cs
	return cs
}

// AddGroup seeds a group with status.
func (s *MemStore) AddGroup(churchID, creatorID primitive.ObjectID, status string) models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		ChurchID:  churchID,
		ServiceID: primitive.NewObjectID(),
		CreatorID: creatorID,
		Name:      "Group " + primitive.NewObjectID().Hex()[18:],
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.groups[g.ID] = g
	return g
}

// AddMembership seeds a membership row.
func (s *MemStore) AddMembership(g models.Group, userID primitive.ObjectID, role, status string) models.GroupMembership {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	m := models.GroupMembership{
		ID:        primitive.NewObjectID(),
		ChurchID:  g.ChurchID,
		GroupID:   g.ID,
		UserID:    userID,
		Role:      role,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.memberships[m.ID] = m
	return m
}

// Group returns the stored group (zero value when missing).
func (s *MemStore) Group(id primitive.ObjectID) models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[id]
}

// Membership returns the stored row for (groupID, userID).
func (s *MemStore) Membership(groupID, userID primitive.ObjectID) (models.GroupMembership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.findPair(groupID, userID)
	return m, ok
}

// MembershipCount returns the number of rows for (groupID, userID).
func (s *MemStore) MembershipCount(groupID, userID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			n++
		}
	}
	return n
}

// GroupCount returns the number of stored groups.
func (s *MemStore) GroupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// ActiveLeaderCount counts active leader rows of groupID.
func (s *MemStore) ActiveLeaderCount(groupID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeLeaders(groupID))
}

// AllNotes returns every appended note in insertion order.
func (s *MemStore) AllNotes() []models.MembershipNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MembershipNote(nil), s.notes...)
}

// AllNotifications returns every outbox row in insertion order.
func (s *MemStore) AllNotifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notification(nil), s.outbox...)
}

func (s *MemStore) findPair(groupID, userID primitive.ObjectID) (models.GroupMembership, bool) {
	for _, m := range s.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return m, true
		}
	}
	return models.GroupMembership{}, false
}

func (s *MemStore) activeLeaders(groupID primitive.ObjectID) []models.GroupMembership {
	var out []models.GroupMembership
	for _, m := range s.memberships {
		if m.GroupID == groupID && m.Role == models.RoleLeader && m.Status == models.MembershipActive {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

/* --------------------------------- users ---------------------------------- */

type MemUsers struct{ s *MemStore }

func (u *MemUsers) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if err := u.s.enter(OpUsersGet); err != nil {
		return models.User{}, err
	}
	usr, ok := u.s.users[id]
	if !ok {
		return models.User{}, mongo.ErrNoDocuments
	}
	return usr, nil
}

// SetStatus changes a seeded user's status.
func (u *MemUsers) SetStatus(id primitive.ObjectID, status string) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	usr := u.s.users[id]
	usr.Status = status
	u.s.users[id] = usr
}

func (u *MemUsers) ListByChurchRole(_ context.Context, churchID primitive.ObjectID, role string) ([]models.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var out []models.User
	for _, usr := range u.s.users {
		if usr.ChurchID != churchID || usr.Status != "active" {
			continue
		}
		for _, r := range usr.Roles {
			if r == role {
				out = append(out, usr)
				break
			}
		}
	}
	return out, nil
}

/* --------------------------------- groups --------------------------------- */

type MemGroups struct{ s *MemStore }

func (g *MemGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if err := g.s.enter(OpGroupsGet); err != nil {
		return models.Group{}, err
	}
	grp, ok := g.s.groups[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	return grp, nil
}

func (g *MemGroups) Create(_ context.Context, grp models.Group) (models.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if err := g.s.enter(OpGroupsCreate); err != nil {
		return models.Group{}, err
	}
	if grp.ID.IsZero() {
		grp.ID = primitive.NewObjectID()
	}
	if grp.Status == "" {
		grp.Status = models.GroupPending
	}
	now := time.Now().UTC()
	grp.CreatedAt, grp.UpdatedAt = now, now
	g.s.groups[grp.ID] = grp
	return grp, nil
}

func (g *MemGroups) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to string, actorID primitive.ObjectID, reason string) (models.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if err := g.s.enter(OpGroupsUpdateStatus); err != nil {
		return models.Group{}, err
	}
	grp, ok := g.s.groups[id]
	if !ok {
		return models.Group{}, mongo.ErrNoDocuments
	}
	if grp.Status != from {
		return models.Group{}, groupstore.ErrStatusMismatch
	}
	grp.Status = to
	grp.StatusChangedBy = &actorID
	if reason != "" {
		grp.DeclineReason = reason
	}
	grp.UpdatedAt = time.Now().UTC()
	g.s.groups[id] = grp
	return grp, nil
}

// SetStatus forces a group's status, simulating a concurrent writer.
func (g *MemGroups) SetStatus(id primitive.ObjectID, status string) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	grp := g.s.groups[id]
	grp.Status = status
	g.s.groups[id] = grp
}

func (g *MemGroups) ListByChurch(_ context.Context, churchID primitive.ObjectID, status string) ([]models.Group, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if err := g.s.enter(OpGroupsList); err != nil {
		return nil, err
	}
	var out []models.Group
	for _, grp := range g.s.groups {
		if grp.ChurchID == churchID && (status == "" || grp.Status == status) {
			out = append(out, grp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *MemGroups) Delete(_ context.Context, id primitive.ObjectID) (int64, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if err := g.s.enter(OpGroupsDelete); err != nil {
		return 0, err
	}
	if _, ok := g.s.groups[id]; !ok {
		return 0, nil
	}
	delete(g.s.groups, id)
	return 1, nil
}

/* ------------------------------ memberships ------------------------------- */

type MemMemberships struct{ s *MemStore }

func (m *MemMemberships) GetByID(_ context.Context, id primitive.ObjectID) (models.GroupMembership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.enter(OpMembershipsGet); err != nil {
		return models.GroupMembership{}, err
	}
	row, ok := m.s.memberships[id]
	if !ok {
		return models.GroupMembership{}, mongo.ErrNoDocuments
	}
	return row, nil
}

func (m *MemMemberships) Get(_ context.Context, groupID, userID primitive.ObjectID) (models.GroupMembership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.enter(OpMembershipsGet); err != nil {
		return models.GroupMembership{}, err
	}
	row, ok := m.s.findPair(groupID, userID)
	if !ok {
		return models.GroupMembership{}, mongo.ErrNoDocuments
	}
	return row, nil
}

func (m *MemMemberships) Insert(_ context.Context, row models.GroupMembership) (models.GroupMembership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.enter(OpMembershipsInsert); err != nil {
		return models.GroupMembership{}, err
	}
	if _, dup := m.s.findPair(row.GroupID, row.UserID); dup {
		return models.GroupMembership{}, membershipstore.ErrDuplicateMembership
	}
	if row.ID.IsZero() {
		row.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now
	m.s.memberships[row.ID] = row
	return row, nil
}

// update applies fn to row id when match accepts it.
func (m *MemMemberships) update(id primitive.ObjectID, match func(models.GroupMembership) bool, fn func(*models.GroupMembership)) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.enter(OpMembershipsUpdate); err != nil {
		return err
	}
	row, ok := m.s.memberships[id]
	if !ok || !match(row) {
		return membershipstore.ErrStateChanged
	}
	fn(&row)
	row.UpdatedAt = time.Now().UTC()
	m.s.memberships[id] = row
	return nil
}

func (m *MemMemberships) UpdateRole(_ context.Context, id primitive.ObjectID, from, to string) error {
	return m.update(id,
		func(r models.GroupMembership) bool { return r.Role == from && r.Status == models.MembershipActive },
		func(r *models.GroupMembership) { r.Role = to })
}

func (m *MemMemberships) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to string, joinedAt *time.Time) error {
	return m.update(id,
		func(r models.GroupMembership) bool { return r.Status == from },
		func(r *models.GroupMembership) {
			r.Status = to
			if joinedAt != nil {
				t := *joinedAt
				r.JoinedAt = &t
			}
		})
}

func (m *MemMemberships) Reopen(_ context.Context, id primitive.ObjectID, from string, contactConsent bool, message string) error {
	return m.update(id,
		func(r models.GroupMembership) bool { return r.Status == from },
		func(r *models.GroupMembership) {
			r.Status = models.MembershipPending
			r.Role = models.RoleMember
			r.ContactConsent = contactConsent
			r.RequestMessage = message
		})
}

func (m *MemMemberships) DeletePending(_ context.Context, id primitive.ObjectID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.enter(OpMembershipsUpdate); err != nil {
		return err
	}
	row, ok := m.s.memberships[id]
	if !ok || row.Status != models.MembershipPending {
		return membershipstore.ErrStateChanged
	}
	delete(m.s.memberships, id)
	return nil
}

func (m *MemMemberships) CountActiveLeaders(_ context.Context, groupID primitive.ObjectID) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.enter(OpMembershipsCount); err != nil {
		return 0, err
	}
	return int64(len(m.s.activeLeaders(groupID))), nil
}

func (m *MemMemberships) ListByGroup(_ context.Context, groupID primitive.ObjectID, status string) ([]models.GroupMembership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.enter(OpMembershipsList); err != nil {
		return nil, err
	}
	var out []models.GroupMembership
	for _, row := range m.s.memberships {
		if row.GroupID == groupID && (status == "" || row.Status == status) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemMemberships) ListActiveLeaders(_ context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.activeLeaders(groupID), nil
}

func (m *MemMemberships) IsActiveLeader(_ context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, row := range m.s.activeLeaders(groupID) {
		if row.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

/* ------------------------- services, notes, outbox ------------------------ */

type MemServices struct{ s *MemStore }

func (c *MemServices) GetByID(_ context.Context, id primitive.ObjectID) (models.ChurchService, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cs, ok := c.s.services[id]
	if !ok {
		return models.ChurchService{}, mongo.ErrNoDocuments
	}
	return cs, nil
}

type MemNotes struct{ s *MemStore }

func (n *MemNotes) Append(_ context.Context, note models.MembershipNote) (models.MembershipNote, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if err := n.s.enter(OpNotesAppend); err != nil {
		return models.MembershipNote{}, err
	}
	if note.ID.IsZero() {
		note.ID = primitive.NewObjectID()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	n.s.notes = append(n.s.notes, note)
	return note, nil
}

func (n *MemNotes) ListByMembership(_ context.Context, membershipID primitive.ObjectID, limit int64) ([]models.MembershipNote, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	var out []models.MembershipNote
	for i := len(n.s.notes) - 1; i >= 0; i-- {
		note := n.s.notes[i]
		if note.MembershipID != nil && *note.MembershipID == membershipID {
			out = append(out, note)
			if limit > 0 && int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

type MemOutbox struct{ s *MemStore }

func (o *MemOutbox) Insert(_ context.Context, n models.Notification) (models.Notification, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if err := o.s.enter(OpOutboxInsert); err != nil {
		return models.Notification{}, err
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	o.s.outbox = append(o.s.outbox, n)
	return n, nil
}
