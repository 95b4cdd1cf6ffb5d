// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller roles. A user holds a set of these; "member" is implied for every
// signed-in user.
const (
	UserRoleMember      = "member"
	UserRoleGroupLeader = "group_leader"
	UserRoleChurchAdmin = "church_admin"
	UserRoleSuperAdmin  = "superadmin"
)

// User represents anyone who can sign in: members, leaders, church admins
// and superadmins.
//
// NOTE:
//   - Group membership is not embedded on User.
//     Use the group_memberships collection to discover a user's groups.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChurchID   primitive.ObjectID `bson:"church_id" json:"church_id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Email      string             `bson:"email" json:"email"`
	Roles      []string           `bson:"roles" json:"roles"`
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
