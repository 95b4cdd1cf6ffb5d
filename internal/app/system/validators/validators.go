// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/fellowship/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("group_memberships", groupMembershipsSchema())
	ensure("church_services", churchServicesSchema())
	ensure("membership_notes", membershipNotesSchema())

	// The outbox is drained by another process; no validator.
	ensure("notifications", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandErrorMatches(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandErrorMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandErrorMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandErrorMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enum(values ...string) bson.A {
	out := make(bson.A, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"full_name", "roles", "status"},
			"properties": bson.M{
				"full_name":    nonBlank,
				"full_name_ci": nonBlank,
				"church_id":    bson.M{"bsonType": bson.A{"objectId", "null"}},
				"email":        bson.M{"bsonType": bson.A{"string", "null"}},
				"roles": bson.M{
					"bsonType": "array",
					"items": bson.M{"enum": enum(
						models.UserRoleMember,
						models.UserRoleGroupLeader,
						models.UserRoleChurchAdmin,
						models.UserRoleSuperAdmin,
					)},
				},
				"status": bson.M{"enum": enum("active", "disabled")},
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"church_id", "service_id", "creator_id", "name", "name_ci", "status"},
			"properties": bson.M{
				"church_id":  bson.M{"bsonType": "objectId"},
				"service_id": bson.M{"bsonType": "objectId"},
				"creator_id": bson.M{"bsonType": "objectId"},
				"name":       nonBlank,
				"name_ci":    nonBlank,
				"capacity":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"status": bson.M{"enum": enum(
					models.GroupPending,
					models.GroupApproved,
					models.GroupDenied,
					models.GroupClosed,
				)},
			},
		},
	}
}

func groupMembershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"church_id", "group_id", "user_id", "role", "status"},
			"properties": bson.M{
				"church_id": bson.M{"bsonType": "objectId"},
				"group_id":  bson.M{"bsonType": "objectId"},
				"user_id":   bson.M{"bsonType": "objectId"},
				"role":      bson.M{"enum": enum(models.RoleMember, models.RoleLeader)},
				"status": bson.M{"enum": enum(
					models.MembershipPending,
					models.MembershipActive,
					models.MembershipInactive,
					models.MembershipArchived,
				)},
				"contact_consent": bson.M{"bsonType": "bool"},
				"created_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}

func churchServicesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"church_id", "name"},
			"properties": bson.M{
				"church_id": bson.M{"bsonType": "objectId"},
				"name":      nonBlank,
			},
		},
	}
}

func membershipNotesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"group_id", "note_type", "created_by", "created_at"},
			"properties": bson.M{
				"group_id":      bson.M{"bsonType": "objectId"},
				"membership_id": bson.M{"bsonType": "objectId"},
				"note_type": bson.M{"enum": enum(
					models.NoteManual,
					models.NoteStatusChange,
					models.NoteRoleChange,
					models.NoteJourneyChange,
				)},
				"created_by": bson.M{"bsonType": "objectId"},
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
