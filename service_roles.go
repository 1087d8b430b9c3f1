package agencykit

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ROLE ASSIGNMENT
// ============================================================================

// AssignRole changes a login's role and entity reference and returns the
// updated account. Only Admin may assign roles, and an Admin may not change
// its own role. The entity must exist and match the role: a client record
// for RoleClient, an employee record for every other role.
//
// Example:
//
//	ctx = agencykit.WithActor(ctx, admin)
//	user, err := service.AssignRole(ctx, "user-4", agencykit.RoleSales, "emp-4")
func (s *Service) AssignRole(ctx context.Context, userID string, role Role, entityID string) (*User, error) {
	actor := ActorFromContext(ctx)
	if err := authorizeAssignment(actor, userID, role, entityID); err != nil {
		return nil, err
	}

	var updated *User
	err := s.Transaction(ctx, func(ctx context.Context) error {
		user, err := s.UserByID(ctx, userID)
		if err != nil {
			return err
		}
		exists, err := s.entityExists(ctx, role, entityID)
		if err != nil {
			return err
		}
		if !exists {
			return unknownEntity(role, entityID)
		}

		previous := user.Role
		user.Role = role
		user.EntityID = entityID
		result, err := s.conn(ctx).NewUpdate().Model(user).Column("role", "entity_id").WherePK().Exec(ctx)
		if err := dbkit.WithErr(result, err, "AssignRole").Err(); err != nil {
			return err
		}

		s.logger.Info("role assigned",
			zap.String("actor_id", actor.UserID),
			zap.String("user_id", userID),
			zap.String("previous_role", string(previous)),
			zap.String("role", string(role)),
			zap.String("entity_id", entityID))
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) entityExists(ctx context.Context, role Role, entityID string) (bool, error) {
	where := func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", entityID)
	}
	var (
		exists bool
		err    error
	)
	if role == RoleClient {
		exists, err = dbkit.Exists[Client](ctx, s.conn(ctx), where)
	} else {
		exists, err = dbkit.Exists[Employee](ctx, s.conn(ctx), where)
	}
	return exists, dbkit.WithErr1(err, "EntityExists").Err()
}

// authorizeAssignment holds the checks that need no stored data.
func authorizeAssignment(actor *Actor, userID string, role Role, entityID string) error {
	if actor == nil {
		return NewError(ErrNoActor, "actor required for role assignment")
	}
	if actor.Role != RoleAdmin {
		return NewError(ErrUnauthorized, "only Admin may assign roles").WithActor(actor).WithRecord(userID)
	}
	if !role.IsValid() {
		return NewError(ErrInvalidRole, fmt.Sprintf("unknown role %q", role)).WithUser(userID)
	}
	if actor.UserID == userID && role != RoleAdmin {
		return NewError(ErrUnauthorized, "an Admin may not demote itself").WithActor(actor).WithRecord(userID)
	}
	if entityID == "" {
		return NewError(ErrInvalidRecord, "entity reference required").WithUser(userID).WithRole(role)
	}
	return nil
}

func unknownEntity(role Role, entityID string) error {
	kind := (&Actor{Role: role}).EntityKind()
	return NewError(ErrInvalidRecord, fmt.Sprintf("unknown %s %q for role %s", kind, entityID, role)).
		WithRole(role).
		WithKind(kind).
		WithRecord(entityID)
}
