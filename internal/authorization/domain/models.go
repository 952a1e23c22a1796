package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Role is the access level a membership grants.
type Role string

const (
	RoleClient  Role = "CLIENT"
	RoleTrainer Role = "TRAINER"
	RoleAdmin   Role = "ADMIN"
)

// IsValid reports whether the role is one of the known access levels.
func (r Role) IsValid() bool {
	switch r {
	case RoleClient, RoleTrainer, RoleAdmin:
		return true
	}
	return false
}

// Membership grants a user a role, optionally scoped to a coaching
// category for trainers.
type Membership struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_membership,priority:1"`
	Role      Role         `gorm:"type:text;not null;uniqueIndex:ux_membership,priority:2"`
	Category  *string      `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "memberships" }

var (
	ErrForbidden   = errors.New("forbidden")
	ErrUnknownRole = errors.New("unknown_role")
)

type Repository interface {
	FindRoles(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Role, error)
	Grant(ctx context.Context, db *gorm.DB, membership *Membership) error
}

// Authorizer answers role questions for a user. Require returns
// ErrForbidden when none of the accepted roles is held.
type Authorizer interface {
	Roles(ctx context.Context, userID snowflake.ID) ([]Role, error)
	Require(ctx context.Context, userID snowflake.ID, accepted ...Role) error
}
