package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/authorization/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormRepository struct{}

// Provide constructs the gorm-backed membership repository.
func Provide() domain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) FindRoles(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Role, error) {
	var roles []domain.Role
	err := db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("user_id = ?", userID).
		Pluck("role", &roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *gormRepository) Grant(ctx context.Context, db *gorm.DB, membership *domain.Membership) error {
	if membership == nil || !membership.Role.IsValid() {
		return domain.ErrUnknownRole
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "role"}},
			DoNothing: true,
		}).
		Create(membership).Error
}
