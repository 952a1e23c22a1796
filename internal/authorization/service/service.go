package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/authorization/domain"
	"github.com/strideworks/traincore/internal/cache"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const roleCacheTTL = time.Minute

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	roles cache.Cache[snowflake.ID, []domain.Role]
}

// NewService constructs the membership-backed authorizer. Role lookups
// sit on the request path of every guarded route, so results are cached
// briefly; a grant takes up to the TTL to become visible.
func NewService(p Params) domain.Authorizer {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("authorization.service"),
		repo:  p.Repo,
		roles: cache.NewTTLCache[snowflake.ID, []domain.Role](),
	}
}

func (s *Service) Roles(ctx context.Context, userID snowflake.ID) ([]domain.Role, error) {
	if cached, ok := s.roles.Get(userID); ok {
		return cached, nil
	}
	roles, err := s.repo.FindRoles(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	s.roles.Set(userID, roles, roleCacheTTL)
	return roles, nil
}

func (s *Service) Require(ctx context.Context, userID snowflake.ID, accepted ...domain.Role) error {
	for _, role := range accepted {
		if !role.IsValid() {
			return fmt.Errorf("%w: %s", domain.ErrUnknownRole, role)
		}
	}

	held, err := s.Roles(ctx, userID)
	if err != nil {
		return err
	}
	for _, role := range held {
		// ADMIN passes every check.
		if role == domain.RoleAdmin {
			return nil
		}
		for _, want := range accepted {
			if role == want {
				return nil
			}
		}
	}

	s.log.Warn("access denied",
		zap.String("user_id", userID.String()),
		zap.Any("accepted", accepted),
	)
	return domain.ErrForbidden
}
