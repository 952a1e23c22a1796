package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("subscription.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id string) (domain.Subscription, error) {
	parsed, err := parseID(id, domain.ErrInvalidSubscription)
	if err != nil {
		return domain.Subscription{}, err
	}
	sub, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Subscription{}, err
	}
	if sub == nil {
		return domain.Subscription{}, domain.ErrSubscriptionNotFound
	}
	return *sub, nil
}

func (s *Service) GetByUser(ctx context.Context, userID string) (domain.Subscription, error) {
	parsed, err := parseID(userID, domain.ErrInvalidUser)
	if err != nil {
		return domain.Subscription{}, err
	}
	sub, err := s.repo.FindByUserID(ctx, s.db, parsed)
	if err != nil {
		return domain.Subscription{}, err
	}
	if sub == nil {
		return domain.Subscription{}, domain.ErrSubscriptionNotFound
	}
	return *sub, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, invalid
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		return 0, invalid
	}
	return snowflake.ID(parsed), nil
}
