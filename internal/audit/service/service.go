package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/strideworks/traincore/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Log(ctx context.Context, actorType domain.ActorType, actorID string, action, targetType, targetID string, metadata map[string]any) error {
	return s.insert(ctx, s.db, actorType, actorID, action, targetType, targetID, metadata)
}

func (s *Service) TxLog(ctx context.Context, tx *gorm.DB, actorType domain.ActorType, actorID string, action, targetType, targetID string, metadata map[string]any) error {
	if tx == nil {
		tx = s.db
	}
	return s.insert(ctx, tx, actorType, actorID, action, targetType, targetID, metadata)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) insert(ctx context.Context, db *gorm.DB, actorType domain.ActorType, actorID string, action, targetType, targetID string, metadata map[string]any) error {
	entry := &domain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  string(actorType),
		Action:     strings.TrimSpace(action),
		TargetType: strings.TrimSpace(targetType),
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  time.Now().UTC(),
	}
	if id := strings.TrimSpace(actorID); id != "" {
		entry.ActorID = &id
	}
	if id := strings.TrimSpace(targetID); id != "" {
		entry.TargetID = &id
	}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		entry.Metadata[key] = value
	}

	if err := s.repo.Insert(ctx, db, entry); err != nil {
		s.log.Error("audit insert failed", zap.String("action", entry.Action), zap.Error(err))
		return err
	}
	return nil
}
