package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ListFilter narrows audit queries for the admin surface.
type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

// Service records audit entries. TxLog participates in a caller-supplied
// transaction so the audit row commits or aborts with the work it records.
type Service interface {
	Log(ctx context.Context, actorType ActorType, actorID string, action, targetType, targetID string, metadata map[string]any) error
	TxLog(ctx context.Context, tx *gorm.DB, actorType ActorType, actorID string, action, targetType, targetID string, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]*AuditLog, error)
}
