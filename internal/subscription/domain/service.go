package domain

import "context"

// Service is the read surface consumed by the HTTP handlers. Mutation goes
// through the reconciler exclusively.
type Service interface {
	Get(ctx context.Context, id string) (Subscription, error)
	GetByUser(ctx context.Context, userID string) (Subscription, error)
}
