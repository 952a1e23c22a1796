package domain

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrUnknownStatus        = errors.New("unknown_subscription_status")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrMissingTransaction   = errors.New("missing_transaction")
)
