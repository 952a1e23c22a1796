package events

// Subscription event types published through the outbox.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionPaused    = "subscription.paused"
	EventSubscriptionHalted    = "subscription.halted"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionCompleted = "subscription.completed"
	EventSubscriptionExpired   = "subscription.expired"
	EventPersonalRecordSet     = "workout.personal_record"
)

// SubscriptionEventPayload captures the minimal data downstream consumers
// need to react to a lifecycle change.
type SubscriptionEventPayload struct {
	SubscriptionID string `json:"subscription_id"`
	UserID         string `json:"user_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// PersonalRecordPayload announces a new estimated one-rep max.
type PersonalRecordPayload struct {
	UserID         string  `json:"user_id"`
	Exercise       string  `json:"exercise"`
	EstimatedOneRM float64 `json:"estimated_one_rm"`
	PreviousBestKg float64 `json:"previous_best_kg,omitempty"`
}
