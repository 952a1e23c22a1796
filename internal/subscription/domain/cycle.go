package domain

import "time"

// BillingCycleUpdate carries the period columns to persist after the
// no-regression check passes.
type BillingCycleUpdate struct {
	CurrentStart time.Time
	CurrentEnd   time.Time
}

// SafeBillingCycleUpdate guards the recorded billing period against
// out-of-order webhook delivery, the same anomaly the status precedence
// table guards against but applied to the period date pair. A nil result
// means the stored period must be left untouched.
//
// A missing stored period is adopted unconditionally (first-time
// population); otherwise the incoming period wins only when it starts
// strictly after the stored one.
func SafeBillingCycleUpdate(currentStart, currentEnd, newStart, newEnd *time.Time) *BillingCycleUpdate {
	if newStart == nil || newEnd == nil {
		return nil
	}
	if currentStart == nil || currentEnd == nil {
		return &BillingCycleUpdate{CurrentStart: *newStart, CurrentEnd: *newEnd}
	}
	if newStart.After(*currentStart) {
		return &BillingCycleUpdate{CurrentStart: *newStart, CurrentEnd: *newEnd}
	}
	return nil
}
