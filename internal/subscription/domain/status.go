package domain

import "fmt"

// The payment provider redelivers webhooks and does not guarantee ordering,
// so a later-arriving stale event must never roll an already-advanced
// subscription backwards. Statuses are ranked and a proposed transition is
// accepted only when it moves forward, with an explicit whitelist for the
// legitimate business-event downgrades and the recovery paths back to ACTIVE.

// statusPrecedence ranks lifecycle stages. Statuses sharing a rank are
// interchangeable for ordering purposes: PENDING is a retry sub-state of
// CREATED, PAUSED and HALTED are both suspended, and all terminal states
// are equivalent.
var statusPrecedence = map[SubscriptionStatus]int{
	SubscriptionStatusCreated:       0,
	SubscriptionStatusPending:       0,
	SubscriptionStatusAuthenticated: 1,
	SubscriptionStatusActive:        2,
	SubscriptionStatusPaused:        3,
	SubscriptionStatusHalted:        3,
	SubscriptionStatusCompleted:     4,
	SubscriptionStatusExpired:       4,
	SubscriptionStatusCancelled:     4,
}

// Downgrade is a whitelisted transition to an equal-or-lower rank.
type Downgrade struct {
	From   SubscriptionStatus
	To     SubscriptionStatus
	Reason string
}

var allowedDowngrades = []Downgrade{
	{From: SubscriptionStatusActive, To: SubscriptionStatusPending, Reason: "payment failure - entering retry cycle"},
	{From: SubscriptionStatusPending, To: SubscriptionStatusHalted, Reason: "multiple payment failures - subscription halted"},
	{From: SubscriptionStatusActive, To: SubscriptionStatusPaused, Reason: "user or system paused subscription"},
}

// Decision reason strings surfaced in logs and asserted by tests.
const (
	ReasonUpgrade     = "upgrade"
	ReasonRecovery    = "recovery to ACTIVE"
	ReasonSameStatus  = "same status allowed"
	ReasonStaleStatus = "downgrade/same - ignored"
)

// StatusPrecedence returns the rank for a status. Unknown statuses are an
// error rather than rank 0 so that a new provider status cannot silently
// win every precedence comparison.
func StatusPrecedence(status SubscriptionStatus) (int, error) {
	rank, ok := statusPrecedence[status]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return rank, nil
}

// AllowedDowngrade returns the whitelist entry matching the transition, or
// nil when the pair is not whitelisted.
func AllowedDowngrade(current, proposed SubscriptionStatus) *Downgrade {
	for i := range allowedDowngrades {
		if allowedDowngrades[i].From == current && allowedDowngrades[i].To == proposed {
			return &allowedDowngrades[i]
		}
	}
	return nil
}

// TransitionDecision captures the authorization outcome for one proposed
// status transition, including everything the reconciler logs.
type TransitionDecision struct {
	Current      SubscriptionStatus
	Proposed     SubscriptionStatus
	CurrentRank  int
	ProposedRank int
	Allowed      bool
	Reason       string
}

// DecideTransition authorizes a proposed transition. Order matters: the
// downgrade whitelist is consulted first, then the recovery exception,
// then plain rank comparison.
//
// The PENDING->ACTIVE recovery clause is redundant with rank comparison
// (0 -> 2 is already an upgrade); it is kept to match the HALTED->ACTIVE
// clause, which is the one that genuinely needs the carve-out (3 -> 2).
func DecideTransition(current, proposed SubscriptionStatus) (TransitionDecision, error) {
	currentRank, err := StatusPrecedence(current)
	if err != nil {
		return TransitionDecision{}, err
	}
	proposedRank, err := StatusPrecedence(proposed)
	if err != nil {
		return TransitionDecision{}, err
	}

	decision := TransitionDecision{
		Current:      current,
		Proposed:     proposed,
		CurrentRank:  currentRank,
		ProposedRank: proposedRank,
	}

	if entry := AllowedDowngrade(current, proposed); entry != nil {
		decision.Allowed = true
		decision.Reason = entry.Reason
		return decision, nil
	}

	if (current == SubscriptionStatusPending || current == SubscriptionStatusHalted) &&
		proposed == SubscriptionStatusActive {
		decision.Allowed = true
		decision.Reason = ReasonRecovery
		return decision, nil
	}

	if proposedRank > currentRank {
		decision.Allowed = true
		decision.Reason = ReasonUpgrade
		return decision, nil
	}

	if current == proposed {
		decision.Reason = ReasonSameStatus
		return decision, nil
	}

	decision.Reason = ReasonStaleStatus
	return decision, nil
}

// IsStatusUpgrade reports whether the proposed transition may be applied.
// Unknown statuses are treated as not-an-upgrade; callers that need the
// distinction use DecideTransition.
func IsStatusUpgrade(current, proposed SubscriptionStatus) bool {
	decision, err := DecideTransition(current, proposed)
	if err != nil {
		return false
	}
	return decision.Allowed
}

// SafeStatusUpdate returns the proposed status when the transition is
// authorized and the current status otherwise.
func SafeStatusUpdate(current, proposed SubscriptionStatus) SubscriptionStatus {
	if IsStatusUpgrade(current, proposed) {
		return proposed
	}
	return current
}
