package domain

import (
	"errors"
	"testing"
)

var allStatuses = []SubscriptionStatus{
	SubscriptionStatusCreated,
	SubscriptionStatusPending,
	SubscriptionStatusAuthenticated,
	SubscriptionStatusActive,
	SubscriptionStatusPaused,
	SubscriptionStatusHalted,
	SubscriptionStatusExpired,
	SubscriptionStatusCompleted,
	SubscriptionStatusCancelled,
}

func TestStatusPrecedenceTotal(t *testing.T) {
	want := map[SubscriptionStatus]int{
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
	for status, rank := range want {
		got, err := StatusPrecedence(status)
		if err != nil {
			t.Fatalf("StatusPrecedence(%s): %v", status, err)
		}
		if got != rank {
			t.Fatalf("StatusPrecedence(%s) = %d, want %d", status, got, rank)
		}
	}
}

func TestStatusPrecedenceUnknownFailsLoudly(t *testing.T) {
	if _, err := StatusPrecedence("TRIALING"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
	if IsStatusUpgrade("TRIALING", SubscriptionStatusActive) {
		t.Fatal("unknown current status must not authorize a transition")
	}
	if IsStatusUpgrade(SubscriptionStatusActive, "TRIALING") {
		t.Fatal("unknown proposed status must not authorize a transition")
	}
}

func TestMonotonicityOutsideExceptions(t *testing.T) {
	for _, current := range allStatuses {
		for _, proposed := range allStatuses {
			if AllowedDowngrade(current, proposed) != nil {
				continue
			}
			if (current == SubscriptionStatusPending || current == SubscriptionStatusHalted) &&
				proposed == SubscriptionStatusActive {
				continue
			}
			currentRank, _ := StatusPrecedence(current)
			proposedRank, _ := StatusPrecedence(proposed)
			want := proposedRank > currentRank
			if got := IsStatusUpgrade(current, proposed); got != want {
				t.Fatalf("IsStatusUpgrade(%s, %s) = %v, want rank comparison %v", current, proposed, got, want)
			}
		}
	}
}

func TestDowngradeWhitelistExactness(t *testing.T) {
	allowed := [][2]SubscriptionStatus{
		{SubscriptionStatusActive, SubscriptionStatusPending},
		{SubscriptionStatusPending, SubscriptionStatusHalted},
		{SubscriptionStatusActive, SubscriptionStatusPaused},
	}
	for _, pair := range allowed {
		if !IsStatusUpgrade(pair[0], pair[1]) {
			t.Fatalf("whitelisted downgrade %s -> %s rejected", pair[0], pair[1])
		}
		if AllowedDowngrade(pair[0], pair[1]) == nil {
			t.Fatalf("AllowedDowngrade(%s, %s) = nil", pair[0], pair[1])
		}
	}

	// Reverse directions are not whitelist entries. HALTED -> PENDING is
	// genuinely rejected; PENDING -> ACTIVE passes via the recovery rule
	// and PAUSED -> ACTIVE is rejected (resume is not whitelisted).
	if AllowedDowngrade(SubscriptionStatusPending, SubscriptionStatusActive) != nil {
		t.Fatal("PENDING -> ACTIVE must not be a whitelist entry")
	}
	if IsStatusUpgrade(SubscriptionStatusHalted, SubscriptionStatusPending) {
		t.Fatal("HALTED -> PENDING must be rejected")
	}
	if IsStatusUpgrade(SubscriptionStatusPaused, SubscriptionStatusActive) {
		t.Fatal("PAUSED -> ACTIVE is not whitelisted and not a rank upgrade")
	}

	rejected := [][2]SubscriptionStatus{
		{SubscriptionStatusActive, SubscriptionStatusCreated},
		{SubscriptionStatusCompleted, SubscriptionStatusActive},
		{SubscriptionStatusCancelled, SubscriptionStatusActive},
		{SubscriptionStatusActive, SubscriptionStatusAuthenticated},
		{SubscriptionStatusExpired, SubscriptionStatusPaused},
	}
	for _, pair := range rejected {
		if IsStatusUpgrade(pair[0], pair[1]) {
			t.Fatalf("unlisted regression %s -> %s accepted", pair[0], pair[1])
		}
	}
}

func TestRecoveryException(t *testing.T) {
	if !IsStatusUpgrade(SubscriptionStatusPending, SubscriptionStatusActive) {
		t.Fatal("PENDING -> ACTIVE must be allowed")
	}
	if !IsStatusUpgrade(SubscriptionStatusHalted, SubscriptionStatusActive) {
		t.Fatal("HALTED -> ACTIVE must be allowed")
	}

	// HALTED (rank 3) -> ACTIVE (rank 2) passes only through the
	// exception, never through rank comparison.
	decision, err := DecideTransition(SubscriptionStatusHalted, SubscriptionStatusActive)
	if err != nil {
		t.Fatalf("DecideTransition: %v", err)
	}
	if !decision.Allowed || decision.Reason != ReasonRecovery {
		t.Fatalf("HALTED -> ACTIVE decision = %+v, want recovery", decision)
	}
	if decision.ProposedRank > decision.CurrentRank {
		t.Fatalf("HALTED -> ACTIVE should not be a rank upgrade (got %d -> %d)", decision.CurrentRank, decision.ProposedRank)
	}
}

func TestDecisionReasons(t *testing.T) {
	cases := []struct {
		current  SubscriptionStatus
		proposed SubscriptionStatus
		allowed  bool
		reason   string
	}{
		{SubscriptionStatusCreated, SubscriptionStatusActive, true, ReasonUpgrade},
		{SubscriptionStatusActive, SubscriptionStatusPending, true, "payment failure - entering retry cycle"},
		{SubscriptionStatusPending, SubscriptionStatusHalted, true, "multiple payment failures - subscription halted"},
		{SubscriptionStatusActive, SubscriptionStatusPaused, true, "user or system paused subscription"},
		{SubscriptionStatusHalted, SubscriptionStatusActive, true, ReasonRecovery},
		{SubscriptionStatusActive, SubscriptionStatusActive, false, ReasonSameStatus},
		{SubscriptionStatusActive, SubscriptionStatusAuthenticated, false, ReasonStaleStatus},
		{SubscriptionStatusCreated, SubscriptionStatusPending, false, ReasonStaleStatus},
	}
	for _, tc := range cases {
		decision, err := DecideTransition(tc.current, tc.proposed)
		if err != nil {
			t.Fatalf("DecideTransition(%s, %s): %v", tc.current, tc.proposed, err)
		}
		if decision.Allowed != tc.allowed || decision.Reason != tc.reason {
			t.Fatalf("DecideTransition(%s, %s) = {allowed:%v reason:%q}, want {allowed:%v reason:%q}",
				tc.current, tc.proposed, decision.Allowed, decision.Reason, tc.allowed, tc.reason)
		}
	}
}

func TestSafeStatusUpdate(t *testing.T) {
	if got := SafeStatusUpdate(SubscriptionStatusAuthenticated, SubscriptionStatusActive); got != SubscriptionStatusActive {
		t.Fatalf("expected ACTIVE, got %s", got)
	}
	if got := SafeStatusUpdate(SubscriptionStatusActive, SubscriptionStatusAuthenticated); got != SubscriptionStatusActive {
		t.Fatalf("stale proposal must keep current status, got %s", got)
	}
}
