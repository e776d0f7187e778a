// Package entitlement decides whether the account may start a capture.
package entitlement

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Tier identifies the account's subscription level.
type Tier string

const (
	TierFree Tier = "FREE"
	TierPro  Tier = "PRO"
)

// ErrTrialExpired indicates the free trial has lapsed and capture is locked.
var ErrTrialExpired = errors.New("trial expired")

// AccountState is the account snapshot the gate evaluates. TrialExpiresAt is
// nil when the account has no trial clock running.
type AccountState struct {
	Tier           Tier
	TrialExpiresAt *time.Time
	BetaTester     bool
}

// State is the gate's verdict. TrialDaysLeft is nil unless a trial clock is
// running; zero means the trial ends today.
type State struct {
	HasAccess     bool
	TrialDaysLeft *int
}

// ParseTier normalizes a stored tier string. Unknown values map to FREE so a
// corrupt snapshot fails closed rather than granting access.
func ParseTier(value string) Tier {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(TierPro):
		return TierPro
	default:
		return TierFree
	}
}

// Check evaluates the account against the current time.
//
// PRO accounts and beta testers always have access. FREE accounts have access
// while their trial clock has not lapsed; a FREE account with no trial clock
// has access with no day count.
func Check(account AccountState, now time.Time) State {
	if account.Tier == TierPro || account.BetaTester {
		return State{HasAccess: true, TrialDaysLeft: trialDaysLeft(account.TrialExpiresAt, now)}
	}

	if account.TrialExpiresAt == nil {
		return State{HasAccess: true}
	}

	if !now.Before(*account.TrialExpiresAt) {
		return State{HasAccess: false, TrialDaysLeft: intPtr(0)}
	}
	return State{HasAccess: true, TrialDaysLeft: trialDaysLeft(account.TrialExpiresAt, now)}
}

// Gate returns ErrTrialExpired when the account has no access.
func Gate(account AccountState, now time.Time) (State, error) {
	state := Check(account, now)
	if !state.HasAccess {
		return state, ErrTrialExpired
	}
	return state, nil
}

// ApplyDowngrade transitions an account to FREE at the end of its trial or
// subscription. Beta testers keep their flag through the downgrade, which is
// what keeps their access alive afterwards.
func ApplyDowngrade(account AccountState) AccountState {
	account.Tier = TierFree
	account.TrialExpiresAt = nil
	return account
}

func trialDaysLeft(expiresAt *time.Time, now time.Time) *int {
	if expiresAt == nil {
		return nil
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return intPtr(0)
	}
	days := int(math.Ceil(remaining.Hours() / 24))
	return intPtr(days)
}

func intPtr(v int) *int { return &v }
