package models

import (
	"crypto/subtle"
	"time"
)

// Purpose binds a one-time code to the flow it unlocks.
type Purpose string

const (
	PurposeEmailVerify   Purpose = "EMAIL_VERIFY"
	PurposePasswordReset Purpose = "PASSWORD_RESET"
)

// CodeState is the lifecycle state of a one-time code. Every state except
// CodeActive is terminal.
type CodeState string

const (
	CodeActive            CodeState = "ACTIVE"
	CodeConsumed          CodeState = "CONSUMED"
	CodeExpiredByTime     CodeState = "EXPIRED_BY_TIME"
	CodeExpiredByAttempts CodeState = "EXPIRED_BY_ATTEMPTS"
	CodeSuperseded        CodeState = "SUPERSEDED"
)

// Terminal reports whether no further transition is possible.
func (s CodeState) Terminal() bool {
	return s != CodeActive
}

// Outcome is the result of presenting a value to a code.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeMismatch
	OutcomeExpired
	OutcomeAttemptsExceeded
	OutcomeNotActive
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeMismatch:
		return "mismatch"
	case OutcomeExpired:
		return "expired"
	case OutcomeAttemptsExceeded:
		return "attempts_exceeded"
	case OutcomeNotActive:
		return "not_active"
	default:
		return "unknown"
	}
}

// OneTimeCode is a numeric code proving control of an email address.
// Version is bumped on every persisted change and used for compare-and-swap.
type OneTimeCode struct {
	ID        int64
	AccountID int64
	Value     string
	Purpose   Purpose
	State     CodeState
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
	Version   int64
}

// NewOneTimeCode returns an active code valid for ttl from now.
func NewOneTimeCode(accountID int64, value string, purpose Purpose, now time.Time, ttl time.Duration) *OneTimeCode {
	return &OneTimeCode{
		AccountID: accountID,
		Value:     value,
		Purpose:   purpose,
		State:     CodeActive,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Attempt applies one verification attempt and returns its outcome.
// changed is true when the code was mutated and must be persisted.
//
// Order of checks for an active code: attempt ceiling, then expiry, then the
// value itself. A code at the ceiling is closed even if the value matches.
func (c *OneTimeCode) Attempt(now time.Time, supplied string, maxAttempts int) (outcome Outcome, changed bool) {
	switch c.State {
	case CodeConsumed:
		return OutcomeNotActive, false
	case CodeExpiredByAttempts:
		return OutcomeAttemptsExceeded, false
	case CodeExpiredByTime, CodeSuperseded:
		return OutcomeExpired, false
	}

	if c.Attempts >= maxAttempts {
		c.State = CodeExpiredByAttempts
		return OutcomeAttemptsExceeded, true
	}
	if now.After(c.ExpiresAt) {
		c.State = CodeExpiredByTime
		return OutcomeExpired, true
	}
	if !c.Matches(supplied) {
		c.Attempts++
		return OutcomeMismatch, true
	}
	c.State = CodeConsumed
	return OutcomeAccepted, true
}

// Supersede closes an active code because a newer one was issued.
// It reports whether the state changed.
func (c *OneTimeCode) Supersede() bool {
	if c.State != CodeActive {
		return false
	}
	c.State = CodeSuperseded
	return true
}

// Matches compares supplied against the code value in constant time.
func (c *OneTimeCode) Matches(supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(supplied)) == 1
}
