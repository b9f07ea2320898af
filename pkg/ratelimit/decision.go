package ratelimit

import (
	"fmt"
	"time"
)

// Result is the answer of a single Consume call.
type Result struct {
	// Allowed indicates whether the unit was granted.
	// When false, no quota was consumed on the client's behalf.
	Allowed bool

	// Remaining is the quota left after this call, clamped to [0, limit].
	Remaining int

	// ResetAt is the Unix time (seconds) at which quota is fully or next
	// available, depending on the algorithm.
	ResetAt int64
}

// RetryAfterSeconds returns how long a denied client should wait, relative to now.
//
// This is useful for HTTP headers like Retry-After.
func (r Result) RetryAfterSeconds(now time.Time) int64 {
	seconds := r.ResetAt - now.Unix()
	if seconds < 0 {
		return 0
	}
	return seconds
}

// ResetTime returns ResetAt as a time.Time.
func (r Result) ResetTime() time.Time {
	return time.Unix(r.ResetAt, 0)
}

// Outcome is the three-valued verdict the Orchestrator hands to callers.
type Outcome int

const (
	// OutcomeAllowed lets the request through.
	OutcomeAllowed Outcome = iota

	// OutcomeDenied rejects the request for exceeding its quota.
	OutcomeDenied

	// OutcomeUnavailable rejects the request because no decision could be made.
	OutcomeUnavailable
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeAllowed:
		return "allowed"
	case OutcomeDenied:
		return "denied"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Decision represents the result of a rate limit check made by the Orchestrator.
//
// This domain model encapsulates whether a request should be allowed, along
// with the quota metadata the caller needs to inform the client.
type Decision struct {
	// Key is the client identity the decision was made for.
	Key string

	// Policy is the policy the decision was made under.
	Policy Policy

	// Outcome is the verdict.
	Outcome Outcome

	// Result carries quota bookkeeping. Only meaningful when HasResult is true.
	Result Result

	// HasResult is false when no quota information exists (fail-open,
	// fail-closed and configuration errors).
	HasResult bool

	// Degraded is true when the answer did not come from the shared store.
	Degraded bool

	// Err is the store or configuration error behind a degraded or
	// unavailable decision.
	Err error
}

// IsAllowed returns true if the request may proceed.
func (d Decision) IsAllowed() bool {
	return d.Outcome == OutcomeAllowed
}

// String returns a human-readable representation of the decision.
func (d Decision) String() string {
	if !d.HasResult {
		return fmt.Sprintf(
			"Decision{Outcome: %s, Key: %s, Policy: %s, Degraded: %t}",
			d.Outcome, d.Key, d.Policy, d.Degraded,
		)
	}
	return fmt.Sprintf(
		"Decision{Outcome: %s, Key: %s, Policy: %s, Remaining: %d/%d, ResetAt: %d, Degraded: %t}",
		d.Outcome, d.Key, d.Policy, d.Result.Remaining, d.Policy.Limit, d.Result.ResetAt, d.Degraded,
	)
}

func resultDecision(key string, policy Policy, res Result) Decision {
	outcome := OutcomeAllowed
	if !res.Allowed {
		outcome = OutcomeDenied
	}
	return Decision{
		Key:       key,
		Policy:    policy,
		Outcome:   outcome,
		Result:    res,
		HasResult: true,
	}
}

// clampRemaining bounds remaining to [0, limit].
func clampRemaining(remaining int64, limit int) int {
	if remaining < 0 {
		return 0
	}
	if remaining > int64(limit) {
		return limit
	}
	return int(remaining)
}
