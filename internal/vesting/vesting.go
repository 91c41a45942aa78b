// Package vesting implements the continuous reward accrual applied to
// purchased MXI. Rewards accrue linearly: a fixed monthly rate is metered
// per second against the purchased principal, with no compounding.
package vesting

import (
	"time"
)

// SecondsPerMonth uses a fixed 30-day month, matching the published
// "3% simple monthly, continuously metered" policy.
const SecondsPerMonth = 30 * 24 * 3600

// DefaultMonthlyRate is the launch policy rate applied to new vesting states.
const DefaultMonthlyRate = 0.03

// RatePerSecond converts a nominal monthly rate into its per-second
// equivalent.
func RatePerSecond(monthlyRate float64) float64 {
	return monthlyRate / SecondsPerMonth
}

// Accrue returns the reward earned by principal at monthlyRate over elapsed
// seconds. It is linear in elapsed time, so splitting an interval and
// summing the parts gives the same result as accruing over the whole.
func Accrue(principal, monthlyRate, elapsedSeconds float64) float64 {
	if principal <= 0 || elapsedSeconds <= 0 {
		return 0
	}

	return principal * RatePerSecond(monthlyRate) * elapsedSeconds
}

// CurrentRewards computes the balance to display right now without writing
// anything: the stored balance plus whatever has accrued since the last
// settlement.
func CurrentRewards(storedBalance, principal, monthlyRate float64, lastUpdate, now time.Time) float64 {
	elapsed := now.Sub(lastUpdate).Seconds()
	if elapsed <= 0 {
		return storedBalance
	}

	return storedBalance + Accrue(principal, monthlyRate, elapsed)
}

// Increase applies a principal increase at time now. Rewards accrued up to
// now are settled at the old principal first, so the already-elapsed interval
// is never re-priced at the larger balance.
func Increase(principal, storedBalance, monthlyRate float64, lastUpdate, now time.Time, tokens float64) (newPrincipal, newBalance float64) {
	return principal + tokens, CurrentRewards(storedBalance, principal, monthlyRate, lastUpdate, now)
}
