package vesting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccrue_Formula(t *testing.T) {
	// P = 1000, r = 0.03: monthly reward is 30, daily reward is 1.0
	monthly := Accrue(1000, 0.03, SecondsPerMonth)
	require.InDelta(t, 30.0, monthly, 1e-9)

	daily := Accrue(1000, 0.03, 24*3600)
	require.InDelta(t, 1.0, daily, 1e-9)

	perSecond := Accrue(1000, 0.03, 1)
	require.InDelta(t, 0.0000115741, perSecond, 1e-9)
}

func TestAccrue_Additivity(t *testing.T) {
	const p = 2500.5
	const r = 0.03

	whole := Accrue(p, r, 86400+3600)
	split := Accrue(p, r, 86400) + Accrue(p, r, 3600)
	require.InDelta(t, whole, split, 1e-9)
}

func TestAccrue_ZeroInputs(t *testing.T) {
	require.Zero(t, Accrue(0, 0.03, 86400))
	require.Zero(t, Accrue(1000, 0.03, 0))
	require.Zero(t, Accrue(-5, 0.03, 86400))
	require.Zero(t, Accrue(1000, 0.03, -60))
}

func TestCurrentRewards_ReadOnlyProjection(t *testing.T) {
	lastUpdate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := lastUpdate.Add(24 * time.Hour)

	got := CurrentRewards(12.5, 1000, 0.03, lastUpdate, now)
	require.InDelta(t, 13.5, got, 1e-9)
}

func TestCurrentRewards_Monotonic(t *testing.T) {
	lastUpdate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	prev := 0.0
	for i := 0; i < 48; i++ {
		now := lastUpdate.Add(time.Duration(i) * time.Hour)
		got := CurrentRewards(5, 1000, 0.03, lastUpdate, now)
		require.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestCurrentRewards_ClockSkew(t *testing.T) {
	// a reader with a clock behind the stored timestamp must never see the
	// balance shrink
	lastUpdate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := lastUpdate.Add(-time.Minute)

	got := CurrentRewards(42.0, 1000, 0.03, lastUpdate, now)
	require.Equal(t, 42.0, got)
}

func TestRatePerSecond(t *testing.T) {
	require.InDelta(t, 0.03/2592000.0, RatePerSecond(0.03), 1e-18)
}

func TestIncrease_SettlesAtOldPrincipal(t *testing.T) {
	lastUpdate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	now := lastUpdate.Add(SecondsPerMonth * time.Second)

	// P = 1000 for a month earned 30; adding another 1000 now must not
	// re-price that month at P = 2000
	newPrincipal, newBalance := Increase(1000, 0, 0.03, lastUpdate, now, 1000)
	require.Equal(t, 2000.0, newPrincipal)
	require.InDelta(t, 30.0, newBalance, 1e-9)

	// subsequent accrual runs at the increased principal
	later := now.Add(24 * time.Hour)
	require.InDelta(t, 32.0, CurrentRewards(newBalance, newPrincipal, 0.03, now, later), 1e-9)
}

func TestIncrease_ImmediatePurchase(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	newPrincipal, newBalance := Increase(0, 0, 0.03, now, now, 500)
	require.Equal(t, 500.0, newPrincipal)
	require.Zero(t, newBalance)
}
