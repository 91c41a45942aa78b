package referral

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mapSource map[string]string

func (m mapSource) ReferrerOf(userID string) (string, bool, error) {
	referrer, ok := m[userID]
	return referrer, ok, nil
}

func TestDistribute_FullChain(t *testing.T) {
	// X was referred by A, A by B, B by C
	source := mapSource{"X": "A", "A": "B", "B": "C", "C": "D"}

	calc := NewCalculator(source)
	credits, err := calc.Distribute("X", 1000)
	require.NoError(t, err)
	require.Len(t, credits, 3)

	require.Equal(t, Credit{EarnerID: "A", Level: 1, AmountMXI: 50}, credits[0])
	require.Equal(t, Credit{EarnerID: "B", Level: 2, AmountMXI: 20}, credits[1])
	require.Equal(t, Credit{EarnerID: "C", Level: 3, AmountMXI: 10}, credits[2])
}

func TestDistribute_ChainStopsAtFourthLevel(t *testing.T) {
	source := mapSource{"X": "A", "A": "B", "B": "C", "C": "D", "D": "E"}

	calc := NewCalculator(source)
	credits, err := calc.Distribute("X", 100)
	require.NoError(t, err)
	require.Len(t, credits, 3)

	for _, credit := range credits {
		require.NotEqual(t, "D", credit.EarnerID)
		require.NotEqual(t, "E", credit.EarnerID)
	}
}

func TestDistribute_ShortChain(t *testing.T) {
	source := mapSource{"X": "A"}

	calc := NewCalculator(source)
	credits, err := calc.Distribute("X", 1000)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	require.Equal(t, "A", credits[0].EarnerID)
	require.Equal(t, 50.0, credits[0].AmountMXI)
}

func TestDistribute_NoReferrer(t *testing.T) {
	calc := NewCalculator(mapSource{})
	credits, err := calc.Distribute("X", 1000)
	require.NoError(t, err)
	require.Empty(t, credits)
}

func TestDistribute_CycleTerminates(t *testing.T) {
	// corrupt graph: A and B refer each other
	source := mapSource{"X": "A", "A": "B", "B": "A"}

	calc := NewCalculator(source)
	credits, err := calc.Distribute("X", 1000)
	require.NoError(t, err)
	require.Len(t, credits, 2)
	require.Equal(t, "A", credits[0].EarnerID)
	require.Equal(t, "B", credits[1].EarnerID)
}

func TestDistribute_SelfReferralIgnored(t *testing.T) {
	source := mapSource{"X": "X"}

	calc := NewCalculator(source)
	credits, err := calc.Distribute("X", 1000)
	require.NoError(t, err)
	require.Empty(t, credits)
}

func TestDistribute_ZeroAmount(t *testing.T) {
	source := mapSource{"X": "A"}

	calc := NewCalculator(source)
	credits, err := calc.Distribute("X", 0)
	require.NoError(t, err)
	require.Empty(t, credits)
}

type failingSource struct {
	after  int
	calls  int
	source mapSource
}

func (f *failingSource) ReferrerOf(userID string) (string, bool, error) {
	f.calls++
	if f.calls > f.after {
		return "", false, errors.New("connection reset")
	}
	return f.source.ReferrerOf(userID)
}

func TestDistribute_SourceErrorReturnsPartialCredits(t *testing.T) {
	source := &failingSource{after: 1, source: mapSource{"X": "A", "A": "B"}}

	calc := NewCalculator(source)
	credits, err := calc.Distribute("X", 1000)
	require.Error(t, err)
	require.Len(t, credits, 1)
	require.Equal(t, "A", credits[0].EarnerID)
}

func TestRateForLevel(t *testing.T) {
	require.Equal(t, 0.05, RateForLevel(1))
	require.Equal(t, 0.02, RateForLevel(2))
	require.Equal(t, 0.01, RateForLevel(3))
	require.Zero(t, RateForLevel(0))
	require.Zero(t, RateForLevel(4))
}
