package presale

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAmount_Bounds(t *testing.T) {
	require.ErrorIs(t, ValidateAmount(19.99), ErrAmountOutOfBounds)
	require.NoError(t, ValidateAmount(20))
	require.NoError(t, ValidateAmount(50000))
	require.ErrorIs(t, ValidateAmount(50000.01), ErrAmountOutOfBounds)
}

func TestRules_CustomBounds(t *testing.T) {
	rules := Rules{MinPurchaseUSDT: 100, MaxPurchaseUSDT: 1000}

	require.ErrorIs(t, rules.ValidateAmount(50), ErrAmountOutOfBounds)
	require.NoError(t, rules.ValidateAmount(100))
	require.ErrorIs(t, rules.ValidateAmount(1000.01), ErrAmountOutOfBounds)

	stage := Stage{Number: 1, UnitPrice: 0.4, Allocation: 1_000_000}
	_, err := rules.Quote(50, stage)
	require.ErrorIs(t, err, ErrAmountOutOfBounds)
}

func TestTokensForUSD(t *testing.T) {
	tokens, err := TokensForUSD(100, 0.4)
	require.NoError(t, err)
	require.InDelta(t, 250.0, tokens, 1e-9)

	_, err = TokensForUSD(100, 0)
	require.ErrorIs(t, err, ErrInvalidUnitPrice)
}

func TestTokensForUSD_DecreasesWithStagePrice(t *testing.T) {
	stagePrices := []float64{0.4, 0.7, 1.0}

	prev := 0.0
	for i, price := range stagePrices {
		tokens, err := TokensForUSD(1000, price)
		require.NoError(t, err)
		if i > 0 {
			require.Less(t, tokens, prev)
		}
		prev = tokens
	}
}

func TestQuote(t *testing.T) {
	stage := Stage{Number: 1, UnitPrice: 0.4, Allocation: 1_000_000}

	tokens, err := Quote(1000, stage)
	require.NoError(t, err)
	require.InDelta(t, 2500.0, tokens, 1e-9)

	_, err = Quote(10, stage)
	require.ErrorIs(t, err, ErrAmountOutOfBounds)
}

func TestQuote_SoldOutStage(t *testing.T) {
	stage := Stage{Number: 2, UnitPrice: 0.7, Allocation: 1000, Sold: 990}

	_, err := Quote(20000, stage)
	require.ErrorIs(t, err, ErrStageSoldOut)

	// 0.7 * 10 remaining tokens = 7 USDT worth left, below the purchase
	// minimum, so nothing fits in this stage any more
	_, err = Quote(20, stage)
	require.ErrorIs(t, err, ErrStageSoldOut)
}

func TestStageRemaining(t *testing.T) {
	require.Equal(t, 100.0, Stage{Allocation: 500, Sold: 400}.Remaining())
	require.Zero(t, Stage{Allocation: 500, Sold: 600}.Remaining())
}

func TestValidateStageOrder(t *testing.T) {
	ok := []Stage{
		{Number: 1, UnitPrice: 0.4},
		{Number: 2, UnitPrice: 0.7},
		{Number: 3, UnitPrice: 1.0},
	}
	require.NoError(t, ValidateStageOrder(ok))

	flatPrice := []Stage{
		{Number: 1, UnitPrice: 0.7},
		{Number: 2, UnitPrice: 0.7},
	}
	require.Error(t, ValidateStageOrder(flatPrice))

	duplicateNumber := []Stage{
		{Number: 1, UnitPrice: 0.4},
		{Number: 1, UnitPrice: 0.7},
	}
	require.Error(t, ValidateStageOrder(duplicateNumber))
}
