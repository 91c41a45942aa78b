package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	testToken    = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	testTreasury = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSender   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func transferLog(token, from, to common.Address, value *big.Int) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			transferEventTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(value.Bytes(), 32),
	}
}

func usdtValue(units int64) *big.Int {
	// 18-decimal token units
	value := big.NewInt(units)
	return value.Mul(value, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestExtractTransfer(t *testing.T) {
	logs := []*types.Log{
		transferLog(testToken, testSender, testTreasury, usdtValue(250)),
	}

	from, amount, found := ExtractTransfer(logs, testToken, testTreasury, 18)
	require.True(t, found)
	require.Equal(t, testSender.Hex(), from)
	require.InDelta(t, 250.0, amount, 1e-9)
}

func TestExtractTransfer_IgnoresOtherTokens(t *testing.T) {
	otherToken := common.HexToAddress("0x3333333333333333333333333333333333333333")
	logs := []*types.Log{
		transferLog(otherToken, testSender, testTreasury, usdtValue(250)),
	}

	_, _, found := ExtractTransfer(logs, testToken, testTreasury, 18)
	require.False(t, found)
}

func TestExtractTransfer_IgnoresOtherDestinations(t *testing.T) {
	otherWallet := common.HexToAddress("0x4444444444444444444444444444444444444444")
	logs := []*types.Log{
		transferLog(testToken, testSender, otherWallet, usdtValue(250)),
	}

	_, _, found := ExtractTransfer(logs, testToken, testTreasury, 18)
	require.False(t, found)
}

func TestExtractTransfer_SkipsNonTransferEvents(t *testing.T) {
	approval := &types.Log{
		Address: testToken,
		Topics: []common.Hash{
			common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925"),
			common.BytesToHash(testSender.Bytes()),
			common.BytesToHash(testTreasury.Bytes()),
		},
		Data: common.LeftPadBytes(usdtValue(250).Bytes(), 32),
	}

	_, _, found := ExtractTransfer([]*types.Log{approval}, testToken, testTreasury, 18)
	require.False(t, found)
}

func TestExtractTransfer_PicksMatchingLogAmongMany(t *testing.T) {
	otherWallet := common.HexToAddress("0x4444444444444444444444444444444444444444")
	logs := []*types.Log{
		transferLog(testToken, testSender, otherWallet, usdtValue(5)),
		transferLog(testToken, testSender, testTreasury, usdtValue(100)),
	}

	_, amount, found := ExtractTransfer(logs, testToken, testTreasury, 18)
	require.True(t, found)
	require.InDelta(t, 100.0, amount, 1e-9)
}

func TestTokenUnits(t *testing.T) {
	require.InDelta(t, 1.0, TokenUnits(usdtValue(1), 18), 1e-12)
	require.InDelta(t, 50000.0, TokenUnits(usdtValue(50000), 18), 1e-9)
	require.Zero(t, TokenUnits(big.NewInt(0), 18))

	// fractional amounts survive the conversion
	half := new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)
	half.Mul(half, big.NewInt(5))
	require.InDelta(t, 0.5, TokenUnits(half, 18), 1e-12)
}

func TestTransferInfoConfirmed(t *testing.T) {
	info := &TransferInfo{Confirmations: 2, Required: 12}
	require.False(t, info.Confirmed())

	info.Confirmations = 12
	require.True(t, info.Confirmed())
}
