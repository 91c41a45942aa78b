package handler

import (
	"bytes"
	gocontext "context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mxichain/presale/internal/chain"
	"github.com/mxichain/presale/internal/context"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/mocks"
	"github.com/mxichain/presale/internal/presale"
)

// MockChainVerifier implements ChainVerifier without touching an RPC node.
type MockChainVerifier struct {
	mock.Mock
}

func (m *MockChainVerifier) VerifyTransfer(ctx gocontext.Context, txHash string, claimedUSDT float64) (*chain.TransferInfo, error) {
	args := m.Called(txHash, claimedUSDT)
	info, _ := args.Get(0).(*chain.TransferInfo)
	return info, args.Error(1)
}

const (
	testTxHash = "0x4a3b2c1d4a3b2c1d4a3b2c1d4a3b2c1d4a3b2c1d4a3b2c1d4a3b2c1d4a3b2c1d"
	testWallet = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"
)

type purchaseTestDeps struct {
	purchaseStore *mocks.MockPurchaseStore
	stageStore    *mocks.MockStageStore
	activityStore *mocks.MockActivityStore
	verifier      *MockChainVerifier
	producer      *mocks.MockProducer
	wg            *sync.WaitGroup
	handler       *PurchaseHandler
}

func newPurchaseTestDeps() *purchaseTestDeps {
	return newPurchaseTestDepsWithPricing(presale.DefaultRules())
}

func newPurchaseTestDepsWithPricing(pricing presale.Rules) *purchaseTestDeps {
	purchaseStore := new(mocks.MockPurchaseStore)
	stageStore := new(mocks.MockStageStore)
	activityStore := new(mocks.MockActivityStore)
	verifier := new(MockChainVerifier)
	producer := new(mocks.MockProducer)

	baseURL := "http://localhost"
	var wg sync.WaitGroup
	testHelper := helper.New(&baseURL, &wg)
	testHelper.RegisterErrorReporter(&mocks.MockErrorHandler{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := errHandler.New("", nil, logger, testHelper)

	h := NewPurchaseHandler(&PurchaseHandler{
		PurchaseStore:         purchaseStore,
		StageStore:            stageStore,
		ActivityStore:         activityStore,
		Verifier:              verifier,
		Kafka:                 producer,
		ErrHandler:            errorHandler,
		Helper:                testHelper,
		Pricing:               pricing,
		RequiredConfirmations: 12,
	})

	return &purchaseTestDeps{
		purchaseStore: purchaseStore,
		stageStore:    stageStore,
		activityStore: activityStore,
		verifier:      verifier,
		producer:      producer,
		wg:            &wg,
		handler:       h,
	}
}

func newInitiateRequest(t *testing.T, amount float64) *http.Request {
	t.Helper()

	requestBody, err := json.Marshal(map[string]any{
		"amount_usdt":    amount,
		"wallet_address": testWallet,
		"tx_hash":        testTxHash,
	})
	require.NoError(t, err)

	req, err := http.NewRequest("POST", "/purchases", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return context.ContextSetAuthenticatedUser(req, &database.User{
		ID:        "user-1",
		Email:     "buyer@example.com",
		FirstName: "Ada",
	})
}

func TestHandleInitiatePurchase_AmountBounds(t *testing.T) {
	tests := []struct {
		amount     float64
		wantStatus int
	}{
		{19.99, http.StatusUnprocessableEntity},
		{50000.01, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.amount), func(t *testing.T) {
			deps := newPurchaseTestDeps()

			rr := httptest.NewRecorder()
			deps.handler.HandleInitiatePurchase(rr, newInitiateRequest(t, tt.amount))

			require.Equal(t, tt.wantStatus, rr.Code)
			deps.purchaseStore.AssertNotCalled(t, "InsertPurchase", mock.Anything)
		})
	}
}

func TestHandleInitiatePurchase_ConfiguredBounds(t *testing.T) {
	// a raised minimum must actually reject amounts the default would allow
	deps := newPurchaseTestDepsWithPricing(presale.Rules{
		MinPurchaseUSDT: 100,
		MaxPurchaseUSDT: 50000,
	})

	rr := httptest.NewRecorder()
	deps.handler.HandleInitiatePurchase(rr, newInitiateRequest(t, 50))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "between 100 and 50000 USDT")
	deps.purchaseStore.AssertNotCalled(t, "InsertPurchase", mock.Anything)
}

func TestHandleInitiatePurchase_Success(t *testing.T) {
	deps := newPurchaseTestDeps()

	var noPurchase *database.Purchase
	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(noPurchase, false, nil)

	deps.stageStore.On("GetActiveStage").Return(&database.PresaleStage{
		StageNumber:   1,
		UnitPrice:     0.40,
		AllocationMXI: 25_000_000,
		SoldMXI:       0,
		Active:        true,
	}, true, nil)

	deps.purchaseStore.On("InsertPurchase", mock.Anything).Return("purchase-1", nil)
	deps.producer.On("ProduceMessage", purchaseVerifyTopic, mock.Anything).Return(nil)
	deps.activityStore.On("CreateActivityLog", mock.Anything).Return(&database.ActivityLog{}, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleInitiatePurchase(rr, newInitiateRequest(t, 1000))
	deps.wg.Wait()

	require.Equal(t, http.StatusCreated, rr.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "Expected response['data'] to be a map")

	// 1000 USDT at 0.40 per token
	require.Equal(t, 2500.0, data["amount_mxi"])
	require.Equal(t, database.PurchasePendingStatus, data["status"])

	deps.purchaseStore.AssertExpectations(t)
	deps.stageStore.AssertExpectations(t)
	deps.producer.AssertExpectations(t)
}

func TestHandleInitiatePurchase_DuplicateTxHash(t *testing.T) {
	deps := newPurchaseTestDeps()

	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(&database.Purchase{
		ID:     "purchase-1",
		TxHash: testTxHash,
		Status: database.PurchasePendingStatus,
	}, true, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleInitiatePurchase(rr, newInitiateRequest(t, 1000))

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	deps.purchaseStore.AssertNotCalled(t, "InsertPurchase", mock.Anything)
}

func newVerifyRequest(t *testing.T) *http.Request {
	t.Helper()

	requestBody, err := json.Marshal(map[string]any{
		"userId":       "user-1",
		"wallet":       testWallet,
		"txHash":       testTxHash,
		"usdtPagados":  1000,
		"mxiComprados": 2500,
		"stage":        1,
	})
	require.NoError(t, err)

	req, err := http.NewRequest("POST", "/verify-usdt-purchase", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func pendingPurchase() *database.Purchase {
	return &database.Purchase{
		ID:         "purchase-1",
		UserID:     "user-1",
		TxHash:     testTxHash,
		AmountUSDT: 1000,
		AmountMXI:  2500,
		Stage:      1,
		Status:     database.PurchasePendingStatus,
	}
}

func TestHandleVerifyPurchase_AlreadyConfirmed(t *testing.T) {
	deps := newPurchaseTestDeps()

	confirmed := pendingPurchase()
	confirmed.Status = database.PurchaseConfirmedStatus
	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(confirmed, true, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleVerifyPurchase(rr, newVerifyRequest(t))

	require.Equal(t, http.StatusOK, rr.Code)

	// repeated verification must never touch balances again
	deps.purchaseStore.AssertNotCalled(t, "ConfirmPurchase", mock.Anything, mock.Anything)
	deps.verifier.AssertNotCalled(t, "VerifyTransfer", mock.Anything, mock.Anything)
}

func TestHandleVerifyPurchase_NeedsConfirmations(t *testing.T) {
	deps := newPurchaseTestDeps()

	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(pendingPurchase(), true, nil)
	deps.verifier.On("VerifyTransfer", testTxHash, 1000.0).Return(&chain.TransferInfo{
		TxHash:        testTxHash,
		AmountUSDT:    1000,
		Confirmations: 3,
		Required:      12,
	}, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleVerifyPurchase(rr, newVerifyRequest(t))

	require.Equal(t, http.StatusAccepted, rr.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.Contains(t, response["message"], "9 more confirmations")

	deps.purchaseStore.AssertNotCalled(t, "ConfirmPurchase", mock.Anything, mock.Anything)
}

func TestHandleVerifyPurchase_NotMinedYet(t *testing.T) {
	deps := newPurchaseTestDeps()

	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(pendingPurchase(), true, nil)
	deps.verifier.On("VerifyTransfer", testTxHash, 1000.0).Return(nil, chain.ErrTxNotFound)

	rr := httptest.NewRecorder()
	deps.handler.HandleVerifyPurchase(rr, newVerifyRequest(t))

	require.Equal(t, http.StatusAccepted, rr.Code)
	deps.purchaseStore.AssertNotCalled(t, "MarkPurchaseFailed", mock.Anything)
}

func TestHandleVerifyPurchase_ConfirmsAndCredits(t *testing.T) {
	deps := newPurchaseTestDeps()

	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(pendingPurchase(), true, nil)
	deps.verifier.On("VerifyTransfer", testTxHash, 1000.0).Return(&chain.TransferInfo{
		TxHash:        testTxHash,
		AmountUSDT:    1000,
		Confirmations: 15,
		Required:      12,
	}, nil)
	deps.purchaseStore.On("ConfirmPurchase", "purchase-1", mock.Anything).Return(true, nil)
	deps.producer.On("ProduceMessage", purchaseConfirmedTopic, mock.Anything).Return(nil)
	deps.activityStore.On("CreateActivityLog", mock.Anything).Return(&database.ActivityLog{}, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleVerifyPurchase(rr, newVerifyRequest(t))
	deps.wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "Expected response['data'] to be a map")
	require.Equal(t, database.PurchaseConfirmedStatus, data["status"])

	deps.purchaseStore.AssertExpectations(t)
	deps.producer.AssertExpectations(t)
}

func TestHandleVerifyPurchase_AlreadyCreditedRace(t *testing.T) {
	deps := newPurchaseTestDeps()

	// another caller settled the purchase between our read and the credit;
	// the response still reports success but no event is produced
	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(pendingPurchase(), true, nil)
	deps.verifier.On("VerifyTransfer", testTxHash, 1000.0).Return(&chain.TransferInfo{
		TxHash:        testTxHash,
		AmountUSDT:    1000,
		Confirmations: 15,
		Required:      12,
	}, nil)
	deps.purchaseStore.On("ConfirmPurchase", "purchase-1", mock.Anything).Return(false, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleVerifyPurchase(rr, newVerifyRequest(t))
	deps.wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)
	deps.producer.AssertNotCalled(t, "ProduceMessage", mock.Anything, mock.Anything)
}

func TestHandleVerifyPurchase_InsufficientAmount(t *testing.T) {
	deps := newPurchaseTestDeps()

	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(pendingPurchase(), true, nil)
	deps.verifier.On("VerifyTransfer", testTxHash, 1000.0).Return(nil, chain.ErrInsufficientAmount)
	deps.purchaseStore.On("MarkPurchaseFailed", "purchase-1").Return(nil)
	deps.producer.On("ProduceMessage", purchaseFailedTopic, mock.Anything).Return(nil)
	deps.activityStore.On("CreateActivityLog", mock.Anything).Return(&database.ActivityLog{}, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleVerifyPurchase(rr, newVerifyRequest(t))
	deps.wg.Wait()

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	deps.purchaseStore.AssertExpectations(t)
	deps.producer.AssertExpectations(t)
}

func TestHandleVerifyPurchase_UnknownTxHash(t *testing.T) {
	deps := newPurchaseTestDeps()

	var noPurchase *database.Purchase
	deps.purchaseStore.On("FindPurchaseByTxHash", testTxHash).Return(noPurchase, false, nil)

	rr := httptest.NewRecorder()
	deps.handler.HandleVerifyPurchase(rr, newVerifyRequest(t))

	require.Equal(t, http.StatusNotFound, rr.Code)
}
