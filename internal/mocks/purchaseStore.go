package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mxichain/presale/internal/database"
)

type MockPurchaseStore struct {
	mock.Mock
}

func (m *MockPurchaseStore) InsertPurchase(purchase *database.Purchase) (string, error) {
	args := m.Called(purchase)
	return args.String(0), args.Error(1)
}

func (m *MockPurchaseStore) GetPurchase(id string) (*database.Purchase, bool, error) {
	args := m.Called(id)
	return args.Get(0).(*database.Purchase), args.Bool(1), args.Error(2)
}

func (m *MockPurchaseStore) FindPurchaseByTxHash(txHash string) (*database.Purchase, bool, error) {
	args := m.Called(txHash)
	return args.Get(0).(*database.Purchase), args.Bool(1), args.Error(2)
}

func (m *MockPurchaseStore) ListPurchasesByUser(userID string) ([]database.Purchase, error) {
	args := m.Called(userID)
	return args.Get(0).([]database.Purchase), args.Error(1)
}

func (m *MockPurchaseStore) ListStalePendingPurchases(olderThan time.Time, limit int) ([]database.Purchase, error) {
	return nil, nil
}

func (m *MockPurchaseStore) MarkPurchaseFailed(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockPurchaseStore) ConfirmPurchase(id string, now time.Time) (bool, error) {
	args := m.Called(id, now)
	return args.Bool(0), args.Error(1)
}
