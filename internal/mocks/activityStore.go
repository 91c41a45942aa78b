package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/mxichain/presale/internal/database"
)

type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) CountConsecutiveFailedLoginAttempts(userID, actionDescription string) int {
	return 0
}

func (m *MockActivityStore) CreateActivityLog(log *database.ActivityLog) (*database.ActivityLog, error) {
	args := m.Called(log)
	return args.Get(0).(*database.ActivityLog), args.Error(1)
}
