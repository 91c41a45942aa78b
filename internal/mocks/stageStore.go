package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/mxichain/presale/internal/database"
)

type MockStageStore struct {
	mock.Mock
}

func (m *MockStageStore) GetActiveStage() (*database.PresaleStage, bool, error) {
	args := m.Called()
	return args.Get(0).(*database.PresaleStage), args.Bool(1), args.Error(2)
}

func (m *MockStageStore) GetStageByNumber(number int) (*database.PresaleStage, bool, error) {
	args := m.Called(number)
	return args.Get(0).(*database.PresaleStage), args.Bool(1), args.Error(2)
}

func (m *MockStageStore) ListStages() ([]database.PresaleStage, error) {
	args := m.Called()
	return args.Get(0).([]database.PresaleStage), args.Error(1)
}

func (m *MockStageStore) ActivateStage(number int) error {
	args := m.Called(number)
	return args.Error(0)
}
