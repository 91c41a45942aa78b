package mocks

import (
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/mxichain/presale/internal/database"
)

type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) InsertUser(user *database.User, tx *sqlx.Tx) (string, error) {
	args := m.Called(user, tx)
	return args.String(0), args.Error(1)
}

func (m *MockUserStore) GetUser(id string) (*database.User, bool, error) {
	args := m.Called(id)
	return args.Get(0).(*database.User), args.Bool(1), args.Error(2)
}

func (m *MockUserStore) GetUserByEmail(email string) (*database.User, bool, error) {
	args := m.Called(email)
	return args.Get(0).(*database.User), args.Bool(1), args.Error(2)
}

func (m *MockUserStore) GetUserByReferralCode(code string) (*database.User, bool, error) {
	args := m.Called(code)
	return args.Get(0).(*database.User), args.Bool(1), args.Error(2)
}

func (m *MockUserStore) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	return false, nil
}

func (m *MockUserStore) SetUserKycStatus(id, status string) error {
	return nil
}

func (m *MockUserStore) UserLockAccount(id string) error {
	return nil
}

func (m *MockUserStore) ReferrerOf(userID string) (string, bool, error) {
	return "", false, nil
}
