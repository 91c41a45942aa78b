package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/mocks"
)

type authTestDeps struct {
	userStore     *mocks.MockUserStore
	activityStore *mocks.MockActivityStore
	mailer        *mocks.MockMailer
	wg            *sync.WaitGroup
	handler       *AuthHandler
}

func newAuthTestDeps() *authTestDeps {
	userStore := new(mocks.MockUserStore)
	activityStore := new(mocks.MockActivityStore)
	mailer := new(mocks.MockMailer)

	baseURL := "http://localhost"
	var wg sync.WaitGroup
	testHelper := helper.New(&baseURL, &wg)
	testHelper.RegisterErrorReporter(&mocks.MockErrorHandler{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := errHandler.New("", nil, logger, testHelper)

	h := NewAuthHandler(&AuthHandler{
		UserStore:     userStore,
		ActivityStore: activityStore,
		ErrHandler:    errorHandler,
		Helper:        testHelper,
		Mailer:        mailer,
		Config:        mocks.MockConfig,
	})

	return &authTestDeps{
		userStore:     userStore,
		activityStore: activityStore,
		mailer:        mailer,
		wg:            &wg,
		handler:       h,
	}
}

func TestHandleAuthLogin_ValidCredentials(t *testing.T) {
	deps := newAuthTestDeps()

	testUser := &database.User{
		ID:             "123",
		Email:          "test@example.com",
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         database.UserAccountActiveStatus,
	}

	deps.userStore.On("GetUserByEmail", "test@example.com").Return(testUser, true, nil)
	deps.activityStore.On("CreateActivityLog", mock.Anything).Return(&database.ActivityLog{}, nil)

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "correctpassword",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	deps.handler.HandleAuthLogin(rr, req)
	deps.wg.Wait()

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]any
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	require.Contains(t, response, "data")

	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "Expected response['data'] to be a map")

	require.Contains(t, data, "auth_token")
	require.Contains(t, data, "token_expiry")
	require.NotEmpty(t, data["auth_token"])

	deps.userStore.AssertExpectations(t)
	deps.activityStore.AssertExpectations(t)
}

func TestHandleAuthLogin_LockedAccount(t *testing.T) {
	deps := newAuthTestDeps()

	testUser := &database.User{
		ID:             "123",
		Email:          "test@example.com",
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         database.UserAccountLockedStatus,
	}

	deps.userStore.On("GetUserByEmail", "test@example.com").Return(testUser, true, nil)

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "correctpassword",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	deps.handler.HandleAuthLogin(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func registerRequestBody(t *testing.T, referralCode string) *bytes.Buffer {
	t.Helper()

	body := map[string]string{
		"email":        "new@example.com",
		"password":     "Correct#Horse9Battery",
		"first_name":   "Ada",
		"last_name":    "Lovelace",
		"phone_number": "+2348012345678",
	}
	if referralCode != "" {
		body["referral_code"] = referralCode
	}

	requestBody, err := json.Marshal(body)
	require.NoError(t, err)

	return bytes.NewBuffer(requestBody)
}

func TestHandleAuthRegister_WithReferralCode(t *testing.T) {
	deps := newAuthTestDeps()

	var noUser *database.User
	deps.userStore.On("GetUserByEmail", "new@example.com").Return(noUser, false, nil)
	deps.userStore.On("GetUserByReferralCode", "REFCODE1").Return(&database.User{
		ID:           "referrer-1",
		ReferralCode: "REFCODE1",
	}, true, nil)

	var insertedUser *database.User
	deps.userStore.On("InsertUser", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			insertedUser = args.Get(0).(*database.User)
		}).
		Return("user-1", nil)

	deps.activityStore.On("CreateActivityLog", mock.Anything).Return(&database.ActivityLog{}, nil)
	deps.mailer.On("Send", "new@example.com", mock.Anything, mock.Anything).Return(nil)

	req, err := http.NewRequest("POST", "/auth/register", registerRequestBody(t, "REFCODE1"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	deps.handler.HandleAuthRegister(rr, req)
	deps.wg.Wait()

	require.Equal(t, http.StatusCreated, rr.Code)

	// the referred_by edge is written at registration time
	require.NotNil(t, insertedUser)
	require.True(t, insertedUser.ReferredBy.Valid)
	require.Equal(t, "referrer-1", insertedUser.ReferredBy.String)
	require.Len(t, insertedUser.ReferralCode, 8)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))

	data, ok := response["data"].(map[string]any)
	require.True(t, ok, "Expected response['data'] to be a map")
	require.NotEmpty(t, data["referral_code"])

	deps.userStore.AssertExpectations(t)
	deps.mailer.AssertExpectations(t)
}

func TestHandleAuthRegister_InvalidReferralCode(t *testing.T) {
	deps := newAuthTestDeps()

	var noUser *database.User
	deps.userStore.On("GetUserByEmail", "new@example.com").Return(noUser, false, nil)
	deps.userStore.On("GetUserByReferralCode", "BOGUS123").Return(noUser, false, nil)

	req, err := http.NewRequest("POST", "/auth/register", registerRequestBody(t, "BOGUS123"))
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	deps.handler.HandleAuthRegister(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	deps.userStore.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
}
