package handler

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/mxichain/presale/internal/config"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/request"
	"github.com/mxichain/presale/internal/response"
	"github.com/mxichain/presale/internal/smtp"
	"github.com/mxichain/presale/internal/validator"

	"github.com/cradoe/gopass"
	"github.com/pascaldekloe/jwt"
)

const (
	UserActivityLogRegistrationDescription  = "User registration"
	UserActivityLogLoginDescription         = "User login"
	UserActivityLogFailedLoginDescription   = "Failed login attempt"
	UserActivityLogLockedAccountDescription = "Account locked"
)

type AuthHandler struct {
	UserStore     database.UserStore
	ActivityStore database.ActivityStore
	ErrHandler    *errHandler.ErrorHandler
	Helper        *helper.HelperRepository
	Mailer        smtp.MailerInterface
	Config        *config.Config
}

func NewAuthHandler(handler *AuthHandler) *AuthHandler {
	return &AuthHandler{
		UserStore:     handler.UserStore,
		ActivityStore: handler.ActivityStore,
		ErrHandler:    handler.ErrHandler,
		Helper:        handler.Helper,
		Mailer:        handler.Mailer,
		Config:        handler.Config,
	}
}

// Registration validates the input, resolves the optional referral code to
// the referring user and creates the account with a fresh referral code of
// its own. The referred_by edge is written once here and never changes;
// commission payouts later walk these edges.
func (h *AuthHandler) HandleAuthRegister(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email        string              `json:"email"`
		Password     string              `json:"password"`
		FirstName    string              `json:"first_name"`
		LastName     string              `json:"last_name"`
		PhoneNumber  string              `json:"phone_number"`
		ReferralCode string              `json:"referral_code"`
		Validator    validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	// password strength first; no point checking anything else if the
	// password is unusable
	_, errs := gopass.Validate(input.Password)
	if errs != nil {
		h.ErrHandler.FailedValidation(w, r, errs)
		return
	}

	_, found, err := h.UserStore.GetUserByEmail(input.Email)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(!found, "Email is already in use")

	input.Validator.Check(validator.NotBlank(input.FirstName), "First name is required")
	input.Validator.Check(validator.NotBlank(input.LastName), "Last name is required")

	input.Validator.Check(validator.NotBlank(input.PhoneNumber), "Phone number is required")
	input.Validator.Check(validator.Matches(input.PhoneNumber, validator.RgxPhoneNumber), "Phone number must be in international format")

	phoneExists, err := h.UserStore.CheckIfPhoneNumberExist(input.PhoneNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	input.Validator.Check(!phoneExists, "Phone number has been registered")

	// resolve the referrer before creating anything so a bad code fails the
	// whole registration rather than silently dropping the referral
	var referredBy sql.NullString
	if input.ReferralCode != "" {
		referrer, found, err := h.UserStore.GetUserByReferralCode(input.ReferralCode)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}
		if !found {
			input.Validator.AddError("Referral code is not valid")
		} else {
			referredBy = sql.NullString{String: referrer.ID, Valid: true}
		}
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	hashedPassword, err := gopass.Hash(input.Password)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	createdUser := &database.User{
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		PhoneNumber:    input.PhoneNumber,
		HashedPassword: hashedPassword,
		ReferredBy:     referredBy,
	}

	// referral codes are random; on the rare collision we retry with a
	// fresh one
	var userID string
	for attempt := 0; attempt < 3; attempt++ {
		createdUser.ReferralCode, err = h.Helper.GenerateReferralCode()
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		userID, err = h.UserStore.InsertUser(createdUser, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      userID,
			Entity:      database.ActivityLogUserEntity,
			EntityId:    userID,
			Description: UserActivityLogRegistrationDescription,
		})
		if err != nil {
			log.Printf("Error logging user registration action: %v", err)
			return err
		}

		return nil
	})

	h.Helper.BackgroundTask(r, func() error {
		emailData := h.Helper.NewEmailData()
		emailData["Name"] = createdUser.FirstName + " " + createdUser.LastName
		emailData["ReferralCode"] = createdUser.ReferralCode

		err := h.Mailer.Send(createdUser.Email, emailData, "welcome.tmpl")
		if err != nil {
			log.Printf("Error sending welcome email: %v", err)
			return err
		}

		return nil
	})

	data := map[string]any{
		"Id":           userID,
		"ReferralCode": createdUser.ReferralCode,
	}

	message := "Account created successfully"

	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *AuthHandler) HandleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email     string              `json:"email"`
		Password  string              `json:"password"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	user, found, err := h.UserStore.GetUserByEmail(input.Email)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Email), "Email is required")
	input.Validator.Check(validator.IsEmail(input.Email), "Must be a valid email address")
	input.Validator.Check(found, "Incorrect email/password")

	if found {
		passwordMatches, err := gopass.ComparePasswordAndHash(input.Password, user.HashedPassword)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		input.Validator.Check(validator.NotBlank(input.Password), "Password is required")
		input.Validator.Check(passwordMatches, "Incorrect email/password")

		if !passwordMatches {
			h.Helper.BackgroundTask(r, func() error {
				_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
					UserID:      user.ID,
					Entity:      database.ActivityLogUserEntity,
					EntityId:    user.ID,
					Description: UserActivityLogFailedLoginDescription,
				})
				if err != nil {
					log.Printf("Error logging failed login action: %v", err)
					return err
				}

				return nil
			})

			// lock the account after 3 consecutive failed attempts
			count := h.ActivityStore.CountConsecutiveFailedLoginAttempts(user.ID, UserActivityLogFailedLoginDescription)
			if count >= 2 {
				h.Helper.BackgroundTask(r, func() error {
					err := h.UserStore.UserLockAccount(user.ID)
					if err != nil {
						log.Printf("Error locking account after failed logins: %v", err)
						return err
					}

					return nil
				})

				h.Helper.BackgroundTask(r, func() error {
					_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
						UserID:      user.ID,
						Entity:      database.ActivityLogUserEntity,
						EntityId:    user.ID,
						Description: UserActivityLogLockedAccountDescription,
					})
					if err != nil {
						log.Printf("Error logging account lock action: %v", err)
						return err
					}

					return nil
				})

				h.ErrHandler.FailedValidation(w, r, []string{"Account has been locked. Please contact support"})
				return
			}
		}
	}

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if user.Status == database.UserAccountLockedStatus {
		h.ErrHandler.FailedValidation(w, r, []string{"Account has been locked. Please contact support"})
		return
	}

	var claims jwt.Claims
	claims.Subject = user.ID

	expiry := time.Now().Add(24 * time.Hour)
	claims.Issued = jwt.NewNumericTime(time.Now())
	claims.NotBefore = jwt.NewNumericTime(time.Now())
	claims.Expires = jwt.NewNumericTime(expiry)

	claims.Issuer = h.Config.BaseURL
	claims.Audiences = []string{h.Config.BaseURL}

	jwtBytes, err := claims.HMACSign(jwt.HS256, []byte(h.Config.Jwt.SecretKey))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      user.ID,
			Entity:      database.ActivityLogUserEntity,
			EntityId:    user.ID,
			Description: UserActivityLogLoginDescription,
		})
		if err != nil {
			log.Printf("Error logging login action: %v", err)
			return err
		}

		return nil
	})

	data := map[string]any{
		"AuthToken":   string(jwtBytes),
		"TokenExpiry": expiry.Format(time.RFC3339),
	}

	err = response.JSONOkResponse(w, data, "Login successful", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
