package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type User struct {
	ID             string         `db:"id"`
	FirstName      string         `db:"first_name"`
	LastName       string         `db:"last_name"`
	PhoneNumber    string         `db:"phone_number"`
	Email          string         `db:"email"`
	Status         string         `db:"status"`
	KycStatus      string         `db:"kyc_status"`
	ReferralCode   string         `db:"referral_code"`
	ReferredBy     sql.NullString `db:"referred_by"`
	IsAdmin        bool           `db:"is_admin"`
	CreatedAt      time.Time      `db:"created_at"`
	DeletedAt      sql.NullTime   `db:"deleted_at"`
	VerifiedAt     sql.NullTime   `db:"verified_at"`
	HashedPassword string         `db:"hashed_password"`
}

const (
	// UserAccountPendingStatus is the default status after registration,
	// before the account is verified.
	UserAccountPendingStatus = "pending"

	// UserAccountActiveStatus indicates a fully functional account.
	UserAccountActiveStatus = "active"

	// UserAccountLockedStatus indicates the account has been locked, for
	// example after repeated failed login attempts or administrative action.
	UserAccountLockedStatus = "locked"
)

const (
	KycStatusPending  = "pending"
	KycStatusApproved = "approved"
	KycStatusRejected = "rejected"
)

type UserStore interface {
	InsertUser(user *User, tx *sqlx.Tx) (string, error)
	GetUser(id string) (*User, bool, error)
	GetUserByEmail(email string) (*User, bool, error)
	GetUserByReferralCode(code string) (*User, bool, error)
	CheckIfPhoneNumberExist(phoneNumber string) (bool, error)
	SetUserKycStatus(id, status string) error
	UserLockAccount(id string) error
	ReferrerOf(userID string) (string, bool, error)
}

func (db *DB) InsertUser(user *User, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string
	query := `
		INSERT INTO users (first_name, last_name, phone_number, email, hashed_password, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			user.FirstName,
			user.LastName,
			user.PhoneNumber,
			user.Email,
			user.HashedPassword,
			user.ReferralCode,
			user.ReferredBy,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := db.GetContext(ctx, &id, query,
			user.FirstName,
			user.LastName,
			user.PhoneNumber,
			user.Email,
			user.HashedPassword,
			user.ReferralCode,
			user.ReferredBy,
		)
		if err != nil {
			return "", err
		}
	}

	return id, nil
}

func (db *DB) GetUser(id string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `SELECT * FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &user, true, err
}

func (db *DB) GetUserByEmail(email string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `SELECT * FROM users WHERE email = $1 AND deleted_at IS NULL`

	err := db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &user, true, err
}

func (db *DB) GetUserByReferralCode(code string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `SELECT * FROM users WHERE referral_code = $1 AND deleted_at IS NULL`

	err := db.GetContext(ctx, &user, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}

	return &user, true, err
}

func (db *DB) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE phone_number = $1)`

	err := db.GetContext(ctx, &exists, query, phoneNumber)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (db *DB) SetUserKycStatus(id, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET kyc_status = $1 WHERE id = $2`

	_, err := db.ExecContext(ctx, query, status, id)
	return err
}

func (db *DB) UserLockAccount(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET status = $1 WHERE id = $2`

	_, err := db.ExecContext(ctx, query, UserAccountLockedStatus, id)
	return err
}

// ReferrerOf resolves the direct referrer of a user. It satisfies the
// referral calculator's ReferrerSource.
func (db *DB) ReferrerOf(userID string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var referredBy sql.NullString

	query := `SELECT referred_by FROM users WHERE id = $1 AND deleted_at IS NULL`

	err := db.GetContext(ctx, &referredBy, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if !referredBy.Valid {
		return "", false, nil
	}

	return referredBy.String, true, nil
}
