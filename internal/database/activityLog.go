package database

import (
	"context"
	"time"
)

type ActivityLog struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Entity      string    `db:"entity"`
	EntityId    string    `db:"entity_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

const (
	ActivityLogUserEntity     = "user"
	ActivityLogPurchaseEntity = "purchase"
	ActivityLogStageEntity    = "stage"
	ActivityLogVestingEntity  = "vesting"
	ActivityLogKycEntity      = "kyc"
)

type ActivityStore interface {
	CreateActivityLog(log *ActivityLog) (*ActivityLog, error)
	CountConsecutiveFailedLoginAttempts(userID, actionDescription string) int
}

func (db *DB) CreateActivityLog(log *ActivityLog) (*ActivityLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		INSERT INTO activity_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := db.QueryRowContext(ctx, query,
		log.UserID,
		log.Entity,
		log.EntityId,
		log.Description,
	).Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return nil, err
	}

	return log, nil
}

// CountConsecutiveFailedLoginAttempts counts failed-login log rows newer
// than the user's most recent successful login.
func (db *DB) CountConsecutiveFailedLoginAttempts(userID, actionDescription string) int {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	query := `
		SELECT COUNT(*) FROM activity_logs
		WHERE user_id = $1
		AND description = $2
		AND created_at > COALESCE(
			(SELECT MAX(created_at) FROM activity_logs WHERE user_id = $1 AND description != $2),
			'epoch'::timestamptz
		)`

	err := db.GetContext(ctx, &count, query, userID, actionDescription)
	if err != nil {
		return 0
	}

	return count
}
