package database

import (
	"context"
	"database/sql"
	"time"
)

type KycDocument struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	DocumentType string         `db:"document_type"`
	FileURL      string         `db:"file_url"`
	Status       string         `db:"status"`
	ReviewedBy   sql.NullString `db:"reviewed_by"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

const (
	KycDocumentPendingStatus  = "pending"
	KycDocumentApprovedStatus = "approved"
	KycDocumentRejectedStatus = "rejected"
)

// Accepted document types for identity verification.
const (
	KycDocumentTypePassport       = "passport"
	KycDocumentTypeNationalID     = "national_id"
	KycDocumentTypeDriversLicense = "drivers_license"
)

type KycStore interface {
	InsertKycDocument(doc *KycDocument) (string, error)
	ListKycDocumentsByUser(userID string) ([]KycDocument, error)
	ReviewKycDocuments(userID, status, reviewerID string) error
}

func (db *DB) InsertKycDocument(doc *KycDocument) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO kyc_documents (user_id, document_type, file_url)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := db.GetContext(ctx, &id, query, doc.UserID, doc.DocumentType, doc.FileURL)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (db *DB) ListKycDocumentsByUser(userID string) ([]KycDocument, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var docs []KycDocument

	query := `SELECT * FROM kyc_documents WHERE user_id = $1 ORDER BY created_at DESC`

	err := db.SelectContext(ctx, &docs, query, userID)
	return docs, err
}

// ReviewKycDocuments marks all of a user's pending documents with the review
// outcome and records the reviewer.
func (db *DB) ReviewKycDocuments(userID, status, reviewerID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE kyc_documents
		SET status = $1, reviewed_by = $2, updated_at = NOW()
		WHERE user_id = $3 AND status = $4`

	_, err := db.ExecContext(ctx, query, status, reviewerID, userID, KycDocumentPendingStatus)
	return err
}
