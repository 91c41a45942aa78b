package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/mxichain/presale/internal/context"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/file"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/request"
	"github.com/mxichain/presale/internal/response"
	"github.com/mxichain/presale/internal/validator"
)

const (
	KycActivityLogSubmittedDescription = "KYC document submitted"
	KycActivityLogReviewedDescription  = "KYC documents reviewed"

	kycUploadFolder  = "kyc-documents"
	maxKycUploadSize = 10 << 20
)

type KycHandler struct {
	UserStore     database.UserStore
	KycStore      database.KycStore
	ActivityStore database.ActivityStore
	Uploader      *file.FileUploader
	ErrHandler    *errHandler.ErrorHandler
	Helper        *helper.HelperRepository
}

func NewKycHandler(handler *KycHandler) *KycHandler {
	return &KycHandler{
		UserStore:     handler.UserStore,
		KycStore:      handler.KycStore,
		ActivityStore: handler.ActivityStore,
		Uploader:      handler.Uploader,
		ErrHandler:    handler.ErrHandler,
		Helper:        handler.Helper,
	}
}

// HandleKycUpload accepts a multipart document upload, pushes the file to
// Cloudinary and records the hosted URL. Submitting a document moves the
// user's KYC status back to pending until an admin reviews it.
func (h *KycHandler) HandleKycUpload(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	err := r.ParseMultipartForm(maxKycUploadSize)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	documentType := r.FormValue("document_type")

	var v validator.Validator
	v.Check(validator.NotBlank(documentType), "Document type is required")
	v.Check(validator.In(documentType,
		database.KycDocumentTypePassport,
		database.KycDocumentTypeNationalID,
		database.KycDocumentTypeDriversLicense,
	), "Document type must be one of: passport, national_id, drivers_license")

	uploadedFile, _, err := r.FormFile("document")
	if err != nil {
		v.AddError("Document file is required")
	} else {
		defer uploadedFile.Close()
	}

	if v.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, v.Errors)
		return
	}

	fileURL, err := h.Uploader.UploadFile(r.Context(), uploadedFile, kycUploadFolder)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	documentID, err := h.KycStore.InsertKycDocument(&database.KycDocument{
		UserID:       user.ID,
		DocumentType: documentType,
		FileURL:      fileURL,
	})
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = h.UserStore.SetUserKycStatus(user.ID, database.KycStatusPending)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      user.ID,
			Entity:      database.ActivityLogKycEntity,
			EntityId:    documentID,
			Description: KycActivityLogSubmittedDescription,
		})
		if err != nil {
			log.Printf("Error logging KYC submission action: %v", err)
			return err
		}

		return nil
	})

	data := map[string]any{
		"Id":      documentID,
		"FileUrl": fileURL,
		"Status":  database.KycDocumentPendingStatus,
	}

	err = response.JSONCreatedResponse(w, data, "Document submitted for review")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *KycHandler) HandleListKycDocuments(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	docs, err := h.KycStore.ListKycDocumentsByUser(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	type documentResponse struct {
		ID           string `json:"id"`
		DocumentType string `json:"document_type"`
		FileURL      string `json:"file_url"`
		Status       string `json:"status"`
		CreatedAt    string `json:"created_at"`
	}

	data := make([]documentResponse, len(docs))
	for i, doc := range docs {
		data[i] = documentResponse{
			ID:           doc.ID,
			DocumentType: doc.DocumentType,
			FileURL:      doc.FileURL,
			Status:       doc.Status,
			CreatedAt:    doc.CreatedAt.Format(time.RFC3339),
		}
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleKycReview lets an admin approve or reject a user's submitted
// documents. The decision updates both the documents and the user's overall
// KYC status.
func (h *KycHandler) HandleKycReview(w http.ResponseWriter, r *http.Request) {
	admin := context.ContextGetAuthenticatedUser(r)

	var input struct {
		UserID    string              `json:"user_id"`
		Decision  string              `json:"decision"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.UserID), "User id is required")
	input.Validator.Check(validator.In(input.Decision,
		database.KycStatusApproved,
		database.KycStatusRejected,
	), "Decision must be either approved or rejected")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	_, found, err := h.UserStore.GetUser(input.UserID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.ErrHandler.FailedValidation(w, r, []string{"User does not exist"})
		return
	}

	err = h.KycStore.ReviewKycDocuments(input.UserID, input.Decision, admin.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = h.UserStore.SetUserKycStatus(input.UserID, input.Decision)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      admin.ID,
			Entity:      database.ActivityLogKycEntity,
			EntityId:    input.UserID,
			Description: KycActivityLogReviewedDescription,
		})
		if err != nil {
			log.Printf("Error logging KYC review action: %v", err)
			return err
		}

		return nil
	})

	data := map[string]any{
		"UserId":    input.UserID,
		"KycStatus": input.Decision,
	}

	err = response.JSONOkResponse(w, data, "Review recorded successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
