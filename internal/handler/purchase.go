package handler

import (
	dctx "context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/mxichain/presale/internal/cache"
	"github.com/mxichain/presale/internal/chain"
	"github.com/mxichain/presale/internal/context"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/presale"
	"github.com/mxichain/presale/internal/request"
	"github.com/mxichain/presale/internal/response"
	"github.com/mxichain/presale/internal/stream"
	"github.com/mxichain/presale/internal/validator"
)

var (
	ErrDuplicateTxHash    = errors.New("this transaction hash has already been submitted")
	ErrNoActiveStage      = errors.New("the pre-sale is not currently open")
	ErrPurchaseNotFound   = errors.New("purchase not found")
	ErrPurchaseFailedPrev = errors.New("this purchase failed verification and cannot be credited")
)

const (
	purchaseVerifyTopic    = "purchase.verify"
	purchaseConfirmedTopic = "purchase.confirmed"
	purchaseFailedTopic    = "purchase.failed"
)

const (
	PurchaseActivityLogInitiatedDescription = "Purchase initiated"
	PurchaseActivityLogConfirmedDescription = "Purchase confirmed"
	PurchaseActivityLogFailedDescription    = "Purchase failed verification"
)

// ChainVerifier is the slice of the chain client the settlement flow needs.
type ChainVerifier interface {
	VerifyTransfer(ctx dctx.Context, txHash string, claimedUSDT float64) (*chain.TransferInfo, error)
}

type PurchaseHandler struct {
	PurchaseStore database.PurchaseStore
	StageStore    database.StageStore
	ActivityStore database.ActivityStore
	Verifier      ChainVerifier
	Kafka         stream.Producer
	Cache         *cache.Cache
	ErrHandler    *errHandler.ErrorHandler
	Helper        *helper.HelperRepository
	Pricing       presale.Rules

	// RequiredConfirmations mirrors the verifier's threshold for use in
	// pending responses.
	RequiredConfirmations uint64
}

func NewPurchaseHandler(handler *PurchaseHandler) *PurchaseHandler {
	pricing := handler.Pricing
	if pricing.MaxPurchaseUSDT <= 0 {
		pricing = presale.DefaultRules()
	}

	return &PurchaseHandler{
		PurchaseStore:         handler.PurchaseStore,
		StageStore:            handler.StageStore,
		ActivityStore:         handler.ActivityStore,
		Verifier:              handler.Verifier,
		Kafka:                 handler.Kafka,
		Cache:                 handler.Cache,
		ErrHandler:            handler.ErrHandler,
		Helper:                handler.Helper,
		Pricing:               pricing,
		RequiredConfirmations: handler.RequiredConfirmations,
	}
}

// InitiatedPurchase is the settlement event passed between the HTTP layer
// and the background workers.
type InitiatedPurchase struct {
	ID         string  `json:"id"`
	UserID     string  `json:"user_id"`
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	TxHash     string  `json:"tx_hash"`
	AmountUSDT float64 `json:"amount_usdt"`
	AmountMXI  float64 `json:"amount_mxi"`
	Stage      int     `json:"stage"`
}

// Initiating a purchase records the reported wallet transfer before it is
// confirmed on chain:
// Step 1: validate the amount bounds, wallet address and transaction hash
// Step 2: reject duplicate transaction hashes
// Step 3: price the purchase against the currently active stage
// Step 4: write a pending record and hand verification to the worker pipeline
func (h *PurchaseHandler) HandleInitiatePurchase(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AmountUSDT    float64             `json:"amount_usdt"`
		WalletAddress string              `json:"wallet_address"`
		TxHash        string              `json:"tx_hash"`
		Validator     validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	input.Validator.Check(h.Pricing.ValidateAmount(input.AmountUSDT) == nil,
		fmt.Sprintf("Amount must be between %.0f and %.0f USDT", h.Pricing.MinPurchaseUSDT, h.Pricing.MaxPurchaseUSDT))
	input.Validator.Check(validator.NotBlank(input.WalletAddress), "Wallet address is required")
	input.Validator.Check(validator.Matches(input.WalletAddress, validator.RgxWalletAddress), "Wallet address must be a valid address")
	input.Validator.Check(validator.NotBlank(input.TxHash), "Transaction hash is required")
	input.Validator.Check(validator.Matches(input.TxHash, validator.RgxTxHash), "Transaction hash must be a valid hash")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	_, found, err := h.PurchaseStore.FindPurchaseByTxHash(input.TxHash)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if found {
		input.Validator.AddError(ErrDuplicateTxHash.Error())
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	stage, found, err := h.StageStore.GetActiveStage()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		response.JSONErrorResponse(w, nil, ErrNoActiveStage.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	// price at the active stage's unit price as of submission
	tokens, err := h.Pricing.Quote(input.AmountUSDT, presale.Stage{
		Number:     stage.StageNumber,
		UnitPrice:  stage.UnitPrice,
		Allocation: stage.AllocationMXI,
		Sold:       stage.SoldMXI,
	})
	if err != nil {
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	purchase := &database.Purchase{
		UserID:        user.ID,
		WalletAddress: input.WalletAddress,
		TxHash:        input.TxHash,
		AmountUSDT:    input.AmountUSDT,
		AmountMXI:     tokens,
		Stage:         stage.StageNumber,
	}

	purchaseID, err := h.PurchaseStore.InsertPurchase(purchase)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	initiated := &InitiatedPurchase{
		ID:         purchaseID,
		UserID:     user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		TxHash:     input.TxHash,
		AmountUSDT: input.AmountUSDT,
		AmountMXI:  tokens,
		Stage:      stage.StageNumber,
	}

	h.Helper.BackgroundTask(r, func() error {
		message, err := jsonMarshal(initiated)
		if err != nil {
			return err
		}
		return h.Kafka.ProduceMessage(purchaseVerifyTopic, message)
	})

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      user.ID,
			Entity:      database.ActivityLogPurchaseEntity,
			EntityId:    purchaseID,
			Description: PurchaseActivityLogInitiatedDescription,
		})
		if err != nil {
			log.Printf("Error logging purchase initiation: %v", err)
			return err
		}

		return nil
	})

	data := map[string]any{
		"Id":         purchaseID,
		"TxHash":     input.TxHash,
		"AmountUSDT": input.AmountUSDT,
		"AmountMXI":  tokens,
		"Stage":      stage.StageNumber,
		"Status":     database.PurchasePendingStatus,
	}

	err = response.JSONCreatedResponse(w, data, "Purchase recorded, verification in progress")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleVerifyPurchase implements POST /verify-usdt-purchase. It is safe to
// call repeatedly for the same transaction hash: verification checks the
// record status before crediting, so a confirmed purchase is never credited
// twice.
func (h *PurchaseHandler) HandleVerifyPurchase(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID       string              `json:"userId"`
		Wallet       string              `json:"wallet"`
		TxHash       string              `json:"txHash"`
		UsdtPagados  float64             `json:"usdtPagados"`
		MxiComprados float64             `json:"mxiComprados"`
		Stage        int                 `json:"stage"`
		Validator    validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.TxHash), "Transaction hash is required")
	input.Validator.Check(validator.Matches(input.TxHash, validator.RgxTxHash), "Transaction hash must be a valid hash")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	purchase, found, err := h.PurchaseStore.FindPurchaseByTxHash(input.TxHash)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		response.JSONErrorResponse(w, nil, ErrPurchaseNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	switch purchase.Status {
	case database.PurchaseConfirmedStatus:
		// already settled; report success without touching balances
		data := map[string]any{
			"Id":     purchase.ID,
			"Status": purchase.Status,
		}
		err = response.JSONOkResponse(w, data, "Purchase already confirmed", nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return

	case database.PurchaseFailedStatus:
		response.JSONErrorResponse(w, nil, ErrPurchaseFailedPrev.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	// short-lived cache of the last confirmation count keeps aggressive
	// client polling from hammering the RPC endpoint
	if h.Cache != nil {
		cached, err := h.Cache.Get("verify:" + input.TxHash)
		if err == nil && cached != "" {
			confirmations, _ := strconv.ParseUint(cached, 10, 64)
			h.respondNeedsConfirmations(w, r, purchase, confirmations)
			return
		}
	}

	ctx, cancel := dctx.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	info, err := h.Verifier.VerifyTransfer(ctx, purchase.TxHash, purchase.AmountUSDT)
	if err != nil {
		switch {
		case errors.Is(err, chain.ErrTxNotFound):
			// not mined yet; keep the record pending and let the client
			// re-poll
			h.respondNeedsConfirmations(w, r, purchase, 0)
			return

		case errors.Is(err, chain.ErrReverted),
			errors.Is(err, chain.ErrNoTransfer),
			errors.Is(err, chain.ErrInsufficientAmount):
			h.failPurchase(r, purchase, err)
			response.JSONErrorResponse(w, nil, "Purchase verification failed: "+err.Error(), http.StatusUnprocessableEntity, nil)
			return

		default:
			h.ErrHandler.ServerError(w, r, err)
			return
		}
	}

	if !info.Confirmed() {
		if h.Cache != nil {
			h.Cache.Set("verify:"+input.TxHash, strconv.FormatUint(info.Confirmations, 10), 15*time.Second)
		}
		h.respondNeedsConfirmations(w, r, purchase, info.Confirmations)
		return
	}

	credited, err := h.PurchaseStore.ConfirmPurchase(purchase.ID, time.Now())
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if credited {
		user := context.ContextGetAuthenticatedUser(r)

		h.Helper.BackgroundTask(r, func() error {
			confirmed := &InitiatedPurchase{
				ID:         purchase.ID,
				UserID:     purchase.UserID,
				TxHash:     purchase.TxHash,
				AmountUSDT: purchase.AmountUSDT,
				AmountMXI:  purchase.AmountMXI,
				Stage:      purchase.Stage,
			}
			if user != nil && user.ID == purchase.UserID {
				confirmed.Email = user.Email
				confirmed.FirstName = user.FirstName
			}

			message, err := jsonMarshal(confirmed)
			if err != nil {
				return err
			}
			return h.Kafka.ProduceMessage(purchaseConfirmedTopic, message)
		})

		h.Helper.BackgroundTask(r, func() error {
			_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
				UserID:      purchase.UserID,
				Entity:      database.ActivityLogPurchaseEntity,
				EntityId:    purchase.ID,
				Description: PurchaseActivityLogConfirmedDescription,
			})
			if err != nil {
				log.Printf("Error logging purchase confirmation: %v", err)
				return err
			}

			return nil
		})
	}

	data := map[string]any{
		"Id":            purchase.ID,
		"Status":        database.PurchaseConfirmedStatus,
		"AmountMXI":     purchase.AmountMXI,
		"Confirmations": info.Confirmations,
	}

	err = response.JSONOkResponse(w, data, "Purchase confirmed", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *PurchaseHandler) HandleListPurchases(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	purchases, err := h.PurchaseStore.ListPurchasesByUser(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	type purchaseResponse struct {
		ID          string  `json:"id"`
		TxHash      string  `json:"tx_hash"`
		AmountUSDT  float64 `json:"amount_usdt"`
		AmountMXI   float64 `json:"amount_mxi"`
		Stage       int     `json:"stage"`
		Status      string  `json:"status"`
		CreatedAt   string  `json:"created_at"`
		ConfirmedAt string  `json:"confirmed_at,omitempty"`
	}

	data := make([]purchaseResponse, len(purchases))
	for i, p := range purchases {
		data[i] = purchaseResponse{
			ID:         p.ID,
			TxHash:     p.TxHash,
			AmountUSDT: p.AmountUSDT,
			AmountMXI:  p.AmountMXI,
			Stage:      p.Stage,
			Status:     p.Status,
			CreatedAt:  p.CreatedAt.Format(time.RFC3339),
		}
		if p.ConfirmedAt.Valid {
			data[i].ConfirmedAt = p.ConfirmedAt.Time.Format(time.RFC3339)
		}
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// respondNeedsConfirmations surfaces the 202 "needs more confirmations"
// pending state. This is not an error; the client simply re-polls.
func (h *PurchaseHandler) respondNeedsConfirmations(w http.ResponseWriter, r *http.Request, purchase *database.Purchase, confirmations uint64) {
	required := h.RequiredConfirmations

	data := map[string]any{
		"Id":            purchase.ID,
		"Status":        purchase.Status,
		"Confirmations": confirmations,
		"Required":      required,
	}

	message := fmt.Sprintf("Needs %d more confirmations", required-min(required, confirmations))

	err := response.JSONAcceptedResponse(w, data, message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *PurchaseHandler) failPurchase(r *http.Request, purchase *database.Purchase, cause error) {
	if err := h.PurchaseStore.MarkPurchaseFailed(purchase.ID); err != nil {
		log.Printf("Error marking purchase %s failed: %v", purchase.ID, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		failed := &InitiatedPurchase{
			ID:         purchase.ID,
			UserID:     purchase.UserID,
			TxHash:     purchase.TxHash,
			AmountUSDT: purchase.AmountUSDT,
			AmountMXI:  purchase.AmountMXI,
			Stage:      purchase.Stage,
		}

		message, err := jsonMarshal(failed)
		if err != nil {
			return err
		}
		return h.Kafka.ProduceMessage(purchaseFailedTopic, message)
	})

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      purchase.UserID,
			Entity:      database.ActivityLogPurchaseEntity,
			EntityId:    purchase.ID,
			Description: PurchaseActivityLogFailedDescription + ": " + cause.Error(),
		})
		if err != nil {
			log.Printf("Error logging purchase failure: %v", err)
			return err
		}

		return nil
	})
}
