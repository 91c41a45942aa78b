package handler

import (
	"net/http"
	"time"

	"github.com/mxichain/presale/internal/context"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/response"
)

type ReferralHandler struct {
	ReferralStore database.ReferralStore
	ErrHandler    *errHandler.ErrorHandler
}

func NewReferralHandler(handler *ReferralHandler) *ReferralHandler {
	return &ReferralHandler{
		ReferralStore: handler.ReferralStore,
		ErrHandler:    handler.ErrHandler,
	}
}

func (h *ReferralHandler) HandleReferralStats(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	stats, err := h.ReferralStore.GetReferralStats(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, stats, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *ReferralHandler) HandleReferralCode(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	data := map[string]any{
		"ReferralCode": user.ReferralCode,
	}

	err := response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *ReferralHandler) HandleReferralEarnings(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	earnings, err := h.ReferralStore.ListReferralEarnings(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	type earningResponse struct {
		ID        string  `json:"id"`
		Level     int     `json:"level"`
		AmountMXI float64 `json:"amount_mxi"`
		CreatedAt string  `json:"created_at"`
	}

	data := make([]earningResponse, len(earnings))
	for i, earning := range earnings {
		data[i] = earningResponse{
			ID:        earning.ID,
			Level:     earning.Level,
			AmountMXI: earning.AmountMXI,
			CreatedAt: earning.CreatedAt.Format(time.RFC3339),
		}
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
