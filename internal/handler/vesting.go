package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/mxichain/presale/internal/context"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/response"
	"github.com/mxichain/presale/internal/vesting"
)

const (
	VestingActivityLogForceSyncDescription = "Vesting balances force-updated"
)

type VestingHandler struct {
	VestingStore  database.VestingStore
	ActivityStore database.ActivityStore
	ErrHandler    *errHandler.ErrorHandler
	Helper        *helper.HelperRepository

	// MonthlyRate is the rate new vesting states will accrue at, shown to
	// users who have no vesting row yet.
	MonthlyRate float64
}

func NewVestingHandler(handler *VestingHandler) *VestingHandler {
	rate := handler.MonthlyRate
	if rate <= 0 {
		rate = vesting.DefaultMonthlyRate
	}

	return &VestingHandler{
		VestingStore:  handler.VestingStore,
		ActivityStore: handler.ActivityStore,
		ErrHandler:    handler.ErrHandler,
		Helper:        handler.Helper,
		MonthlyRate:   rate,
	}
}

// HandleGetVesting returns the caller's vesting state with rewards projected
// to the current moment. The projection is read-only: nothing is written on
// display reads, the stored balance only advances on settlement.
func (h *VestingHandler) HandleGetVesting(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	state, found, err := h.VestingStore.GetVestingState(user.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	now := time.Now()

	// users with no vesting row simply have nothing accruing yet
	if !found {
		data := map[string]any{
			"PrincipalMXI":  0.0,
			"RewardMXI":     0.0,
			"MonthlyRate":   h.MonthlyRate,
			"LastUpdate":    now.Format(time.RFC3339),
			"RatePerSecond": 0.0,
		}
		err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
		}
		return
	}

	currentRewards := vesting.CurrentRewards(
		state.RewardBalanceMXI,
		state.PrincipalMXI,
		state.MonthlyRate,
		state.LastUpdate,
		now,
	)

	data := map[string]any{
		"PrincipalMXI":  state.PrincipalMXI,
		"RewardMXI":     currentRewards,
		"MonthlyRate":   state.MonthlyRate,
		"LastUpdate":    state.LastUpdate.Format(time.RFC3339),
		"RatePerSecond": state.PrincipalMXI * vesting.RatePerSecond(state.MonthlyRate),
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleForceVestingSync settles accrual for every user right now. Admin
// only; the scheduler runs the same settlement nightly.
func (h *VestingHandler) HandleForceVestingSync(w http.ResponseWriter, r *http.Request) {
	admin := context.ContextGetAuthenticatedUser(r)

	settled, err := h.VestingStore.SettleAllVesting(time.Now())
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      admin.ID,
			Entity:      database.ActivityLogVestingEntity,
			EntityId:    admin.ID,
			Description: VestingActivityLogForceSyncDescription,
		})
		if err != nil {
			log.Printf("Error logging vesting sync action: %v", err)
			return err
		}

		return nil
	})

	data := map[string]any{
		"UsersSettled": settled,
	}

	err = response.JSONOkResponse(w, data, "Vesting balances settled", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
