package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/mxichain/presale/internal/context"
	"github.com/mxichain/presale/internal/database"
	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/helper"
	"github.com/mxichain/presale/internal/request"
	"github.com/mxichain/presale/internal/response"
	"github.com/mxichain/presale/internal/validator"
)

const (
	StageActivityLogActivatedDescription = "Presale stage activated"
)

type StageHandler struct {
	StageStore    database.StageStore
	ActivityStore database.ActivityStore
	ErrHandler    *errHandler.ErrorHandler
	Helper        *helper.HelperRepository
}

func NewStageHandler(handler *StageHandler) *StageHandler {
	return &StageHandler{
		StageStore:    handler.StageStore,
		ActivityStore: handler.ActivityStore,
		ErrHandler:    handler.ErrHandler,
		Helper:        handler.Helper,
	}
}

type stageResponse struct {
	StageNumber   int     `json:"stage_number"`
	UnitPrice     float64 `json:"unit_price"`
	AllocationMXI float64 `json:"allocation_mxi"`
	SoldMXI       float64 `json:"sold_mxi"`
	RemainingMXI  float64 `json:"remaining_mxi"`
	Active        bool    `json:"active"`
}

func newStageResponse(stage *database.PresaleStage) stageResponse {
	return stageResponse{
		StageNumber:   stage.StageNumber,
		UnitPrice:     stage.UnitPrice,
		AllocationMXI: stage.AllocationMXI,
		SoldMXI:       stage.SoldMXI,
		RemainingMXI:  stage.AllocationMXI - stage.SoldMXI,
		Active:        stage.Active,
	}
}

func (h *StageHandler) HandleListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := h.StageStore.ListStages()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]stageResponse, len(stages))
	for i := range stages {
		data[i] = newStageResponse(&stages[i])
	}

	err = response.JSONOkResponse(w, data, "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *StageHandler) HandleActiveStage(w http.ResponseWriter, r *http.Request) {
	stage, found, err := h.StageStore.GetActiveStage()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.ErrHandler.NotFound(w, r)
		return
	}

	err = response.JSONOkResponse(w, newStageResponse(stage), "Data retrieved successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleActivateStage switches the sale to another stage. Admin only. Stages
// are expected to advance in order with rising prices, so a move to a stage
// cheaper than the current one is rejected.
func (h *StageHandler) HandleActivateStage(w http.ResponseWriter, r *http.Request) {
	admin := context.ContextGetAuthenticatedUser(r)

	var input struct {
		StageNumber int                 `json:"stage_number"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.StageNumber > 0, "Stage number must be positive")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	next, found, err := h.StageStore.GetStageByNumber(input.StageNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.ErrHandler.FailedValidation(w, r, []string{"Stage does not exist"})
		return
	}

	current, hasActive, err := h.StageStore.GetActiveStage()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	if hasActive && next.UnitPrice < current.UnitPrice {
		h.ErrHandler.FailedValidation(w, r, []string{"Cannot activate a stage with a lower unit price than the current stage"})
		return
	}

	err = h.StageStore.ActivateStage(input.StageNumber)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}
	next.Active = true

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityStore.CreateActivityLog(&database.ActivityLog{
			UserID:      admin.ID,
			Entity:      database.ActivityLogStageEntity,
			EntityId:    strconv.Itoa(input.StageNumber),
			Description: StageActivityLogActivatedDescription,
		})
		if err != nil {
			log.Printf("Error logging stage activation action: %v", err)
			return err
		}

		return nil
	})

	err = response.JSONOkResponse(w, newStageResponse(next), "Stage activated successfully", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
