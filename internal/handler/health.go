package handler

import (
	"net/http"

	"github.com/mxichain/presale/internal/errHandler"
	"github.com/mxichain/presale/internal/response"
	"github.com/mxichain/presale/internal/version"
)

type HealthCheckHandler struct {
	ErrHandler *errHandler.ErrorHandler
}

func NewHealthCheckHandler(errHandler *errHandler.ErrorHandler) *HealthCheckHandler {
	return &HealthCheckHandler{
		ErrHandler: errHandler,
	}
}

func (h *HealthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Status":  "OK",
		"Version": version.Get(),
	}

	err := response.JSONOkResponse(w, data, "Server is up and running", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
