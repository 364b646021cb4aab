package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/xavierca1/loan-advisor/internal/entity"
	"github.com/xavierca1/loan-advisor/internal/usecase"
)

type EMICalculator interface {
	Execute(input usecase.EMIInput) (*entity.EMIQuote, error)
}

type EMIHandler struct {
	Calculator EMICalculator
}

func NewEMIHandler(calc EMICalculator) *EMIHandler {
	return &EMIHandler{Calculator: calc}
}

func (h *EMIHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var input usecase.EMIInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	quote, err := h.Calculator.Execute(input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
