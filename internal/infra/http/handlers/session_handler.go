package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

type SessionService interface {
	Session(ctx context.Context, senderID string) (*entity.Session, error)
	Reset(ctx context.Context, senderID string) error
}

// SessionHandler exposes sessions of JSON-API senders; ids are mapped into
// the "web:" namespace like ChatHandler does.
type SessionHandler struct {
	Sessions SessionService
}

func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{Sessions: sessions}
}

type SessionResponse struct {
	SenderID         string                      `json:"sender_id"`
	Stage            entity.Stage                `json:"stage"`
	EmploymentStatus string                      `json:"employment_status,omitempty"`
	MonthlyIncome    int                         `json:"monthly_income,omitempty"`
	CreditScore      int                         `json:"credit_score,omitempty"`
	Language         string                      `json:"language,omitempty"`
	Decision         *entity.EligibilityDecision `json:"decision,omitempty"`
	UpdatedAt        string                      `json:"updated_at"`
}

func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	senderID := webSenderID(chi.URLParam(r, "senderId"))

	session, err := h.Sessions.Session(r.Context(), senderID)
	if errors.Is(err, entity.ErrSessionNotFound) {
		writeErrorResponse(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no session for this sender")
		return
	}
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	resp := SessionResponse{
		SenderID:         session.SenderID,
		Stage:            session.Stage,
		EmploymentStatus: session.EmploymentStatus,
		MonthlyIncome:    session.MonthlyIncome,
		CreditScore:      session.CreditScore,
		Language:         session.Language,
		UpdatedAt:        session.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if d, ok := session.Decision(); ok {
		resp.Decision = &d
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	senderID := webSenderID(chi.URLParam(r, "senderId"))

	if err := h.Sessions.Reset(r.Context(), senderID); err != nil {
		writeUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
