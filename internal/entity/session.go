package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidStage    = errors.New("invalid session stage")
)

// Sender id namespaces. WhatsApp senders come from the Twilio webhook; web
// senders come from the JSON chat API and never reach a phone number.
const (
	WhatsAppSenderPrefix = "whatsapp:"
	WebSenderPrefix      = "web:"
)

func IsWhatsAppSender(senderID string) bool {
	return strings.HasPrefix(senderID, WhatsAppSenderPrefix)
}

// Stage is the position of a session inside the onboarding flow.
type Stage string

const (
	StageNew                Stage = "NEW"
	StageAwaitingEmployment Stage = "AWAITING_EMPLOYMENT"
	StageAwaitingIncome     Stage = "AWAITING_INCOME"
	StageAwaitingCredit     Stage = "AWAITING_CREDIT"
	StageComplete           Stage = "COMPLETE"
)

func (s Stage) Valid() bool {
	switch s {
	case StageNew, StageAwaitingEmployment, StageAwaitingIncome, StageAwaitingCredit, StageComplete:
		return true
	}
	return false
}

// ParseStage converts a stored stage name, rejecting unknown values.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStage, raw)
	}
	return s, nil
}

type Session struct {
	SenderID         string    `json:"sender_id"`
	Stage            Stage     `json:"stage"`
	EmploymentStatus string    `json:"employment_status,omitempty"`
	MonthlyIncome    int       `json:"monthly_income,omitempty"`
	CreditScore      int       `json:"credit_score,omitempty"`
	Language         string    `json:"language,omitempty"` // last language detected from the sender's text
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SessionRepository is the per-sender conversation store.
// Get returns ErrSessionNotFound when the sender has never been seen
// (or its entry was evicted).
type SessionRepository interface {
	Get(ctx context.Context, senderID string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, senderID string) error
}

// SessionPurger is implemented by stores that need an external sweep to
// enforce idle retention.
type SessionPurger interface {
	PurgeIdle(ctx context.Context, idleSince time.Time) (int64, error)
}

func NewSession(senderID string) *Session {
	now := time.Now()
	return &Session{
		SenderID:  senderID,
		Stage:     StageNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) IsComplete() bool {
	return s.Stage == StageComplete
}

// Decision recomputes the eligibility decision of a completed session.
// ok is false while the session is still collecting answers.
func (s *Session) Decision() (decision EligibilityDecision, ok bool) {
	if !s.IsComplete() {
		return EligibilityDecision{}, false
	}
	return Decide(s.MonthlyIncome, s.CreditScore), true
}
