package entity

import (
	"context"
	"time"
)

// Lead is the record of one eligibility decision, forwarded to the loan desk.
type Lead struct {
	ID               string    `json:"id"`
	SenderID         string    `json:"sender_id"`
	EmploymentStatus string    `json:"employment_status"`
	MonthlyIncome    int       `json:"monthly_income"`
	CreditScore      int       `json:"credit_score"`
	Eligible         bool      `json:"eligible"`
	Language         string    `json:"language,omitempty"`
	Status           string    `json:"status"` // NEW, CRM_SYNCED
	DecidedAt        time.Time `json:"decided_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type LeadRepositoryInterface interface {
	Upsert(ctx context.Context, lead *Lead) error
}
