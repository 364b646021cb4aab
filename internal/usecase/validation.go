package usecase

import (
	"fmt"
	"math"
	"strings"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const maxSenderIDLength = 128

func ValidateSenderID(senderID string) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(senderID) == "" {
		errors = append(errors, ValidationError{"sender_id", "is required"})
	} else if len(senderID) > maxSenderIDLength {
		errors = append(errors, ValidationError{"sender_id", "must not exceed 128 characters"})
	}

	return errors
}

func ValidateEMIInput(input EMIInput) []ValidationError {
	var errors []ValidationError

	if !isFinite(input.Principal) || input.Principal <= 0 {
		errors = append(errors, ValidationError{"principal", "must be greater than zero"})
	}

	if !isFinite(input.AnnualRate) || input.AnnualRate < 0 {
		errors = append(errors, ValidationError{"annual_rate", "must not be negative"})
	} else if input.AnnualRate > 100 {
		errors = append(errors, ValidationError{"annual_rate", "must not exceed 100"})
	}

	if input.TenureMonths < 1 {
		errors = append(errors, ValidationError{"tenure_months", "must be at least 1"})
	} else if input.TenureMonths > entity.MaxTenureMonths {
		errors = append(errors, ValidationError{"tenure_months", "must not exceed 600"})
	}

	return errors
}

func joinValidationErrors(errs []ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
