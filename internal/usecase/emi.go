package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

const EMIUsage = "To calculate an EMI send: EMI <loan amount> <annual interest rate %> <tenure in months>, for example EMI 500000 8.5 240"

var (
	emiKeyword = regexp.MustCompile(`(?i)\bemi\b`)
	emiNumber  = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

type CalculateEMIUseCase struct{}

func NewCalculateEMIUseCase() *CalculateEMIUseCase {
	return &CalculateEMIUseCase{}
}

func (uc *CalculateEMIUseCase) Execute(input EMIInput) (*entity.EMIQuote, error) {
	if errs := ValidateEMIInput(input); len(errs) > 0 {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: joinValidationErrors(errs)}
	}

	quote := entity.CalculateEMI(input.Principal, input.AnnualRate, input.TenureMonths)
	return &quote, nil
}

// IsEMIRequest reports whether a chat message asks for an EMI quote.
func IsEMIRequest(text string) bool {
	return emiKeyword.MatchString(text)
}

// ParseEMIRequest reads "emi <principal> <rate> <months>" from free text.
// Thousands separators are ignored.
func ParseEMIRequest(text string) (EMIInput, bool) {
	loc := emiKeyword.FindStringIndex(text)
	if loc == nil {
		return EMIInput{}, false
	}

	rest := strings.ReplaceAll(text[loc[1]:], ",", "")
	numbers := emiNumber.FindAllString(rest, -1)
	if len(numbers) < 3 {
		return EMIInput{}, false
	}

	principal, err := strconv.ParseFloat(numbers[0], 64)
	if err != nil {
		return EMIInput{}, false
	}
	rate, err := strconv.ParseFloat(numbers[1], 64)
	if err != nil {
		return EMIInput{}, false
	}
	months, err := strconv.Atoi(numbers[2])
	if err != nil {
		return EMIInput{}, false
	}

	return EMIInput{Principal: principal, AnnualRate: rate, TenureMonths: months}, true
}

// ReplyFor answers an EMI chat message.
func (uc *CalculateEMIUseCase) ReplyFor(text string) string {
	input, ok := ParseEMIRequest(text)
	if !ok {
		return EMIUsage
	}

	quote, err := uc.Execute(input)
	if err != nil {
		return "Sorry, I could not calculate that EMI (" + err.Error() + "). " + EMIUsage
	}

	return FormatEMIQuote(quote)
}

func FormatEMIQuote(q *entity.EMIQuote) string {
	return fmt.Sprintf(
		"EMI for a loan of %.2f at %.2f%% for %d months: %.2f per month. Total payment %.2f, total interest %.2f.",
		q.Principal, q.AnnualRate, q.TenureMonths, q.Installment, q.TotalPayment, q.TotalInterest,
	)
}
