package entity

import "math"

const MaxTenureMonths = 600

// EMIQuote is an equated monthly instalment for a fixed-rate loan.
type EMIQuote struct {
	Principal     float64 `json:"principal"`
	AnnualRate    float64 `json:"annual_rate"` // percent, e.g. 8.5
	TenureMonths  int     `json:"tenure_months"`
	Installment   float64 `json:"installment"`
	TotalPayment  float64 `json:"total_payment"`
	TotalInterest float64 `json:"total_interest"`
}

// CalculateEMI applies the amortisation formula P*r*(1+r)^n / ((1+r)^n - 1)
// with r the monthly rate. Inputs are assumed validated.
func CalculateEMI(principal, annualRate float64, tenureMonths int) EMIQuote {
	n := float64(tenureMonths)
	r := annualRate / 12 / 100

	var emi float64
	if r == 0 {
		emi = principal / n
	} else {
		growth := math.Pow(1+r, n)
		emi = principal * r * growth / (growth - 1)
	}

	total := emi * n
	return EMIQuote{
		Principal:     principal,
		AnnualRate:    annualRate,
		TenureMonths:  tenureMonths,
		Installment:   round2(emi),
		TotalPayment:  round2(total),
		TotalInterest: round2(total - principal),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
