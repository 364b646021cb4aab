package entity

const (
	MinMonthlyIncome = 20000
	MinCreditScore   = 700
)

type EligibilityDecision struct {
	MonthlyIncome int  `json:"monthly_income"`
	CreditScore   int  `json:"credit_score"`
	Eligible      bool `json:"eligible"`
}

// Decide is eligible only when both values are strictly above the thresholds.
func Decide(monthlyIncome, creditScore int) EligibilityDecision {
	return EligibilityDecision{
		MonthlyIncome: monthlyIncome,
		CreditScore:   creditScore,
		Eligible:      monthlyIncome > MinMonthlyIncome && creditScore > MinCreditScore,
	}
}
