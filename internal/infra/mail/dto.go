package mail

type LeadEmailData struct {
	Phone            string
	EmploymentStatus string
	MonthlyIncome    int
	CreditScore      int
	Language         string
	DecidedAt        string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string

	dialer dialer
}
