package mail

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/xavierca1/loan-advisor/internal/infra/queue"
)

//go:embed templates/*.html
var templatesFS embed.FS

var leadTemplate = template.Must(template.ParseFS(templatesFS, "templates/eligible_lead.html"))

var ErrNoRecipients = errors.New("mail: no recipients configured")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// NewEmailSender notifies the loan desk about eligible leads over SMTP.
func NewEmailSender(host string, port int, user, password, from string, to []string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
		dialer:   gomail.NewDialer(host, port, user, password),
	}
}

func (s *EmailSender) NotifyEligibleLead(lead queue.LeadPayload) error {
	if len(s.To) == 0 {
		return ErrNoRecipients
	}

	phone := strings.TrimPrefix(lead.SenderID, "whatsapp:")
	data := LeadEmailData{
		Phone:            phone,
		EmploymentStatus: lead.EmploymentStatus,
		MonthlyIncome:    lead.MonthlyIncome,
		CreditScore:      lead.CreditScore,
		Language:         lead.Language,
		DecidedAt:        lead.DecidedAt,
	}

	var body bytes.Buffer
	if err := leadTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render lead email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To...)
	m.SetHeader("Subject", fmt.Sprintf("Eligible loan lead: %s", phone))
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send lead email: %w", err)
	}
	return nil
}
