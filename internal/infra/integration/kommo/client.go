package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xavierca1/loan-advisor/internal/infra/queue"
)

const (
	TagEligible  = "loan_eligible"
	TagWhatsApp  = "whatsapp_bot"
	leadNameTmpl = "Loan lead %s (%s)"
)

var ErrNotConfigured = errors.New("kommo not configured")

// Client pushes eligible borrowers into the Kommo CRM pipeline.
type Client struct {
	apiToken string
	baseURL  string
	statusID int
	http     *http.Client
}

// NewClient takes the account API base, e.g. https://acme.kommo.com/api/v4.
// statusID 0 leaves the lead in the pipeline's first stage.
func NewClient(baseURL, apiToken string, statusID int) *Client {
	return &Client{
		apiToken: apiToken,
		baseURL:  strings.TrimRight(baseURL, "/"),
		statusID: statusID,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) CreateLead(ctx context.Context, lead queue.LeadPayload) (int, error) {
	if c.apiToken == "" || c.baseURL == "" {
		log.Println("⚠️ Kommo: API token not configured")
		return 0, ErrNotConfigured
	}

	phone := PhoneFromSender(lead.SenderID)

	contactID, err := c.findOrCreateContact(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("find or create contact: %w", err)
	}

	body := []leadRequest{{
		Name:     fmt.Sprintf(leadNameTmpl, phone, lead.EmploymentStatus),
		StatusID: c.statusID,
		Price:    lead.MonthlyIncome,
		Embedded: leadEmbedded{
			Tags:     []tag{{Name: TagEligible}, {Name: TagWhatsApp}},
			Contacts: []idRef{{ID: contactID}},
		},
	}}

	var result embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/leads", body, &result); err != nil {
		return 0, fmt.Errorf("create lead: %w", err)
	}
	if len(result.Embedded.Leads) == 0 {
		return 0, errors.New("create lead: empty response")
	}

	leadID := result.Embedded.Leads[0].ID
	log.Printf("✅ Kommo: lead #%d created for %s", leadID, phone)
	return leadID, nil
}

func (c *Client) findOrCreateContact(ctx context.Context, phone string) (int, error) {
	var found embeddedResponse
	err := c.do(ctx, http.MethodGet, "/contacts?query="+url.QueryEscape(phone), nil, &found)
	if err == nil && len(found.Embedded.Contacts) > 0 {
		log.Printf("📱 Kommo: existing contact %d", found.Embedded.Contacts[0].ID)
		return found.Embedded.Contacts[0].ID, nil
	}

	body := []contactRequest{{
		Name: phone,
		CustomFields: []customFieldValues{{
			FieldCode: "PHONE",
			Values:    []fieldValue{{Value: phone, EnumCode: "MOB"}},
		}},
	}}

	var created embeddedResponse
	if err := c.do(ctx, http.MethodPost, "/contacts", body, &created); err != nil {
		return 0, err
	}
	if len(created.Embedded.Contacts) == 0 {
		return 0, errors.New("create contact: empty response")
	}

	log.Printf("✅ Kommo: new contact %d", created.Embedded.Contacts[0].ID)
	return created.Embedded.Contacts[0].ID, nil
}

// do sends JSON and decodes the response into out. Kommo answers a search
// with no hits as 204, which decodes to an empty result.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// PhoneFromSender turns "whatsapp:+919812345678" into "+919812345678".
func PhoneFromSender(senderID string) string {
	return strings.TrimPrefix(strings.TrimSpace(senderID), "whatsapp:")
}
