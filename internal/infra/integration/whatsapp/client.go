package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/loan-advisor/internal/infra/queue"
)

const DefaultBaseURL = "https://graph.facebook.com/v18.0"

var ErrNotConfigured = errors.New("whatsapp not configured")

// Client sends approved template messages through the WhatsApp Cloud API.
// Free-form replies go back through Twilio; templates are the only way to
// reach a user outside the 24h session window.
type Client struct {
	accessToken  string
	phoneID      string
	templateName string
	baseURL      string
	http         *http.Client
}

func NewClient(baseURL, accessToken, phoneID, templateName string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		accessToken:  accessToken,
		phoneID:      phoneID,
		templateName: templateName,
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

// SendFollowUp sends the loan follow-up template to an eligible borrower,
// in their language when the template has a translation for it.
func (c *Client) SendFollowUp(ctx context.Context, lead queue.LeadPayload) error {
	if c.accessToken == "" || c.phoneID == "" || c.templateName == "" {
		return ErrNotConfigured
	}

	to := recipient(lead.SenderID)
	lang := lead.Language
	if lang == "" {
		lang = "en"
	}

	msg := templateMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
		Template: template{
			Name:     c.templateName,
			Language: language{Code: lang},
			Components: []component{{
				Type: "body",
				Parameters: []parameter{
					{Type: "text", Text: lead.EmploymentStatus},
					{Type: "text", Text: strconv.Itoa(lead.MonthlyIncome)},
				},
			}},
		},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("❌ WhatsApp: send failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result sendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if result.Error != nil {
		return fmt.Errorf("whatsapp: %s (code %d)", result.Error.Message, result.Error.Code)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("whatsapp api error: %d", resp.StatusCode)
	}

	log.Printf("✅ WhatsApp: follow-up sent to %s", to)
	return nil
}

// recipient strips the Twilio channel prefix and the plus sign; the Cloud
// API wants bare digits.
func recipient(senderID string) string {
	to := strings.TrimPrefix(strings.TrimSpace(senderID), "whatsapp:")
	return strings.TrimPrefix(to, "+")
}
