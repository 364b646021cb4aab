package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxMediaBytes = 16 << 20 // WhatsApp voice notes are far smaller

var ErrUntrustedMediaURL = errors.New("media URL is not a Twilio media URL")

// MediaClient downloads inbound media. Twilio media URLs require HTTP basic
// auth with the account SID and auth token, so only https URLs on a Twilio
// host are fetched.
type MediaClient struct {
	accountSID string
	authToken  string
	http       *http.Client
	trusted    func(*url.URL) bool
}

func NewMediaClient(accountSID, authToken string) *MediaClient {
	return &MediaClient{
		accountSID: accountSID,
		authToken:  authToken,
		http:       &http.Client{Timeout: 20 * time.Second},
		trusted:    IsTwilioMediaURL,
	}
}

// IsTwilioMediaURL reports whether u is an https URL on api.twilio.com or
// another *.twilio.com host.
func IsTwilioMediaURL(u *url.URL) bool {
	if u == nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "api.twilio.com" || strings.HasSuffix(host, ".twilio.com")
}

func (c *MediaClient) Fetch(ctx context.Context, mediaURL string) ([]byte, string, error) {
	u, err := url.Parse(mediaURL)
	if err != nil || !c.trusted(u) {
		return nil, "", fmt.Errorf("%w: %q", ErrUntrustedMediaURL, mediaURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", err
	}
	if c.accountSID != "" {
		req.SetBasicAuth(c.accountSID, c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read media: %w", err)
	}
	if len(data) > maxMediaBytes {
		return nil, "", fmt.Errorf("media larger than %d bytes", maxMediaBytes)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
