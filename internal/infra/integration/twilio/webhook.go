package twilio

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/twilio/twilio-go/client"
)

const SignatureHeader = "X-Twilio-Signature"

// InboundMessage is the subset of the Twilio messaging webhook we use.
type InboundMessage struct {
	MessageSID       string
	From             string // "whatsapp:+919812345678"
	To               string
	Body             string
	NumMedia         int
	MediaURL         string
	MediaContentType string
	ProfileName      string
}

// ParseInbound reads the form-encoded webhook body. r.ParseForm must be
// safe to call (it is idempotent).
func ParseInbound(r *http.Request) (InboundMessage, error) {
	if err := r.ParseForm(); err != nil {
		return InboundMessage{}, err
	}

	numMedia, _ := strconv.Atoi(r.PostForm.Get("NumMedia"))

	msg := InboundMessage{
		MessageSID:  r.PostForm.Get("MessageSid"),
		From:        strings.TrimSpace(r.PostForm.Get("From")),
		To:          r.PostForm.Get("To"),
		Body:        r.PostForm.Get("Body"),
		NumMedia:    numMedia,
		ProfileName: r.PostForm.Get("ProfileName"),
	}
	if numMedia > 0 {
		msg.MediaURL = r.PostForm.Get("MediaUrl0")
		msg.MediaContentType = r.PostForm.Get("MediaContentType0")
	}
	return msg, nil
}

// Validator checks X-Twilio-Signature against the public webhook URL.
type Validator struct {
	validator client.RequestValidator
	publicURL string
}

// NewValidator takes the URL Twilio is configured to call; behind a proxy
// it differs from what the server sees in r.URL.
func NewValidator(authToken, publicURL string) *Validator {
	return &Validator{
		validator: client.NewRequestValidator(authToken),
		publicURL: publicURL,
	}
}

func (v *Validator) Validate(r *http.Request) bool {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return false
	}
	if err := r.ParseForm(); err != nil {
		return false
	}

	params := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		params[k] = r.PostForm.Get(k)
	}

	url := v.publicURL
	if url == "" {
		url = requestURL(r)
	}
	return v.validator.Validate(url, params, signature)
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
