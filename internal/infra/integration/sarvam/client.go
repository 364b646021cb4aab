package sarvam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://api.sarvam.ai"
	DefaultSTTModel = "saarika:v2"
)

var languageCodePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]{2})?$`)

// Client talks to Sarvam AI: chat completions (used for translation,
// language detection and loan advice) and speech-to-text.
type Client struct {
	baseURL  string
	apiKey   string
	sttModel string
	http     *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		sttModel: DefaultSTTModel,
		http:     &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *Client) Name() string {
	return "sarvam"
}

// Reply asks Sarvam for loan advice.
func (c *Client) Reply(ctx context.Context, input, language string) (string, error) {
	return c.chat(ctx, input, language)
}

func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	query := "Detect the language of this text and reply with only its ISO 639-1 code: " + text
	resp, err := c.chat(ctx, query, "en")
	if err != nil {
		return "", err
	}

	code := languageCode(resp)
	if code == "" {
		return "", fmt.Errorf("sarvam: unrecognised language code %q", resp)
	}
	return code, nil
}

func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	query := fmt.Sprintf("Translate this text to %s and reply with only the translation: %s", targetLanguage, text)
	return c.chat(ctx, query, "en")
}

func (c *Client) chat(ctx context.Context, query, language string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("sarvam not configured")
	}

	body, err := json.Marshal(chatRequest{Query: query, Language: language})
	if err != nil {
		return "", fmt.Errorf("sarvam: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sarvam request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp.StatusCode, respBody)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("sarvam decode: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("sarvam: empty response")
	}

	return strings.TrimSpace(out.Response), nil
}

// Transcribe sends a voice note to the speech-to-text endpoint.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("sarvam not configured")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreatePart(fileHeader("file", "voice"+extensionFor(contentType), contentType))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := form.WriteField("model", c.sttModel); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("sarvam stt request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp.StatusCode, respBody)
	}

	var out transcriptResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("sarvam stt decode: %w", err)
	}
	return strings.TrimSpace(out.Transcript), nil
}

func apiError(status int, body []byte) error {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("sarvam api error (status %d): %s", status, e.Error.Message)
	}
	return fmt.Errorf("sarvam api error (status %d)", status)
}

// languageCode pulls "hi" out of replies such as "hi", "HI." or "hi-IN".
func languageCode(resp string) string {
	fields := strings.Fields(strings.ToLower(resp))
	if len(fields) != 1 {
		return ""
	}

	code := strings.Trim(fields[0], ".,;:\"'`")
	code = strings.ReplaceAll(code, "_", "-")
	if !languageCodePattern.MatchString(code) {
		return ""
	}
	if i := strings.Index(code, "-"); i > 0 {
		code = code[:i]
	}
	return code
}
