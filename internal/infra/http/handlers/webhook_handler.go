package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/xavierca1/loan-advisor/internal/infra/http/middleware"
	"github.com/xavierca1/loan-advisor/internal/infra/integration/twilio"
	"github.com/xavierca1/loan-advisor/internal/usecase"
)

const (
	ReplyRateLimited = "You are sending messages too quickly. Please wait a minute and try again."
	ReplyInternal    = "Sorry, something went wrong on our side. Please try again in a moment."
)

type Replier interface {
	Execute(ctx context.Context, input usecase.ReplyInput) (*usecase.ReplyOutput, error)
}

type SignatureValidator interface {
	Validate(r *http.Request) bool
}

// WebhookHandler answers Twilio WhatsApp webhooks with TwiML.
type WebhookHandler struct {
	Replier   Replier
	Validator SignatureValidator // nil disables signature checks
	Limiter   *RateLimiter       // nil disables rate limiting
}

func NewWebhookHandler(replier Replier, validator SignatureValidator, limiter *RateLimiter) *WebhookHandler {
	return &WebhookHandler{
		Replier:   replier,
		Validator: validator,
		Limiter:   limiter,
	}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	msg, err := twilio.ParseInbound(r)
	if err != nil {
		http.Error(w, "Bad form", http.StatusBadRequest)
		return
	}

	if h.Validator != nil && !h.Validator.Validate(r) {
		log.Printf("🚫 Webhook: invalid Twilio signature from %s", r.RemoteAddr)
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	if msg.From == "" {
		http.Error(w, "From is required", http.StatusBadRequest)
		return
	}

	if h.Limiter != nil && !h.Limiter.Allow(msg.From) {
		middleware.RecordRateLimited()
		writeTwiML(w, http.StatusTooManyRequests, ReplyRateLimited, "")
		return
	}

	out, err := h.Replier.Execute(r.Context(), usecase.ReplyInput{
		SenderID:         msg.From,
		Text:             msg.Body,
		MediaURL:         msg.MediaURL,
		MediaContentType: msg.MediaContentType,
	})
	if err != nil {
		// Twilio retries non-2xx answers, which would replay the turn.
		if usecase.IsDomainError(err) {
			log.Printf("⚠️ Webhook: rejected message from %s: %v", msg.From, err)
		} else {
			log.Printf("❌ Webhook: reply failed for %s: %v", msg.From, err)
		}
		if usecase.IsTechnicalError(err) {
			middleware.RecordIntegrationError("session_store")
		}
		writeTwiML(w, http.StatusOK, ReplyInternal, "")
		return
	}

	recordReply(out)
	writeTwiML(w, http.StatusOK, out.Text, out.AudioURL)
}

func recordReply(out *usecase.ReplyOutput) {
	middleware.RecordReply(out.Source)
	if out.Decision != nil {
		middleware.RecordDecision(out.Decision.Eligible)
	}
	for _, service := range out.Degraded {
		middleware.RecordIntegrationError(service)
	}
}

func writeTwiML(w http.ResponseWriter, status int, text, mediaURL string) {
	body, err := twilio.RenderReply(text, mediaURL)
	if err != nil {
		log.Printf("❌ Webhook: TwiML render failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
