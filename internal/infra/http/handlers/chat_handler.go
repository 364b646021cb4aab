package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/xavierca1/loan-advisor/internal/entity"
	"github.com/xavierca1/loan-advisor/internal/infra/http/middleware"
	"github.com/xavierca1/loan-advisor/internal/usecase"
)

// ChatRequest is text only; voice notes arrive through the webhook.
type ChatRequest struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
}

// ChatHandler is the JSON twin of the webhook, used by the web widget and
// for manual testing. Its senders live in the "web:" namespace.
type ChatHandler struct {
	Replier Replier
	Limiter *RateLimiter // per client address; nil disables
}

func NewChatHandler(replier Replier, limiter *RateLimiter) *ChatHandler {
	return &ChatHandler{Replier: replier, Limiter: limiter}
}

func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow("api:"+clientAddr(r)) {
		middleware.RecordRateLimited()
		writeErrorResponse(w, http.StatusTooManyRequests, "RATE_LIMITED", ReplyRateLimited)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON body")
		return
	}

	out, err := h.Replier.Execute(r.Context(), usecase.ReplyInput{
		SenderID: webSenderID(req.SenderID),
		Text:     req.Message,
	})
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	recordReply(out)
	writeJSON(w, http.StatusOK, out)
}

// webSenderID moves a client-chosen id into the web namespace so it can
// never address a WhatsApp session. Blank ids stay blank and fail
// validation.
func webSenderID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}
	return entity.WebSenderPrefix + strings.TrimPrefix(id, entity.WebSenderPrefix)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
