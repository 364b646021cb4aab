package usecase

import (
	"context"

	"github.com/xavierca1/loan-advisor/internal/infra/queue"
)

// Translator detects languages and translates free text. Codes are short
// ISO 639-1 codes ("en", "hi", "ta").
type Translator interface {
	DetectLanguage(ctx context.Context, text string) (string, error)
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// ChatModel answers a user question. Sarvam serves loan questions,
// DeepSeek everything else.
type ChatModel interface {
	Name() string
	Reply(ctx context.Context, input, language string) (string, error)
}

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// TextToSpeech returns MP3 audio.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// MediaFetcher downloads inbound media referenced by the webhook.
type MediaFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// MediaStore keeps generated audio and returns a public URL for it.
type MediaStore interface {
	Save(ctx context.Context, data []byte, ext string) (string, error)
}

type LeadPublisher interface {
	PublishLead(ctx context.Context, payload queue.LeadPayload) error
}
