package usecase

import "github.com/xavierca1/loan-advisor/internal/entity"

// Turn is one already-normalised message for the onboarding flow.
type Turn struct {
	SenderID string
	Input    string
	Language string // detected language of the original text, "" when unknown
}

type AdvanceOutput struct {
	Reply string       `json:"reply"`
	Stage entity.Stage `json:"stage"`

	// Decision is set only on the turn that completes the questionnaire.
	Decision *entity.EligibilityDecision `json:"decision,omitempty"`
	Session  entity.Session              `json:"-"`

	Reprompt bool `json:"reprompt"` // answer rejected, same question asked again
	Terminal bool `json:"terminal"` // session was already COMPLETE, nothing changed
}

type ReplyInput struct {
	SenderID         string `json:"sender_id"`
	Text             string `json:"message"`
	MediaURL         string `json:"media_url,omitempty"`
	MediaContentType string `json:"media_content_type,omitempty"`
}

// Reply sources.
const (
	SourceOnboarding = "onboarding"
	SourceEMI        = "emi"
	SourceSystem     = "system"
)

type ReplyOutput struct {
	Text     string       `json:"reply"`
	Language string       `json:"language"`
	Stage    entity.Stage `json:"stage"`
	Source   string       `json:"source"` // onboarding, emi, system or the model name
	AudioURL string       `json:"audio_url,omitempty"`

	Decision *entity.EligibilityDecision `json:"decision,omitempty"`

	// Degraded lists collaborators that failed during this turn while a
	// fallback answer was still produced.
	Degraded []string `json:"degraded,omitempty"`
}

type EMIInput struct {
	Principal    float64 `json:"principal"`
	AnnualRate   float64 `json:"annual_rate"`
	TenureMonths int     `json:"tenure_months"`
}
