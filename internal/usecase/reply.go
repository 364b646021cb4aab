package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/loan-advisor/internal/entity"
	"github.com/xavierca1/loan-advisor/internal/infra/queue"
)

const (
	DefaultLanguage = "en"

	ReplyModelUnavailable = "Sorry, I couldn't process your request."
	ReplyAudioNotHeard    = "Sorry, I could not understand the audio. Please send your message as text."
	ReplyEmptyMessage     = "Please send a text or voice message."

	loanKeyword = "loan"
	callKeyword = "call"
)

// ReplyUseCase turns one inbound chat message into the reply text (and
// optional voice note) in the user's language.
type ReplyUseCase struct {
	Onboarding *OnboardingUseCase
	EMI        *CalculateEMIUseCase
	Translator Translator
	LoanModel  ChatModel
	ChatModel  ChatModel

	// Optional collaborators; nil disables the feature.
	SpeechToText SpeechToText
	TextToSpeech TextToSpeech
	Fetcher      MediaFetcher
	Media        MediaStore
	Queue        LeadPublisher
}

func NewReplyUseCase(
	onboarding *OnboardingUseCase,
	emi *CalculateEMIUseCase,
	translator Translator,
	loanModel ChatModel,
	chatModel ChatModel,
) *ReplyUseCase {
	return &ReplyUseCase{
		Onboarding: onboarding,
		EMI:        emi,
		Translator: translator,
		LoanModel:  loanModel,
		ChatModel:  chatModel,
	}
}

func (uc *ReplyUseCase) Execute(ctx context.Context, input ReplyInput) (*ReplyOutput, error) {
	out := &ReplyOutput{Language: DefaultLanguage}

	text := strings.TrimSpace(input.Text)

	if isAudio(input.MediaContentType) && input.MediaURL != "" {
		transcript, ok := uc.transcribe(ctx, input, out)
		if !ok {
			out.Text = ReplyAudioNotHeard
			out.Source = SourceSystem
			return out, nil
		}
		text = transcript
	}

	if text == "" {
		out.Text = ReplyEmptyMessage
		out.Source = SourceSystem
		return out, nil
	}

	// Numeric answers carry no language; they go to the state machine
	// untouched and the reply uses the sender's last detected language.
	english, detected := text, ""
	if !looksNumeric(text) {
		detected = uc.detectLanguage(ctx, text, out)
		if detected != "" && detected != DefaultLanguage {
			english = uc.translate(ctx, text, DefaultLanguage, out)
		}
	}

	advanced, err := uc.Onboarding.AdvanceTurn(ctx, Turn{
		SenderID: input.SenderID,
		Input:    english,
		Language: detected,
	})
	if err != nil {
		return nil, err
	}
	out.Stage = advanced.Stage
	if lang := advanced.Session.Language; lang != "" {
		out.Language = lang
	}

	reply := advanced.Reply
	out.Source = SourceOnboarding

	if advanced.Terminal {
		reply, out.Source = uc.answer(ctx, english, out)
	}

	if advanced.Decision != nil {
		out.Decision = advanced.Decision
		uc.publishDecision(ctx, advanced, out)
	}

	if out.Language != DefaultLanguage {
		reply = uc.translate(ctx, reply, out.Language, out)
	}
	out.Text = reply

	if strings.Contains(strings.ToLower(text), callKeyword) {
		out.AudioURL = uc.speak(ctx, reply, out)
	}

	return out, nil
}

// answer routes a message from a sender who finished onboarding.
func (uc *ReplyUseCase) answer(ctx context.Context, english string, out *ReplyOutput) (string, string) {
	if uc.EMI != nil && IsEMIRequest(english) {
		return uc.EMI.ReplyFor(english), SourceEMI
	}

	model := uc.ChatModel
	if strings.Contains(strings.ToLower(english), loanKeyword) {
		model = uc.LoanModel
	}
	if model == nil {
		return PromptComplete, SourceSystem
	}

	reply, err := model.Reply(ctx, english, DefaultLanguage)
	if err != nil || strings.TrimSpace(reply) == "" {
		log.Printf("⚠️ Reply: %s failed: %v", model.Name(), err)
		out.Degraded = append(out.Degraded, model.Name())
		return ReplyModelUnavailable, model.Name()
	}
	return reply, model.Name()
}

func (uc *ReplyUseCase) transcribe(ctx context.Context, input ReplyInput, out *ReplyOutput) (string, bool) {
	if uc.Fetcher == nil || uc.SpeechToText == nil {
		return "", false
	}

	audio, contentType, err := uc.Fetcher.Fetch(ctx, input.MediaURL)
	if err != nil {
		log.Printf("⚠️ Reply: media download failed for %s: %v", input.SenderID, err)
		out.Degraded = append(out.Degraded, "media")
		return "", false
	}
	if contentType == "" {
		contentType = input.MediaContentType
	}

	transcript, err := uc.SpeechToText.Transcribe(ctx, audio, contentType)
	if err != nil || strings.TrimSpace(transcript) == "" {
		log.Printf("⚠️ Reply: transcription failed for %s: %v", input.SenderID, err)
		out.Degraded = append(out.Degraded, "speech_to_text")
		return "", false
	}
	return strings.TrimSpace(transcript), true
}

// detectLanguage returns "" when the language is unknown, so the sender's
// stored language (or English) is used.
func (uc *ReplyUseCase) detectLanguage(ctx context.Context, text string, out *ReplyOutput) string {
	if uc.Translator == nil {
		return DefaultLanguage
	}

	lang, err := uc.Translator.DetectLanguage(ctx, text)
	if err != nil {
		log.Printf("⚠️ Reply: language detection failed: %v", err)
		out.Degraded = append(out.Degraded, "language_detection")
		return ""
	}

	lang = normalizeLanguage(lang)
	if lang == "" || len(lang) > 3 {
		return ""
	}
	return lang
}

// translate falls back to the untranslated text.
func (uc *ReplyUseCase) translate(ctx context.Context, text, target string, out *ReplyOutput) string {
	if uc.Translator == nil {
		return text
	}

	translated, err := uc.Translator.Translate(ctx, text, target)
	if err != nil || strings.TrimSpace(translated) == "" {
		log.Printf("⚠️ Reply: translation to %s failed: %v", target, err)
		out.Degraded = append(out.Degraded, "translation")
		return text
	}
	return translated
}

func (uc *ReplyUseCase) speak(ctx context.Context, text string, out *ReplyOutput) string {
	if uc.TextToSpeech == nil || uc.Media == nil {
		return ""
	}

	audio, err := uc.TextToSpeech.Synthesize(ctx, text, out.Language)
	if err != nil {
		log.Printf("⚠️ Reply: text-to-speech failed: %v", err)
		out.Degraded = append(out.Degraded, "text_to_speech")
		return ""
	}

	url, err := uc.Media.Save(ctx, audio, ".mp3")
	if err != nil {
		log.Printf("⚠️ Reply: saving audio failed: %v", err)
		out.Degraded = append(out.Degraded, "media_store")
		return ""
	}
	return url
}

func (uc *ReplyUseCase) publishDecision(ctx context.Context, advanced *AdvanceOutput, out *ReplyOutput) {
	if uc.Queue == nil {
		return
	}

	payload := queue.LeadPayload{
		EventID:          uuid.New().String(),
		SenderID:         advanced.Session.SenderID,
		EmploymentStatus: advanced.Session.EmploymentStatus,
		MonthlyIncome:    advanced.Decision.MonthlyIncome,
		CreditScore:      advanced.Decision.CreditScore,
		Eligible:         advanced.Decision.Eligible,
		Language:         out.Language,
		DecidedAt:        advanced.Session.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if err := uc.Queue.PublishLead(ctx, payload); err != nil {
		log.Printf("⚠️ CRITICAL: decision stored but lead not queued for %s: %v", payload.SenderID, err)
		out.Degraded = append(out.Degraded, "queue")
	}
}

func looksNumeric(text string) bool {
	_, err := entity.ParseWholeNumber("", text)
	return err == nil
}

func isAudio(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "audio/")
}

// normalizeLanguage keeps the primary subtag: "hi-IN" -> "hi".
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
