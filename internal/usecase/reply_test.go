package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/loan-advisor/internal/entity"
	"github.com/xavierca1/loan-advisor/internal/infra/queue"
)

func completedRepo(t *testing.T) *memoryRepo {
	t.Helper()
	repo := newMemoryRepo()
	require.NoError(t, repo.Put(context.Background(), &entity.Session{
		SenderID:         sender,
		Stage:            entity.StageComplete,
		EmploymentStatus: "salaried",
		MonthlyIncome:    25000,
		CreditScore:      750,
		UpdatedAt:        time.Now(),
	}))
	return repo
}

func newReply(repo entity.SessionRepository) *ReplyUseCase {
	return NewReplyUseCase(NewOnboardingUseCase(repo), NewCalculateEMIUseCase(), nil, nil, nil)
}

func TestReplyEnglishOnboardingWithoutCollaborators(t *testing.T) {
	uc := newReply(newMemoryRepo())

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "hello"})

	require.NoError(t, err)
	assert.Equal(t, PromptEmployment, out.Text)
	assert.Equal(t, DefaultLanguage, out.Language)
	assert.Equal(t, SourceOnboarding, out.Source)
	assert.Empty(t, out.Degraded)
}

func TestReplyTranslatesBothWays(t *testing.T) {
	tr := new(MockTranslator)
	tr.On("DetectLanguage", mock.Anything, "नमस्ते").Return("hi-IN", nil)
	tr.On("Translate", mock.Anything, "नमस्ते", "en").Return("hello", nil)
	tr.On("Translate", mock.Anything, PromptEmployment, "hi").Return("क्या आप वेतनभोगी हैं या स्व-नियोजित?", nil)

	uc := newReply(newMemoryRepo())
	uc.Translator = tr

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "नमस्ते"})

	require.NoError(t, err)
	assert.Equal(t, "hi", out.Language)
	assert.Equal(t, "क्या आप वेतनभोगी हैं या स्व-नियोजित?", out.Text)
	tr.AssertExpectations(t)
}

func TestReplyKeepsNumbersUntranslated(t *testing.T) {
	repo := newMemoryRepo()
	require.NoError(t, repo.Put(context.Background(), &entity.Session{
		SenderID: sender, Stage: entity.StageAwaitingIncome, EmploymentStatus: "salaried", Language: "ta",
	}))

	tr := new(MockTranslator)
	tr.On("Translate", mock.Anything, PromptCredit, "ta").Return("உங்கள் கடன் மதிப்பெண் என்ன?", nil)

	uc := newReply(repo)
	uc.Translator = tr

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "25000"})

	require.NoError(t, err)
	assert.Equal(t, entity.StageAwaitingCredit, out.Stage)
	assert.Equal(t, "ta", out.Language)
	assert.Equal(t, "உங்கள் கடன் மதிப்பெண் என்ன?", out.Text)
	tr.AssertNotCalled(t, "DetectLanguage", mock.Anything, mock.Anything)
	tr.AssertNotCalled(t, "Translate", mock.Anything, "25000", "en")
	tr.AssertExpectations(t)
}

func TestReplyRemembersLanguageAcrossNumericAnswers(t *testing.T) {
	tr := new(MockTranslator)
	tr.On("DetectLanguage", mock.Anything, "नमस्ते").Return("hi", nil)
	tr.On("DetectLanguage", mock.Anything, "वेतनभोगी").Return("hi", nil)
	tr.On("Translate", mock.Anything, "नमस्ते", "en").Return("hello", nil)
	tr.On("Translate", mock.Anything, "वेतनभोगी", "en").Return("salaried", nil)
	tr.On("Translate", mock.Anything, mock.Anything, "hi").Return("[hi]", nil)

	repo := newMemoryRepo()
	uc := newReply(repo)
	uc.Translator = tr
	ctx := context.Background()

	for _, text := range []string{"नमस्ते", "वेतनभोगी", "25000", "750"} {
		out, err := uc.Execute(ctx, ReplyInput{SenderID: sender, Text: text})
		require.NoError(t, err)
		assert.Equal(t, "hi", out.Language, "turn %q", text)
		assert.Equal(t, "[hi]", out.Text, "turn %q", text)
	}

	s, err := repo.Get(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, entity.StageComplete, s.Stage)
	assert.Equal(t, "hi", s.Language)
	tr.AssertNotCalled(t, "DetectLanguage", mock.Anything, "25000")
	tr.AssertNotCalled(t, "DetectLanguage", mock.Anything, "750")
}

func TestReplyDetectionFailureKeepsStoredLanguage(t *testing.T) {
	repo := newMemoryRepo()
	require.NoError(t, repo.Put(context.Background(), &entity.Session{
		SenderID: sender, Stage: entity.StageAwaitingEmployment, Language: "hi",
	}))

	tr := new(MockTranslator)
	tr.On("DetectLanguage", mock.Anything, mock.Anything).Return("", errors.New("timeout"))
	tr.On("Translate", mock.Anything, PromptIncome, "hi").Return("आपकी मासिक आय क्या है?", nil)

	uc := newReply(repo)
	uc.Translator = tr

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "salaried"})

	require.NoError(t, err)
	assert.Equal(t, "hi", out.Language)
	assert.Equal(t, "आपकी मासिक आय क्या है?", out.Text)
	assert.Equal(t, []string{"language_detection"}, out.Degraded)
}

func TestReplyTranslationFailureFallsBack(t *testing.T) {
	tr := new(MockTranslator)
	tr.On("DetectLanguage", mock.Anything, mock.Anything).Return("", errors.New("timeout"))

	uc := newReply(newMemoryRepo())
	uc.Translator = tr

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "hola"})

	require.NoError(t, err)
	assert.Equal(t, PromptEmployment, out.Text)
	assert.Equal(t, []string{"language_detection"}, out.Degraded)
}

func TestReplyRoutesTerminalTurns(t *testing.T) {
	loan := &MockChatModel{name: "sarvam"}
	loan.On("Reply", mock.Anything, "which loan suits me?", "en").Return("A personal loan.", nil)
	chat := &MockChatModel{name: "deepseek"}
	chat.On("Reply", mock.Anything, "tell me a joke", "en").Return("Why did the banker...", nil)

	uc := newReply(completedRepo(t))
	uc.LoanModel = loan
	uc.ChatModel = chat

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "which loan suits me?"})
	require.NoError(t, err)
	assert.Equal(t, "A personal loan.", out.Text)
	assert.Equal(t, "sarvam", out.Source)

	out, err = uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "tell me a joke"})
	require.NoError(t, err)
	assert.Equal(t, "Why did the banker...", out.Text)
	assert.Equal(t, "deepseek", out.Source)

	out, err = uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "EMI 100000 10 12"})
	require.NoError(t, err)
	assert.Equal(t, SourceEMI, out.Source)
	assert.Contains(t, out.Text, "8791.59")
}

func TestReplyModelFailureApologises(t *testing.T) {
	chat := &MockChatModel{name: "deepseek"}
	chat.On("Reply", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("502"))

	uc := newReply(completedRepo(t))
	uc.ChatModel = chat

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "hi again"})

	require.NoError(t, err)
	assert.Equal(t, ReplyModelUnavailable, out.Text)
	assert.Equal(t, []string{"deepseek"}, out.Degraded)
}

func TestReplyWithoutModelsRepeatsCompletion(t *testing.T) {
	out, err := newReply(completedRepo(t)).Execute(context.Background(), ReplyInput{SenderID: sender, Text: "hi again"})

	require.NoError(t, err)
	assert.Equal(t, PromptComplete, out.Text)
}

func TestReplyTranscribesVoiceNotes(t *testing.T) {
	fetcher := new(MockMediaFetcher)
	fetcher.On("Fetch", mock.Anything, "https://media/1").Return([]byte("OggS"), "audio/ogg", nil)
	stt := new(MockSpeechToText)
	stt.On("Transcribe", mock.Anything, []byte("OggS"), "audio/ogg").Return(" hello ", nil)

	uc := newReply(newMemoryRepo())
	uc.Fetcher = fetcher
	uc.SpeechToText = stt

	out, err := uc.Execute(context.Background(), ReplyInput{
		SenderID: sender, MediaURL: "https://media/1", MediaContentType: "audio/ogg",
	})

	require.NoError(t, err)
	assert.Equal(t, PromptEmployment, out.Text)
	stt.AssertExpectations(t)
}

func TestReplyUnheardVoiceNote(t *testing.T) {
	fetcher := new(MockMediaFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, "", errors.New("403"))

	uc := newReply(newMemoryRepo())
	uc.Fetcher = fetcher
	uc.SpeechToText = new(MockSpeechToText)

	out, err := uc.Execute(context.Background(), ReplyInput{
		SenderID: sender, MediaURL: "https://media/1", MediaContentType: "audio/ogg",
	})

	require.NoError(t, err)
	assert.Equal(t, ReplyAudioNotHeard, out.Text)
	assert.Equal(t, SourceSystem, out.Source)

	_, err = uc.Onboarding.Session(context.Background(), sender)
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}

func TestReplyEmptyMessage(t *testing.T) {
	out, err := newReply(newMemoryRepo()).Execute(context.Background(), ReplyInput{SenderID: sender, Text: "  "})

	require.NoError(t, err)
	assert.Equal(t, ReplyEmptyMessage, out.Text)
}

func TestReplySpeaksWhenAskedToCall(t *testing.T) {
	tts := new(MockTextToSpeech)
	tts.On("Synthesize", mock.Anything, PromptEmployment, "en").Return([]byte("ID3"), nil)
	store := new(MockMediaStore)
	store.On("Save", mock.Anything, []byte("ID3"), ".mp3").Return("https://bot/media/a.mp3", nil)

	uc := newReply(newMemoryRepo())
	uc.TextToSpeech = tts
	uc.Media = store

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "please call me"})

	require.NoError(t, err)
	assert.Equal(t, "https://bot/media/a.mp3", out.AudioURL)

	tts2 := new(MockTextToSpeech)
	tts2.On("Synthesize", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("quota"))
	uc = newReply(newMemoryRepo())
	uc.TextToSpeech = tts2
	uc.Media = store

	out, err = uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "call"})
	require.NoError(t, err)
	assert.Empty(t, out.AudioURL)
	assert.Equal(t, []string{"text_to_speech"}, out.Degraded)
}

func TestReplyPublishesDecision(t *testing.T) {
	repo := newMemoryRepo()
	require.NoError(t, repo.Put(context.Background(), &entity.Session{
		SenderID: sender, Stage: entity.StageAwaitingCredit, EmploymentStatus: "salaried", MonthlyIncome: 25000,
	}))

	pub := new(MockLeadPublisher)
	pub.On("PublishLead", mock.Anything, mock.MatchedBy(func(p queue.LeadPayload) bool {
		return p.SenderID == sender && p.Eligible && p.CreditScore == 750 && p.MonthlyIncome == 25000 &&
			p.EmploymentStatus == "salaried" && p.EventID != "" && p.DecidedAt != ""
	})).Return(nil)

	uc := newReply(repo)
	uc.Queue = pub

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "750"})

	require.NoError(t, err)
	assert.Equal(t, ReplyEligible, out.Text)
	require.NotNil(t, out.Decision)
	pub.AssertExpectations(t)
}

func TestReplyPublishFailureDoesNotFailTurn(t *testing.T) {
	repo := newMemoryRepo()
	require.NoError(t, repo.Put(context.Background(), &entity.Session{
		SenderID: sender, Stage: entity.StageAwaitingCredit, MonthlyIncome: 15000,
	}))

	pub := new(MockLeadPublisher)
	pub.On("PublishLead", mock.Anything, mock.Anything).Return(errors.New("channel closed"))

	uc := newReply(repo)
	uc.Queue = pub

	out, err := uc.Execute(context.Background(), ReplyInput{SenderID: sender, Text: "750"})

	require.NoError(t, err)
	assert.Equal(t, ReplyNotEligible, out.Text)
	assert.Equal(t, []string{"queue"}, out.Degraded)
}

func TestReplyPropagatesInvalidSender(t *testing.T) {
	_, err := newReply(newMemoryRepo()).Execute(context.Background(), ReplyInput{Text: "hi"})
	assert.True(t, IsDomainError(err))
}
