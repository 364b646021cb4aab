package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

const sender = "whatsapp:+919812345678"

func advanceAll(t *testing.T, uc *OnboardingUseCase, inputs ...string) *AdvanceOutput {
	t.Helper()
	var out *AdvanceOutput
	for _, in := range inputs {
		var err error
		out, err = uc.Advance(context.Background(), sender, in)
		require.NoError(t, err)
	}
	return out
}

func TestAdvanceUnseenSenderGetsEmploymentPrompt(t *testing.T) {
	for _, input := range []string{"hello", "", "25000", "restart", "नमस्ते"} {
		uc := NewOnboardingUseCase(newMemoryRepo())

		out, err := uc.Advance(context.Background(), sender, input)

		require.NoError(t, err)
		assert.Equal(t, PromptEmployment, out.Reply, "input %q", input)
		assert.Equal(t, entity.StageAwaitingEmployment, out.Stage)
		assert.Empty(t, out.Session.EmploymentStatus)
	}
}

func TestAdvanceStoresEmploymentVerbatim(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	out := advanceAll(t, uc, "hi", "Self-Employed (shop owner)")

	assert.Equal(t, PromptIncome, out.Reply)
	assert.Equal(t, entity.StageAwaitingIncome, out.Stage)
	assert.Equal(t, "Self-Employed (shop owner)", out.Session.EmploymentStatus)
}

func TestAdvanceEmptyEmploymentReprompts(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	out := advanceAll(t, uc, "hi", "   ")

	assert.True(t, out.Reprompt)
	assert.Equal(t, PromptTextHint+" "+PromptEmployment, out.Reply)
	assert.Equal(t, entity.StageAwaitingEmployment, out.Stage)
}

func TestAdvanceAcceptsIncome(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	out := advanceAll(t, uc, "hi", "salaried", "25000")

	assert.Equal(t, PromptCredit, out.Reply)
	assert.Equal(t, entity.StageAwaitingCredit, out.Stage)
	assert.Equal(t, 25000, out.Session.MonthlyIncome)
}

func TestAdvanceNonNumericIncomeReprompts(t *testing.T) {
	for _, input := range []string{"abc", "25k", "-100", "", "12.5"} {
		uc := NewOnboardingUseCase(newMemoryRepo())

		out := advanceAll(t, uc, "hi", "salaried", input)

		assert.True(t, out.Reprompt, "input %q", input)
		assert.Equal(t, PromptNumberHint+" "+PromptIncome, out.Reply)
		assert.Equal(t, entity.StageAwaitingIncome, out.Stage)

		stored, err := uc.Session(context.Background(), sender)
		require.NoError(t, err)
		assert.Equal(t, entity.StageAwaitingIncome, stored.Stage)
		assert.Zero(t, stored.MonthlyIncome)
	}
}

func TestAdvanceNonNumericCreditReprompts(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	out := advanceAll(t, uc, "hi", "salaried", "25000", "excellent")

	assert.True(t, out.Reprompt)
	assert.Equal(t, PromptNumberHint+" "+PromptCredit, out.Reply)
	assert.Equal(t, entity.StageAwaitingCredit, out.Stage)
	assert.Nil(t, out.Decision)
}

func TestAdvanceEndToEndEligible(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	out := advanceAll(t, uc, "hi", "salaried", "25000", "750")

	assert.Equal(t, "You are eligible for a loan!", out.Reply)
	assert.Equal(t, entity.StageComplete, out.Stage)
	require.NotNil(t, out.Decision)
	assert.True(t, out.Decision.Eligible)
}

func TestAdvanceEndToEndNotEligible(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	out := advanceAll(t, uc, "hi", "salaried", "15000", "750")

	assert.Equal(t, "Sorry, you may not be eligible.", out.Reply)
	require.NotNil(t, out.Decision)
	assert.False(t, out.Decision.Eligible)
}

func TestAdvanceThresholdsAreStrict(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())
	out := advanceAll(t, uc, "hi", "salaried", "20000", "750")
	assert.Equal(t, ReplyNotEligible, out.Reply)

	uc = NewOnboardingUseCase(newMemoryRepo())
	out = advanceAll(t, uc, "hi", "salaried", "25000", "700")
	assert.Equal(t, ReplyNotEligible, out.Reply)
}

func TestAdvanceAcceptsLargeWholeNumbers(t *testing.T) {
	repo := newMemoryRepo()
	out := advanceAll(t, NewOnboardingUseCase(repo), "hi", "salaried", "9000000000", "3000000000")

	assert.Equal(t, ReplyEligible, out.Reply)
	require.NotNil(t, out.Decision)
	assert.Equal(t, 3_000_000_000, out.Decision.CreditScore)
	assert.Equal(t, 9_000_000_000, out.Decision.MonthlyIncome)
}

func TestAdvanceCompleteIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	uc := NewOnboardingUseCase(repo)
	advanceAll(t, uc, "hi", "salaried", "25000", "750")

	before, err := repo.Get(context.Background(), sender)
	require.NoError(t, err)

	for _, input := range []string{"10", "900", "salaried", "what next?"} {
		out, err := uc.Advance(context.Background(), sender, input)
		require.NoError(t, err)

		assert.True(t, out.Terminal)
		assert.Equal(t, PromptComplete, out.Reply)
		assert.Nil(t, out.Decision)
	}

	after, err := repo.Get(context.Background(), sender)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	decision, ok := after.Decision()
	require.True(t, ok)
	assert.Equal(t, entity.EligibilityDecision{MonthlyIncome: 25000, CreditScore: 750, Eligible: true}, decision)
}

func TestAdvanceRestartResetsCompleteSession(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())
	advanceAll(t, uc, "hi", "salaried", "25000", "750")

	out, err := uc.Advance(context.Background(), sender, "  RESTART ")

	require.NoError(t, err)
	assert.Equal(t, PromptEmployment, out.Reply)
	assert.Equal(t, entity.StageAwaitingEmployment, out.Stage)
	assert.Zero(t, out.Session.MonthlyIncome)
	assert.Zero(t, out.Session.CreditScore)
}

func TestAdvanceRestartToleratesPunctuation(t *testing.T) {
	for _, input := range []string{"Restart.", "restart!", "¡Restart!", "RESTART।", "\"restart\""} {
		uc := NewOnboardingUseCase(newMemoryRepo())
		advanceAll(t, uc, "hi", "salaried", "25000", "750")

		out, err := uc.Advance(context.Background(), sender, input)

		require.NoError(t, err)
		assert.Equal(t, entity.StageAwaitingEmployment, out.Stage, "input %q", input)
	}

	uc := NewOnboardingUseCase(newMemoryRepo())
	advanceAll(t, uc, "hi", "salaried", "25000", "750")
	out, err := uc.Advance(context.Background(), sender, "please restart later")
	require.NoError(t, err)
	assert.True(t, out.Terminal)
}

func TestAdvanceTurnRecordsLanguage(t *testing.T) {
	repo := newMemoryRepo()
	uc := NewOnboardingUseCase(repo)
	ctx := context.Background()

	_, err := uc.AdvanceTurn(ctx, Turn{SenderID: sender, Input: "hello", Language: "hi"})
	require.NoError(t, err)

	// A reprompt still records a language change.
	out, err := uc.AdvanceTurn(ctx, Turn{SenderID: sender, Input: " ", Language: "ta"})
	require.NoError(t, err)
	assert.True(t, out.Reprompt)
	assert.Equal(t, "ta", out.Session.Language)

	// An empty language keeps the stored one.
	out, err = uc.AdvanceTurn(ctx, Turn{SenderID: sender, Input: "salaried"})
	require.NoError(t, err)
	assert.Equal(t, "ta", out.Session.Language)

	advanceAll(t, uc, "25000", "750")

	before, err := repo.Get(ctx, sender)
	require.NoError(t, err)

	out, err = uc.AdvanceTurn(ctx, Turn{SenderID: sender, Input: "thanks", Language: "en"})
	require.NoError(t, err)
	assert.True(t, out.Terminal)

	after, err := repo.Get(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, "en", after.Language)
	assert.Equal(t, before.MonthlyIncome, after.MonthlyIncome)
	assert.Equal(t, before.CreditScore, after.CreditScore)
	assert.Equal(t, before.Stage, after.Stage)

	// Restart keeps the language for the new questionnaire.
	out, err = uc.Advance(ctx, sender, "restart")
	require.NoError(t, err)
	assert.Equal(t, "en", out.Session.Language)
}

func TestAdvanceRejectsInvalidSender(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	_, err := uc.Advance(context.Background(), " ", "hi")

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_SENDER", de.Code)
}

func TestAdvanceStoreFailures(t *testing.T) {
	repo := new(MockSessionRepository)
	repo.On("Get", mock.Anything, sender).Return(nil, errors.New("disk full")).Once()

	_, err := NewOnboardingUseCase(repo).Advance(context.Background(), sender, "hi")
	assert.True(t, IsTechnicalError(err))

	repo = new(MockSessionRepository)
	repo.On("Get", mock.Anything, sender).Return(nil, entity.ErrSessionNotFound)
	repo.On("Put", mock.Anything, mock.Anything).Return(errors.New("read-only"))

	_, err = NewOnboardingUseCase(repo).Advance(context.Background(), sender, "hi")
	var te *TechnicalError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "SESSION_STORE_ERROR", te.Code)
}

func TestAdvanceStampsUpdatedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	uc := NewOnboardingUseCase(newMemoryRepo())
	uc.now = fixedClock(now)

	out := advanceAll(t, uc, "hi")

	assert.Equal(t, now, out.Session.UpdatedAt)
}

func TestAdvanceConcurrentTurnsNeverSkipStages(t *testing.T) {
	repo := newMemoryRepo()
	uc := NewOnboardingUseCase(repo)
	advanceAll(t, uc, "hi", "salaried")

	var wg sync.WaitGroup
	replies := make([]string, 20)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := uc.Advance(context.Background(), sender, "25000")
			if assert.NoError(t, err) {
				replies[i] = out.Reply
			}
		}(i)
	}
	wg.Wait()

	// First turn records income, the second scores 25000 as credit, the rest
	// see a finished session.
	counts := map[string]int{}
	for _, r := range replies {
		counts[r]++
	}
	assert.Equal(t, 1, counts[PromptCredit])
	assert.Equal(t, 1, counts[ReplyEligible])
	assert.Equal(t, 18, counts[PromptComplete])
	assert.Zero(t, uc.locks.size())
}

func TestAdvanceDifferentSendersAreIndependent(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("whatsapp:+1%03d", i)
			for _, in := range []string{"hi", "salaried", "25000", "750"} {
				_, err := uc.Advance(context.Background(), id, in)
				assert.NoError(t, err)
			}
			s, err := uc.Session(context.Background(), id)
			if assert.NoError(t, err) {
				assert.Equal(t, entity.StageComplete, s.Stage)
			}
		}(i)
	}
	wg.Wait()
}

func TestResetAndSession(t *testing.T) {
	uc := NewOnboardingUseCase(newMemoryRepo())
	advanceAll(t, uc, "hi")

	require.NoError(t, uc.Reset(context.Background(), sender))

	_, err := uc.Session(context.Background(), sender)
	assert.ErrorIs(t, err, entity.ErrSessionNotFound)
}
