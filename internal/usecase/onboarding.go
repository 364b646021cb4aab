package usecase

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/looplab/fsm"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

const (
	PromptEmployment = "Are you salaried or self-employed?"
	PromptIncome     = "What is your monthly income?"
	PromptCredit     = "What is your credit score?"
	PromptNumberHint = "Please enter a number."
	PromptTextHint   = "Please reply in words."
	PromptComplete   = "Your eligibility check is complete. Send RESTART to check again."

	ReplyEligible    = "You are eligible for a loan!"
	ReplyNotEligible = "Sorry, you may not be eligible."

	RestartKeyword = "restart"
)

const (
	eventStart      = "start"
	eventEmployment = "employment_given"
	eventIncome     = "income_given"
	eventCredit     = "credit_given"
)

var onboardingEvents = fsm.Events{
	{Name: eventStart, Src: []string{string(entity.StageNew)}, Dst: string(entity.StageAwaitingEmployment)},
	{Name: eventEmployment, Src: []string{string(entity.StageAwaitingEmployment)}, Dst: string(entity.StageAwaitingIncome)},
	{Name: eventIncome, Src: []string{string(entity.StageAwaitingIncome)}, Dst: string(entity.StageAwaitingCredit)},
	{Name: eventCredit, Src: []string{string(entity.StageAwaitingCredit)}, Dst: string(entity.StageComplete)},
}

// OnboardingUseCase drives the four-question eligibility intake.
// Input is expected in English; translation happens before and after.
type OnboardingUseCase struct {
	Repo  entity.SessionRepository
	locks *keyedMutex
	now   func() time.Time
}

func NewOnboardingUseCase(repo entity.SessionRepository) *OnboardingUseCase {
	return &OnboardingUseCase{
		Repo:  repo,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

// Advance applies one user turn to the sender's session and returns the
// next prompt or the final decision. Turns for the same sender are
// serialised; a rejected number re-asks the same question.
func (uc *OnboardingUseCase) Advance(ctx context.Context, senderID, input string) (*AdvanceOutput, error) {
	return uc.AdvanceTurn(ctx, Turn{SenderID: senderID, Input: input})
}

// AdvanceTurn is Advance that also records the language the turn was
// written in. An empty Language keeps the stored one.
func (uc *OnboardingUseCase) AdvanceTurn(ctx context.Context, turn Turn) (*AdvanceOutput, error) {
	senderID, input := turn.SenderID, turn.Input

	if errs := ValidateSenderID(senderID); len(errs) > 0 {
		return nil, &DomainError{Code: "INVALID_SENDER", Message: joinValidationErrors(errs)}
	}

	unlock := uc.locks.Lock(senderID)
	defer unlock()

	session, err := uc.Repo.Get(ctx, senderID)
	if errors.Is(err, entity.ErrSessionNotFound) {
		session = entity.NewSession(senderID)
	} else if err != nil {
		return nil, &TechnicalError{Code: "SESSION_STORE_ERROR", Message: "failed to load session", Err: err}
	}

	languageChanged := turn.Language != "" && turn.Language != session.Language
	if languageChanged {
		session.Language = turn.Language
	}

	if session.IsComplete() {
		if !isRestart(input) {
			if languageChanged {
				if err := uc.save(ctx, session); err != nil {
					return nil, err
				}
			}
			return &AdvanceOutput{
				Reply:    PromptComplete,
				Stage:    session.Stage,
				Session:  *session,
				Terminal: true,
			}, nil
		}

		if err := uc.Repo.Delete(ctx, senderID); err != nil {
			return nil, &TechnicalError{Code: "SESSION_STORE_ERROR", Message: "failed to reset session", Err: err}
		}
		log.Printf("🔁 Onboarding: session reset by %s", senderID)
		language := session.Language
		session = entity.NewSession(senderID)
		session.Language = language
	}

	out := &AdvanceOutput{}
	var event string

	switch session.Stage {
	case entity.StageNew:
		event = eventStart
		out.Reply = PromptEmployment

	case entity.StageAwaitingEmployment:
		if strings.TrimSpace(input) == "" {
			return uc.reprompt(ctx, session, languageChanged, PromptTextHint+" "+PromptEmployment)
		}
		session.EmploymentStatus = input
		event = eventEmployment
		out.Reply = PromptIncome

	case entity.StageAwaitingIncome:
		income, err := entity.ParseWholeNumber("monthly_income", input)
		if err != nil {
			return uc.reprompt(ctx, session, languageChanged, PromptNumberHint+" "+PromptIncome)
		}
		session.MonthlyIncome = income
		event = eventIncome
		out.Reply = PromptCredit

	case entity.StageAwaitingCredit:
		score, err := entity.ParseWholeNumber("credit_score", input)
		if err != nil {
			return uc.reprompt(ctx, session, languageChanged, PromptNumberHint+" "+PromptCredit)
		}
		session.CreditScore = score

		decision := entity.Decide(session.MonthlyIncome, session.CreditScore)
		out.Decision = &decision
		event = eventCredit
		if decision.Eligible {
			out.Reply = ReplyEligible
		} else {
			out.Reply = ReplyNotEligible
		}

	default:
		return nil, &TechnicalError{Code: "INVALID_STAGE", Message: "unknown session stage " + string(session.Stage)}
	}

	machine := fsm.NewFSM(string(session.Stage), onboardingEvents, fsm.Callbacks{})
	if err := machine.Event(ctx, event); err != nil {
		return nil, &TechnicalError{Code: "INVALID_TRANSITION", Message: "onboarding transition rejected", Err: err}
	}

	session.Stage = entity.Stage(machine.Current())
	if err := uc.save(ctx, session); err != nil {
		return nil, err
	}

	if out.Decision != nil {
		log.Printf("✅ Onboarding: %s decided (eligible=%t)", senderID, out.Decision.Eligible)
	}

	out.Stage = session.Stage
	out.Session = *session
	return out, nil
}

// Reset forgets the sender's session.
func (uc *OnboardingUseCase) Reset(ctx context.Context, senderID string) error {
	unlock := uc.locks.Lock(senderID)
	defer unlock()

	if err := uc.Repo.Delete(ctx, senderID); err != nil {
		return &TechnicalError{Code: "SESSION_STORE_ERROR", Message: "failed to delete session", Err: err}
	}
	return nil
}

// Session returns a snapshot of the sender's session.
func (uc *OnboardingUseCase) Session(ctx context.Context, senderID string) (*entity.Session, error) {
	session, err := uc.Repo.Get(ctx, senderID)
	if err != nil {
		if errors.Is(err, entity.ErrSessionNotFound) {
			return nil, err
		}
		return nil, &TechnicalError{Code: "SESSION_STORE_ERROR", Message: "failed to load session", Err: err}
	}
	return session, nil
}

func (uc *OnboardingUseCase) save(ctx context.Context, session *entity.Session) error {
	session.UpdatedAt = uc.now()
	if err := uc.Repo.Put(ctx, session); err != nil {
		return &TechnicalError{Code: "SESSION_STORE_ERROR", Message: "failed to save session", Err: err}
	}
	return nil
}

// reprompt keeps the stage; the session is only written when the turn
// changed its language.
func (uc *OnboardingUseCase) reprompt(ctx context.Context, session *entity.Session, dirty bool, reply string) (*AdvanceOutput, error) {
	if dirty {
		if err := uc.save(ctx, session); err != nil {
			return nil, err
		}
	}
	return &AdvanceOutput{
		Reply:    reply,
		Stage:    session.Stage,
		Session:  *session,
		Reprompt: true,
	}, nil
}

// isRestart ignores case, surrounding space and punctuation, so a
// translated "Restart." still matches.
func isRestart(input string) bool {
	trimmed := strings.TrimFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.EqualFold(trimmed, RestartKeyword)
}
