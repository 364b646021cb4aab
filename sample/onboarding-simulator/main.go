// Command onboarding-simulator plays the eligibility questionnaire in the
// terminal with an in-memory session store. When KOMMO_API_TOKEN is set an
// eligible result is pushed to the CRM, which is handy to check the Kommo
// pipeline without WhatsApp.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/xavierca1/loan-advisor/internal/infra/integration/kommo"
	"github.com/xavierca1/loan-advisor/internal/infra/queue"
	"github.com/xavierca1/loan-advisor/internal/infra/session"
	"github.com/xavierca1/loan-advisor/internal/usecase"
)

const senderID = "whatsapp:+910000000000"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env not found, using process environment")
	}

	ctx := context.Background()
	onboarding := usecase.NewOnboardingUseCase(session.NewMemoryStore(10, time.Hour))
	reply := usecase.NewReplyUseCase(onboarding, usecase.NewCalculateEMIUseCase(), nil, nil, nil)

	var crm *kommo.Client
	if token := os.Getenv("KOMMO_API_TOKEN"); token != "" {
		crm = kommo.NewClient(os.Getenv("KOMMO_BASE_URL"), token, 0)
	}

	fmt.Println("💬 Type your answers. Ctrl+D to quit, RESTART to start over.")

	in := bufio.NewScanner(os.Stdin)
	text := "hello"
	for {
		out, err := reply.Execute(ctx, usecase.ReplyInput{SenderID: senderID, Text: text})
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("🤖 %s   [%s]\n", out.Text, out.Stage)

		if out.Decision != nil && out.Decision.Eligible && crm != nil {
			pushLead(ctx, crm, onboarding, out)
		}

		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		text = strings.TrimSpace(in.Text())
	}
}

func pushLead(ctx context.Context, crm *kommo.Client, onboarding *usecase.OnboardingUseCase, out *usecase.ReplyOutput) {
	s, err := onboarding.Session(ctx, senderID)
	if err != nil {
		fmt.Printf("❌ session: %v\n", err)
		return
	}

	id, err := crm.CreateLead(ctx, queue.LeadPayload{
		SenderID:         senderID,
		EmploymentStatus: s.EmploymentStatus,
		MonthlyIncome:    out.Decision.MonthlyIncome,
		CreditScore:      out.Decision.CreditScore,
		Eligible:         true,
		Language:         out.Language,
	})
	if err != nil {
		fmt.Printf("❌ Kommo: %v\n", err)
		return
	}
	fmt.Printf("✅ Kommo lead #%d created\n", id)
}
