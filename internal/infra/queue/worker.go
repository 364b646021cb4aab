package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/loan-advisor/internal/entity"
)

// CRMClient creates a lead for the loan desk and returns its CRM id.
type CRMClient interface {
	CreateLead(ctx context.Context, payload LeadPayload) (int, error)
}

type LeadNotifier interface {
	NotifyEligibleLead(payload LeadPayload) error
}

type FollowUpSender interface {
	SendFollowUp(ctx context.Context, payload LeadPayload) error
}

// Worker consumes decided leads. Every collaborator is optional.
type Worker struct {
	Channel  *amqp.Channel
	Leads    entity.LeadRepositoryInterface
	CRM      CRMClient
	Notifier LeadNotifier
	FollowUp FollowUpSender
}

func NewWorker(ch *amqp.Channel, leads entity.LeadRepositoryInterface, crm CRMClient, notifier LeadNotifier, followUp FollowUpSender) *Worker {
	return &Worker{
		Channel:  ch,
		Leads:    leads,
		CRM:      crm,
		Notifier: notifier,
		FollowUp: followUp,
	}
}

// Start blocks until ctx is cancelled or the delivery channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName, // queue
		"",        // consumer
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return fmt.Errorf("failed to register RabbitMQ consumer: %w", err)
	}

	log.Printf(" [*] Lead worker waiting on queue '%s'", queueName)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Lead worker stopped")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			w.handleDelivery(ctx, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var payload LeadPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		log.Printf("❌ [WORKER] Invalid JSON: %s", err)
		d.Nack(false, false)
		return
	}

	if err := w.Process(ctx, payload); err != nil {
		log.Printf("❌ [WORKER] Lead %s failed: %s", payload.SenderID, err)
		d.Nack(false, false) // dead-lettered
		return
	}

	d.Ack(false)
}

func (w *Worker) Process(ctx context.Context, payload LeadPayload) error {
	lead := leadFromPayload(payload)

	if w.Leads != nil {
		if err := w.Leads.Upsert(ctx, lead); err != nil {
			return fmt.Errorf("failed to record lead: %w", err)
		}
	}

	if !payload.Eligible {
		log.Printf("📝 [WORKER] Lead %s recorded (not eligible)", payload.SenderID)
		return nil
	}

	if w.CRM != nil {
		crmID, err := w.CRM.CreateLead(ctx, payload)
		if err != nil {
			return fmt.Errorf("crm: %w", err)
		}
		log.Printf("✅ [WORKER] Lead %s synced to CRM #%d", payload.SenderID, crmID)

		if w.Leads != nil {
			lead.Status = LeadStatusSynced
			if err := w.Leads.Upsert(ctx, lead); err != nil {
				log.Printf("⚠️ [WORKER] Could not mark lead %s as synced: %v", payload.SenderID, err)
			}
		}
	}

	if w.Notifier != nil {
		if err := w.Notifier.NotifyEligibleLead(payload); err != nil {
			log.Printf("⚠️ [WORKER] Loan desk email failed for %s: %v", payload.SenderID, err)
		}
	}

	if w.FollowUp != nil && entity.IsWhatsAppSender(payload.SenderID) {
		if err := w.FollowUp.SendFollowUp(ctx, payload); err != nil {
			log.Printf("⚠️ [WORKER] WhatsApp follow-up failed for %s: %v", payload.SenderID, err)
		}
	}

	return nil
}

const (
	LeadStatusNew    = "NEW"
	LeadStatusSynced = "CRM_SYNCED"
)

func leadFromPayload(p LeadPayload) *entity.Lead {
	decidedAt, err := time.Parse(time.RFC3339, p.DecidedAt)
	if err != nil {
		decidedAt = time.Now()
	}

	return &entity.Lead{
		ID:               p.EventID,
		SenderID:         p.SenderID,
		EmploymentStatus: p.EmploymentStatus,
		MonthlyIncome:    p.MonthlyIncome,
		CreditScore:      p.CreditScore,
		Eligible:         p.Eligible,
		Language:         p.Language,
		Status:           LeadStatusNew,
		DecidedAt:        decidedAt,
	}
}
