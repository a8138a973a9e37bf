package service

import (
	"context"
	"errors"
	"log/slog"
	"storefront-payments/internal/domain"
	"storefront-payments/internal/infrastructure/paymongo"
	"storefront-payments/internal/repo"
	"storefront-payments/internal/webhook"

	"github.com/google/uuid"
)

// Outcome is what reconciling one event did to the order table.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeUnresolved    Outcome = "unresolved"
	OutcomeNotFound      Outcome = "not_found"
	OutcomeRejected      Outcome = "rejected"
	OutcomePersistFailed Outcome = "persist_failed"
)

type Result struct {
	EventID   string
	EventType domain.EventType
	OrderID   string
	Reference string
	Outcome   Outcome
}

type WebhookService interface {
	// Handle authenticates and parses a raw delivery, then reconciles it.
	// Only webhook.ErrInvalidSignature and webhook.ErrMalformedPayload are
	// returned; every other failure is logged and reported in the Result.
	Handle(ctx context.Context, body []byte, signature string) (*Result, error)
	Reconcile(ctx context.Context, event *webhook.Event, status domain.PaymentStatus) *Result
}

type webhookService struct {
	orderRepo repo.OrderRepo
	gateway   paymongo.PaymentGateway
	secret    string
	log       *slog.Logger
}

// NewWebhookService wires the reconciler. gateway may be nil, which disables
// the payment link fallback.
func NewWebhookService(
	orderRepo repo.OrderRepo,
	gateway paymongo.PaymentGateway,
	webhookSecret string,
	logger *slog.Logger,
) WebhookService {
	return &webhookService{
		orderRepo: orderRepo,
		gateway:   gateway,
		secret:    webhookSecret,
		log:       logger,
	}
}

func (s *webhookService) Handle(ctx context.Context, body []byte, signature string) (*Result, error) {
	if err := webhook.VerifySignature(s.secret, body, signature); err != nil {
		s.log.WarnContext(ctx, "webhook signature rejected")
		return nil, err
	}

	event, err := webhook.Parse(body)
	if err != nil {
		s.log.ErrorContext(ctx, "webhook payload rejected", "error", err)
		return nil, err
	}

	status, ok := event.Type.PaymentStatus()
	if !ok {
		s.log.InfoContext(ctx, "unhandled webhook event type", "event_id", event.ID, "event_type", event.Type)
		return &Result{EventID: event.ID, EventType: event.Type, Outcome: OutcomeIgnored}, nil
	}
	return s.Reconcile(ctx, event, status), nil
}

func (s *webhookService) Reconcile(ctx context.Context, event *webhook.Event, status domain.PaymentStatus) *Result {
	res := &Result{
		EventID:   event.ID,
		EventType: event.Type,
		OrderID:   webhook.OrderID(event.Data),
		Reference: webhook.PaymentReference(event.Data),
	}
	log := s.log.With("event_id", event.ID, "event_type", event.Type, "payment_status", status)

	if res.OrderID == "" {
		res.OrderID = s.orderIDFromLink(ctx, log, event)
	}

	orderID, err := uuid.Parse(res.OrderID)
	if err != nil || res.Reference == "" {
		log.WarnContext(ctx, "webhook event could not be correlated to an order",
			"order_id", res.OrderID,
			"payment_reference", res.Reference,
			"payload", event.Data,
		)
		res.Outcome = OutcomeUnresolved
		return res
	}
	log = log.With("order_id", orderID, "payment_reference", res.Reference)

	updated, err := s.orderRepo.UpdatePayment(ctx, orderID, res.Reference, status)
	if err != nil {
		log.ErrorContext(ctx, "failed to record payment on order", "error", err)
		res.Outcome = OutcomePersistFailed
		return res
	}
	if updated {
		log.InfoContext(ctx, "payment recorded on order")
		res.Outcome = OutcomeApplied
		return res
	}

	res.Outcome = s.classifySkippedUpdate(ctx, log, orderID)
	return res
}

// orderIDFromLink recovers metadata.order_id from the payment link the
// event was paid through.
func (s *webhookService) orderIDFromLink(ctx context.Context, log *slog.Logger, event *webhook.Event) string {
	linkID := webhook.PaymentLinkID(event.Data)
	if linkID == "" || s.gateway == nil {
		return ""
	}
	link, err := s.gateway.GetLink(ctx, linkID)
	if err != nil {
		log.WarnContext(ctx, "payment link lookup failed", "link_id", linkID, "error", err)
		return ""
	}
	orderID := link.OrderID()
	log.DebugContext(ctx, "order id recovered from payment link", "link_id", linkID, "order_id", orderID)
	return orderID
}

func (s *webhookService) classifySkippedUpdate(ctx context.Context, log *slog.Logger, orderID uuid.UUID) Outcome {
	order, err := s.orderRepo.FindById(ctx, orderID)
	switch {
	case errors.Is(err, repo.ErrOrderNotFound):
		log.WarnContext(ctx, "webhook references unknown order")
		return OutcomeNotFound
	case err != nil:
		log.ErrorContext(ctx, "failed to load order after skipped update", "error", err)
		return OutcomePersistFailed
	}

	current := "none"
	if order.PaymentStatus != nil {
		current = string(*order.PaymentStatus)
	}
	log.WarnContext(ctx, "payment status transition rejected", "current_payment_status", current)
	return OutcomeRejected
}
