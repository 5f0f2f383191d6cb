package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	webhookmodel "github.com/planora/core-service/internal/core/datamodel/webhook"
	"github.com/planora/core-service/internal/core/events"
)

// Service reconciles payment lifecycle webhooks: one transaction per
// delivery, audit row first, then the per-event-type state transition.
type Service struct {
	repo     RepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Process persists the audit row and applies the state transition implied
// by the event type, atomically. Unknown event types still commit the
// audit row; they are deliberately non-fatal because the peer may ship new
// lifecycle events before this service learns about them.
func (s *Service) Process(ctx context.Context, d *Delivery) (*webhookmodel.PaymentWebhook, error) {
	now := time.Now().UTC()

	record := &webhookmodel.PaymentWebhook{
		EventType:        d.Request.EventType,
		PaymentIntentID:  d.Request.PaymentIntentID,
		Status:           d.Request.Status,
		Timestamp:        d.Request.Timestamp,
		ServiceName:      d.ServiceName,
		RequestID:        d.RequestID,
		WebhookTimestamp: d.Timestamp,
		Signature:        d.Signature,
		RawData:          d.RawBody,
		ProcessedAt:      &now,
	}

	err := s.repo.WithinTransaction(ctx, func(tx RepositoryAPI) error {
		if err := tx.CreateWebhook(ctx, record); err != nil {
			return fmt.Errorf("insert webhook audit row: %w", err)
		}
		return s.applyTransition(ctx, tx, record, d.Request)
	})
	if err != nil {
		s.logger.Error("webhook reconciliation failed",
			"error", err,
			"event_type", d.Request.EventType,
			"payment_intent_id", d.Request.PaymentIntentID,
			"request_id", d.RequestID)
		return nil, err
	}

	s.publishEvents(ctx, record, d.Request)

	s.logger.Info("webhook processed",
		"webhook_id", record.ID,
		"event_type", record.EventType,
		"payment_intent_id", record.PaymentIntentID,
		"request_id", record.RequestID)

	return record, nil
}

func (s *Service) applyTransition(ctx context.Context, tx RepositoryAPI, record *webhookmodel.PaymentWebhook, req *WebhookRequest) error {
	switch req.EventType {
	case webhookmodel.EventPaymentCompleted:
		return s.handleCompleted(ctx, tx, record, req)
	case webhookmodel.EventPaymentFailed:
		return s.handleFailed(ctx, tx, record, req)
	case webhookmodel.EventPaymentCanceled:
		return s.handleCanceled(ctx, tx, record, req)
	default:
		s.logger.Warn("unknown webhook event type, audit row kept",
			"event_type", req.EventType,
			"payment_intent_id", req.PaymentIntentID)
		return nil
	}
}

func (s *Service) handleCompleted(ctx context.Context, tx RepositoryAPI, record *webhookmodel.PaymentWebhook, req *WebhookRequest) error {
	data := req.Data
	if data == nil || (data.TemplateID == nil && data.EventID == nil) {
		s.logger.Warn("completed event without template or event reference, nothing to reconcile",
			"payment_intent_id", req.PaymentIntentID)
		return nil
	}

	completedAt := time.Now().UTC()
	if data.CompletedAt != "" {
		if t, err := time.Parse(time.RFC3339, data.CompletedAt); err == nil {
			completedAt = t.UTC()
		}
	}

	rows, err := tx.CompletePayment(ctx, data.PaymentServiceID, record.ID, completedAt)
	if err != nil {
		return fmt.Errorf("mark payment completed: %w", err)
	}
	if rows == 0 {
		// Replayed delivery or unknown payment: the pending filter missed.
		s.logger.Info("no pending payment matched completed event",
			"payment_service_id", data.PaymentServiceID,
			"payment_intent_id", req.PaymentIntentID)
	}

	if data.TemplateID == nil {
		return nil
	}

	userID, ok, err := s.resolvePurchaser(ctx, tx, data)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("template purchase skipped, purchaser could not be resolved",
			"payment_service_id", data.PaymentServiceID,
			"template_id", *data.TemplateID)
		return nil
	}

	if err := tx.UpsertTemplatePurchase(ctx, userID, *data.TemplateID, record.ID); err != nil {
		return fmt.Errorf("grant template entitlement: %w", err)
	}

	return nil
}

// resolvePurchaser finds the user an entitlement belongs to. The body's
// user_id wins; otherwise the payment row is consulted. A grant is never
// attributed to a guessed principal.
func (s *Service) resolvePurchaser(ctx context.Context, tx RepositoryAPI, data *WebhookData) (int64, bool, error) {
	if data.UserID != nil {
		return *data.UserID, true, nil
	}

	p, err := tx.GetPaymentByServiceID(ctx, data.PaymentServiceID)
	if err != nil {
		return 0, false, fmt.Errorf("look up payment for purchaser: %w", err)
	}
	if p == nil || p.UserID == nil {
		return 0, false, nil
	}
	return *p.UserID, true, nil
}

func (s *Service) handleFailed(ctx context.Context, tx RepositoryAPI, record *webhookmodel.PaymentWebhook, req *WebhookRequest) error {
	errorMessage := "Payment failed"
	var paymentServiceID string
	if req.Data != nil {
		paymentServiceID = req.Data.PaymentServiceID
		if req.Data.ErrorMessage != "" {
			errorMessage = req.Data.ErrorMessage
		}
	}

	rows, err := tx.FailPayment(ctx, paymentServiceID, record.ID, errorMessage)
	if err != nil {
		return fmt.Errorf("mark payment failed: %w", err)
	}
	if rows == 0 {
		s.logger.Info("no pending payment matched failed event",
			"payment_service_id", paymentServiceID,
			"payment_intent_id", req.PaymentIntentID)
	}
	return nil
}

func (s *Service) handleCanceled(ctx context.Context, tx RepositoryAPI, record *webhookmodel.PaymentWebhook, req *WebhookRequest) error {
	var paymentServiceID string
	if req.Data != nil {
		paymentServiceID = req.Data.PaymentServiceID
	}

	rows, err := tx.CancelPayment(ctx, paymentServiceID, record.ID)
	if err != nil {
		return fmt.Errorf("mark payment canceled: %w", err)
	}
	if rows == 0 {
		s.logger.Info("no pending payment matched canceled event",
			"payment_service_id", paymentServiceID,
			"payment_intent_id", req.PaymentIntentID)
	}
	return nil
}

// publishEvents notifies in-process subscribers after the transaction has
// committed, so a slow subscriber can never roll back a reconciliation.
func (s *Service) publishEvents(ctx context.Context, record *webhookmodel.PaymentWebhook, req *WebhookRequest) {
	if s.eventBus == nil {
		return
	}

	var paymentServiceID string
	var templateID, userID *int64
	if req.Data != nil {
		paymentServiceID = req.Data.PaymentServiceID
		templateID = req.Data.TemplateID
		userID = req.Data.UserID
	}

	switch req.EventType {
	case webhookmodel.EventPaymentCompleted:
		s.eventBus.Publish(ctx, events.NewPaymentCompletedEvent(record.ID, paymentServiceID, req.PaymentIntentID, templateID, userID))
	case webhookmodel.EventPaymentFailed:
		errorMessage := "Payment failed"
		if req.Data != nil && req.Data.ErrorMessage != "" {
			errorMessage = req.Data.ErrorMessage
		}
		s.eventBus.Publish(ctx, events.NewPaymentFailedEvent(record.ID, paymentServiceID, req.PaymentIntentID, errorMessage))
	case webhookmodel.EventPaymentCanceled:
		s.eventBus.Publish(ctx, events.NewPaymentCanceledEvent(record.ID, paymentServiceID, req.PaymentIntentID))
	}
}
