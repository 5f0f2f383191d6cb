package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentCanceled  = "payment.canceled"
)

type PaymentCompletedEvent struct {
	BaseEvent
	WebhookID        int64  `json:"webhook_id"`
	PaymentServiceID string `json:"payment_service_id"`
	PaymentIntentID  string `json:"payment_intent_id"`
	TemplateID       *int64 `json:"template_id,omitempty"`
	UserID           *int64 `json:"user_id,omitempty"`
}

func NewPaymentCompletedEvent(webhookID int64, paymentServiceID, paymentIntentID string, templateID, userID *int64) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"webhook_id":         webhookID,
				"payment_service_id": paymentServiceID,
				"payment_intent_id":  paymentIntentID,
			},
		},
		WebhookID:        webhookID,
		PaymentServiceID: paymentServiceID,
		PaymentIntentID:  paymentIntentID,
		TemplateID:       templateID,
		UserID:           userID,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	WebhookID        int64  `json:"webhook_id"`
	PaymentServiceID string `json:"payment_service_id"`
	PaymentIntentID  string `json:"payment_intent_id"`
	ErrorMessage     string `json:"error_message"`
}

func NewPaymentFailedEvent(webhookID int64, paymentServiceID, paymentIntentID, errorMessage string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"webhook_id":         webhookID,
				"payment_service_id": paymentServiceID,
				"payment_intent_id":  paymentIntentID,
				"error_message":      errorMessage,
			},
		},
		WebhookID:        webhookID,
		PaymentServiceID: paymentServiceID,
		PaymentIntentID:  paymentIntentID,
		ErrorMessage:     errorMessage,
	}
}

type PaymentCanceledEvent struct {
	BaseEvent
	WebhookID        int64  `json:"webhook_id"`
	PaymentServiceID string `json:"payment_service_id"`
	PaymentIntentID  string `json:"payment_intent_id"`
}

func NewPaymentCanceledEvent(webhookID int64, paymentServiceID, paymentIntentID string) *PaymentCanceledEvent {
	return &PaymentCanceledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCanceled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"webhook_id":         webhookID,
				"payment_service_id": paymentServiceID,
				"payment_intent_id":  paymentIntentID,
			},
		},
		WebhookID:        webhookID,
		PaymentServiceID: paymentServiceID,
		PaymentIntentID:  paymentIntentID,
	}
}
