package webhook

import (
	"time"

	"github.com/planora/core-service/internal/core/common/validation"
)

// WebhookRequest is the payment lifecycle notification body sent by the
// payment service. Field names follow the peer's JSON contract.
type WebhookRequest struct {
	EventType       string       `json:"eventType"`
	PaymentIntentID string       `json:"paymentIntentId"`
	Status          string       `json:"status"`
	Timestamp       string       `json:"timestamp,omitempty"`
	Data            *WebhookData `json:"data,omitempty"`
}

// WebhookData carries the gateway context of the event. payment_service_id
// is the peer-owned key of the payments row to reconcile.
type WebhookData struct {
	Source           string  `json:"source,omitempty"`
	PaymentServiceID string  `json:"payment_service_id,omitempty"`
	Gateway          string  `json:"gateway,omitempty"`
	Amount           int64   `json:"amount,omitempty"`
	Currency         string  `json:"currency,omitempty"`
	CompletedAt      string  `json:"completed_at,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	TemplateID       *int64  `json:"template_id,omitempty"`
	EventID          *int64  `json:"event_id,omitempty"`
	TicketIDs        []int64 `json:"ticket_ids,omitempty"`
	UserID           *int64  `json:"user_id,omitempty"`
}

// Validate enforces the required body fields.
func (r *WebhookRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("eventType", r.EventType).Required()
	validator.Field("paymentIntentId", r.PaymentIntentID).Required()
	validator.Field("status", r.Status).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// WebhookResponse is the success payload: the id of the audit row written
// for this delivery and when it was processed.
type WebhookResponse struct {
	WebhookID   int64     `json:"webhookId"`
	ProcessedAt time.Time `json:"processedAt"`
}
