package webhook

import (
	"encoding/json"
	"time"
)

// PaymentWebhook is the immutable audit row written for every accepted
// delivery. Rows are created inside the reconciliation transaction and
// never updated or deleted afterwards.
type PaymentWebhook struct {
	ID               int64           `gorm:"primaryKey"`
	EventType        string          `gorm:"column:event_type;not null"`
	PaymentIntentID  string          `gorm:"column:payment_intent_id;not null"`
	Status           string          `gorm:"column:status;not null"`
	Timestamp        string          `gorm:"column:timestamp"`
	ServiceName      string          `gorm:"column:service_name;not null"`
	RequestID        string          `gorm:"column:request_id;not null;uniqueIndex"`
	WebhookTimestamp string          `gorm:"column:webhook_timestamp"`
	Signature        string          `gorm:"column:signature"`
	RawData          json.RawMessage `gorm:"column:raw_data;type:jsonb"`
	CreatedAt        time.Time       `gorm:"column:created_at;default:now()"`
	ProcessedAt      *time.Time      `gorm:"column:processed_at"`
}

func (PaymentWebhook) TableName() string {
	return "payment_webhooks"
}

const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentCanceled  = "payment.canceled"
)
