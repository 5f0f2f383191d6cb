package payment

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// Payment is keyed by payment_service_id, the identity owned by the peer
// payment service. The webhook pipeline only ever moves a row out of
// pending; the three terminal states are final.
type Payment struct {
	ID               int64      `gorm:"primaryKey"`
	PaymentServiceID string     `gorm:"column:payment_service_id;not null;uniqueIndex"`
	UserID           *int64     `gorm:"column:user_id"`
	EventID          *int64     `gorm:"column:event_id"`
	Amount           int64      `gorm:"column:amount;not null"`
	Currency         string     `gorm:"column:currency;default:XOF"`
	Gateway          string     `gorm:"column:gateway"`
	Status           string     `gorm:"column:status;default:pending"`
	ErrorMessage     *string    `gorm:"column:error_message"`
	WebhookID        *int64     `gorm:"column:webhook_id"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	FailedAt         *time.Time `gorm:"column:failed_at"`
	CanceledAt       *time.Time `gorm:"column:canceled_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;default:now()"`
}

func (Payment) TableName() string {
	return "payments"
}
