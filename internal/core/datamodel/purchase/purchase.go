package purchase

import (
	"time"
)

// UserTemplatePurchase is an entitlement grant: the user has paid for a
// marketplace template. (user_id, template_id) is unique; replayed
// completed webhooks refresh purchase_date and webhook_id in place.
type UserTemplatePurchase struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       int64     `gorm:"column:user_id;not null;uniqueIndex:idx_user_template"`
	TemplateID   int64     `gorm:"column:template_id;not null;uniqueIndex:idx_user_template"`
	PurchaseDate time.Time `gorm:"column:purchase_date;default:now()"`
	WebhookID    *int64    `gorm:"column:webhook_id"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
}

func (UserTemplatePurchase) TableName() string {
	return "user_template_purchases"
}
