package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/planora/core-service/internal/core/datamodel/payment"
	"github.com/planora/core-service/internal/core/datamodel/purchase"
	webhookmodel "github.com/planora/core-service/internal/core/datamodel/webhook"
	webhookpkg "github.com/planora/core-service/internal/webhook"
)

type WebhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) webhookpkg.RepositoryAPI {
	return &WebhookRepository{
		db: db,
	}
}

// WithinTransaction runs fn with a repository bound to one transaction.
// An error from fn rolls everything back, including the audit row.
func (r *WebhookRepository) WithinTransaction(ctx context.Context, fn func(webhookpkg.RepositoryAPI) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&WebhookRepository{db: tx})
	})
}

func (r *WebhookRepository) CreateWebhook(ctx context.Context, rec *webhookmodel.PaymentWebhook) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *WebhookRepository) GetPaymentByServiceID(ctx context.Context, paymentServiceID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("payment_service_id = ?", paymentServiceID).First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *WebhookRepository) CompletePayment(ctx context.Context, paymentServiceID string, webhookID int64, completedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("payment_service_id = ? AND status = ?", paymentServiceID, payment.StatusPending).
		Updates(map[string]interface{}{
			"status":       payment.StatusCompleted,
			"completed_at": completedAt,
			"webhook_id":   webhookID,
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *WebhookRepository) FailPayment(ctx context.Context, paymentServiceID string, webhookID int64, errorMessage string) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("payment_service_id = ? AND status = ?", paymentServiceID, payment.StatusPending).
		Updates(map[string]interface{}{
			"status":        payment.StatusFailed,
			"failed_at":     now,
			"error_message": errorMessage,
			"webhook_id":    webhookID,
			"updated_at":    now,
		})
	return res.RowsAffected, res.Error
}

func (r *WebhookRepository) CancelPayment(ctx context.Context, paymentServiceID string, webhookID int64) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&payment.Payment{}).
		Where("payment_service_id = ? AND status = ?", paymentServiceID, payment.StatusPending).
		Updates(map[string]interface{}{
			"status":      payment.StatusCanceled,
			"canceled_at": now,
			"webhook_id":  webhookID,
			"updated_at":  now,
		})
	return res.RowsAffected, res.Error
}

// UpsertTemplatePurchase grants the entitlement, refreshing purchase_date
// and webhook_id when the (user_id, template_id) row already exists.
func (r *WebhookRepository) UpsertTemplatePurchase(ctx context.Context, userID, templateID, webhookID int64) error {
	row := &purchase.UserTemplatePurchase{
		UserID:       userID,
		TemplateID:   templateID,
		PurchaseDate: time.Now().UTC(),
		WebhookID:    &webhookID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "template_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"purchase_date": row.PurchaseDate,
			"webhook_id":    webhookID,
		}),
	}).Create(row).Error
}
