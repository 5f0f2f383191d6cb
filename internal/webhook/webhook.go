package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/planora/core-service/internal/core/datamodel/payment"
	webhookmodel "github.com/planora/core-service/internal/core/datamodel/webhook"
)

// Required headers on every delivery from the payment service.
const (
	HeaderSignature   = "X-Webhook-Signature"
	HeaderServiceName = "X-Service-Name"
	HeaderRequestID   = "X-Request-ID"
	HeaderTimestamp   = "X-Timestamp"
)

// PeerServiceName is the identity the payment service asserts via
// X-Service-Name; the HMAC signature proves it.
const PeerServiceName = "payment-service"

// Delivery bundles one inbound webhook: the decoded body, the raw bytes it
// was decoded from (the HMAC is computed over these exact bytes), and the
// header envelope.
type Delivery struct {
	Request     *WebhookRequest
	RawBody     json.RawMessage
	RequestID   string
	Timestamp   string
	Signature   string
	ServiceName string
}

// ServiceAPI is what the HTTP handler needs from the reconciler.
type ServiceAPI interface {
	Process(ctx context.Context, d *Delivery) (*webhookmodel.PaymentWebhook, error)
}

// RepositoryAPI is the persistence surface of the reconciliation pipeline.
// WithinTransaction hands the callback a repository bound to the open
// transaction; every write inside the callback commits or rolls back
// atomically.
type RepositoryAPI interface {
	WithinTransaction(ctx context.Context, fn func(RepositoryAPI) error) error

	CreateWebhook(ctx context.Context, rec *webhookmodel.PaymentWebhook) error
	GetPaymentByServiceID(ctx context.Context, paymentServiceID string) (*payment.Payment, error)

	// The three transitions are filtered on status='pending' and report
	// rows affected, so replayed deliveries degrade to no-ops.
	CompletePayment(ctx context.Context, paymentServiceID string, webhookID int64, completedAt time.Time) (int64, error)
	FailPayment(ctx context.Context, paymentServiceID string, webhookID int64, errorMessage string) (int64, error)
	CancelPayment(ctx context.Context, paymentServiceID string, webhookID int64) (int64, error)

	UpsertTemplatePurchase(ctx context.Context, userID, templateID, webhookID int64) error
}
