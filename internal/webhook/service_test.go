package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/planora/core-service/internal/core/datamodel/payment"
	webhookmodel "github.com/planora/core-service/internal/core/datamodel/webhook"
	"github.com/planora/core-service/internal/core/events"
	webhookpkg "github.com/planora/core-service/internal/webhook"
)

type purchaseGrant struct {
	userID     int64
	templateID int64
	webhookID  int64
}

// mockRepository records every write and simulates the pending filter of the
// real transitions: rows affected is 1 only while the payment is pending.
type mockRepository struct {
	webhooks  []*webhookmodel.PaymentWebhook
	payments  map[string]*payment.Payment
	purchases []purchaseGrant

	createError     error
	transitionError error
	lookupError     error
	upsertError     error

	rolledBack bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{payments: map[string]*payment.Payment{}}
}

func (m *mockRepository) WithinTransaction(ctx context.Context, fn func(webhookpkg.RepositoryAPI) error) error {
	before := len(m.webhooks)
	if err := fn(m); err != nil {
		// Undo the audit insert, the way a real rollback would.
		m.webhooks = m.webhooks[:before]
		m.rolledBack = true
		return err
	}
	return nil
}

func (m *mockRepository) CreateWebhook(ctx context.Context, rec *webhookmodel.PaymentWebhook) error {
	if m.createError != nil {
		return m.createError
	}
	rec.ID = int64(len(m.webhooks) + 1)
	m.webhooks = append(m.webhooks, rec)
	return nil
}

func (m *mockRepository) GetPaymentByServiceID(ctx context.Context, paymentServiceID string) (*payment.Payment, error) {
	if m.lookupError != nil {
		return nil, m.lookupError
	}
	return m.payments[paymentServiceID], nil
}

func (m *mockRepository) transition(paymentServiceID, status string, webhookID int64, apply func(*payment.Payment)) (int64, error) {
	if m.transitionError != nil {
		return 0, m.transitionError
	}
	p, ok := m.payments[paymentServiceID]
	if !ok || p.Status != payment.StatusPending {
		return 0, nil
	}
	p.Status = status
	p.WebhookID = &webhookID
	apply(p)
	return 1, nil
}

func (m *mockRepository) CompletePayment(ctx context.Context, paymentServiceID string, webhookID int64, completedAt time.Time) (int64, error) {
	return m.transition(paymentServiceID, payment.StatusCompleted, webhookID, func(p *payment.Payment) {
		p.CompletedAt = &completedAt
	})
}

func (m *mockRepository) FailPayment(ctx context.Context, paymentServiceID string, webhookID int64, errorMessage string) (int64, error) {
	return m.transition(paymentServiceID, payment.StatusFailed, webhookID, func(p *payment.Payment) {
		p.ErrorMessage = &errorMessage
	})
}

func (m *mockRepository) CancelPayment(ctx context.Context, paymentServiceID string, webhookID int64) (int64, error) {
	return m.transition(paymentServiceID, payment.StatusCanceled, webhookID, func(p *payment.Payment) {})
}

func (m *mockRepository) UpsertTemplatePurchase(ctx context.Context, userID, templateID, webhookID int64) error {
	if m.upsertError != nil {
		return m.upsertError
	}
	for i := range m.purchases {
		if m.purchases[i].userID == userID && m.purchases[i].templateID == templateID {
			m.purchases[i].webhookID = webhookID
			return nil
		}
	}
	m.purchases = append(m.purchases, purchaseGrant{userID: userID, templateID: templateID, webhookID: webhookID})
	return nil
}

var _ = Describe("WebhookService", func() {
	var (
		service *webhookpkg.Service
		repo    *mockRepository
		ctx     context.Context
	)

	int64Ptr := func(v int64) *int64 { return &v }

	pendingPayment := func(serviceID string, userID *int64) *payment.Payment {
		return &payment.Payment{
			ID:               int64(len(repo.payments) + 1),
			PaymentServiceID: serviceID,
			Status:           payment.StatusPending,
			UserID:           userID,
		}
	}

	delivery := func(eventType string, data *webhookpkg.WebhookData) *webhookpkg.Delivery {
		req := &webhookpkg.WebhookRequest{
			EventType:       eventType,
			PaymentIntentID: "pi_test",
			Status:          "succeeded",
			Timestamp:       "2026-01-01T00:00:00Z",
			Data:            data,
		}
		raw, _ := json.Marshal(req)
		return &webhookpkg.Delivery{
			Request:     req,
			RawBody:     raw,
			RequestID:   "req-process-1",
			Timestamp:   "2026-01-01T00:00:01Z",
			Signature:   "sig",
			ServiceName: webhookpkg.PeerServiceName,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = webhookpkg.NewService(repo, events.NewEventBus(lg), lg)
	})

	Describe("Process", func() {
		Context("when a completed event matches a pending payment", func() {
			It("should insert the audit row, complete the payment, and grant the template", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", nil)

				record, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					TemplateID:       int64Ptr(42),
					UserID:           int64Ptr(7),
					CompletedAt:      "2026-01-01T00:00:00Z",
				}))

				Expect(err).ToNot(HaveOccurred())
				Expect(record.ID).To(Equal(int64(1)))
				Expect(record.ProcessedAt).ToNot(BeNil())
				Expect(repo.webhooks).To(HaveLen(1))

				p := repo.payments["ps_1"]
				Expect(p.Status).To(Equal(payment.StatusCompleted))
				Expect(p.WebhookID).To(HaveValue(Equal(record.ID)))
				Expect(p.CompletedAt.UTC()).To(Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

				Expect(repo.purchases).To(ConsistOf(purchaseGrant{userID: 7, templateID: 42, webhookID: record.ID}))
			})
		})

		Context("when the same event arrives twice", func() {
			It("should keep a second audit row but leave the payment untouched", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", int64Ptr(7))

				first, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					TemplateID:       int64Ptr(42),
				}))
				Expect(err).ToNot(HaveOccurred())

				replay := delivery(webhookmodel.EventPaymentCompleted, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					TemplateID:       int64Ptr(42),
				})
				replay.RequestID = "req-process-2"
				second, err := service.Process(ctx, replay)

				Expect(err).ToNot(HaveOccurred())
				Expect(repo.webhooks).To(HaveLen(2))
				Expect(repo.payments["ps_1"].WebhookID).To(HaveValue(Equal(first.ID)))
				Expect(second.ID).ToNot(Equal(first.ID))
				Expect(repo.purchases).To(HaveLen(1))
			})
		})

		Context("when resolving the purchaser", func() {
			It("should fall back to the payment row when the body omits user_id", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", int64Ptr(31))

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					TemplateID:       int64Ptr(42),
				}))

				Expect(err).ToNot(HaveOccurred())
				Expect(repo.purchases).To(ConsistOf(purchaseGrant{userID: 31, templateID: 42, webhookID: int64(1)}))
			})

			It("should skip the grant when no purchaser can be resolved", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", nil)

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					TemplateID:       int64Ptr(42),
				}))

				Expect(err).ToNot(HaveOccurred())
				Expect(repo.purchases).To(BeEmpty())
				Expect(repo.payments["ps_1"].Status).To(Equal(payment.StatusCompleted))
			})
		})

		Context("when a completed event carries no template or event reference", func() {
			It("should keep the audit row and touch nothing else", func() {
				record, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, nil))

				Expect(err).ToNot(HaveOccurred())
				Expect(record.ID).To(Equal(int64(1)))
				Expect(repo.purchases).To(BeEmpty())
			})
		})

		Context("when a failed event arrives", func() {
			It("should record the gateway's error message", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", nil)

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentFailed, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					ErrorMessage:     "card_declined",
				}))

				Expect(err).ToNot(HaveOccurred())
				p := repo.payments["ps_1"]
				Expect(p.Status).To(Equal(payment.StatusFailed))
				Expect(p.ErrorMessage).To(HaveValue(Equal("card_declined")))
			})

			It("should default the error message when the body has none", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", nil)

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentFailed, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
				}))

				Expect(err).ToNot(HaveOccurred())
				Expect(repo.payments["ps_1"].ErrorMessage).To(HaveValue(Equal("Payment failed")))
			})
		})

		Context("when a canceled event arrives", func() {
			It("should cancel the pending payment", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", nil)

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCanceled, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
				}))

				Expect(err).ToNot(HaveOccurred())
				Expect(repo.payments["ps_1"].Status).To(Equal(payment.StatusCanceled))
			})
		})

		Context("when the event type is unknown", func() {
			It("should commit the audit row and change no payment", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", nil)

				record, err := service.Process(ctx, delivery("payment.refunded", &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
				}))

				Expect(err).ToNot(HaveOccurred())
				Expect(record.ID).To(Equal(int64(1)))
				Expect(repo.payments["ps_1"].Status).To(Equal(payment.StatusPending))
			})
		})

		Context("when a write inside the transaction fails", func() {
			It("should roll back the audit row on insert failure", func() {
				repo.createError = errors.New("unique constraint violated")

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, nil))

				Expect(err).To(HaveOccurred())
				Expect(repo.webhooks).To(BeEmpty())
				Expect(repo.rolledBack).To(BeTrue())
			})

			It("should roll back the audit row when the transition fails", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", nil)
				repo.transitionError = errors.New("deadlock detected")

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					TemplateID:       int64Ptr(42),
				}))

				Expect(err).To(HaveOccurred())
				Expect(repo.webhooks).To(BeEmpty())
			})

			It("should roll back when the entitlement grant fails", func() {
				repo.payments["ps_1"] = pendingPayment("ps_1", int64Ptr(7))
				repo.upsertError = errors.New("foreign key violation")

				_, err := service.Process(ctx, delivery(webhookmodel.EventPaymentCompleted, &webhookpkg.WebhookData{
					PaymentServiceID: "ps_1",
					TemplateID:       int64Ptr(42),
				}))

				Expect(err).To(HaveOccurred())
				Expect(repo.webhooks).To(BeEmpty())
			})
		})
	})
})
