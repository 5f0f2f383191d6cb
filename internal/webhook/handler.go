package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/planora/core-service/internal"
	"github.com/planora/core-service/internal/transport"
)

// Handler terminates POST /api/internal/payment-webhook. Envelope and
// signature checks short-circuit before any database connection is touched.
type Handler struct {
	*transport.BaseHandler
	verifier *SignatureVerifier
	service  ServiceAPI
	logger   *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, verifier *SignatureVerifier, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		verifier:    verifier,
		service:     service,
		logger:      logger,
	}
}

func (h *Handler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil || len(rawBody) == 0 {
		h.logger.Error("webhook body missing or unreadable", "error", err)
		h.HandleError(w, errors.ErrInvalidFormat)
		return
	}

	signature := r.Header.Get(HeaderSignature)
	serviceName := r.Header.Get(HeaderServiceName)
	requestID := r.Header.Get(HeaderRequestID)
	timestamp := r.Header.Get(HeaderTimestamp)

	if signature == "" || requestID == "" || timestamp == "" || serviceName != PeerServiceName {
		h.logger.Warn("webhook envelope rejected",
			"service_name", serviceName,
			"has_signature", signature != "",
			"has_request_id", requestID != "",
			"has_timestamp", timestamp != "")
		h.HandleError(w, errors.ErrInvalidSignature)
		return
	}

	var req WebhookRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		h.logger.Error("webhook body is not valid JSON", "error", err, "request_id", requestID)
		h.HandleError(w, errors.ErrInvalidFormat)
		return
	}

	if err := req.Validate(); err != nil {
		h.logger.Warn("webhook body missing required fields",
			"error", err,
			"request_id", requestID)
		h.HandleError(w, err)
		return
	}

	if !h.verifier.Verify(rawBody, signature) {
		h.logger.Warn("webhook signature mismatch",
			"request_id", requestID,
			"payment_intent_id", req.PaymentIntentID)
		h.HandleError(w, errors.ErrInvalidSignature)
		return
	}

	h.logger.Info("webhook accepted",
		"event_type", req.EventType,
		"payment_intent_id", req.PaymentIntentID,
		"request_id", requestID)

	ctx := errors.ContextWithRequestID(r.Context(), requestID)
	record, err := h.service.Process(ctx, &Delivery{
		Request:     &req,
		RawBody:     rawBody,
		RequestID:   requestID,
		Timestamp:   timestamp,
		Signature:   signature,
		ServiceName: serviceName,
	})
	if err != nil {
		h.HandleError(w, errors.NewInternalError("failed to process webhook", err))
		return
	}

	h.Response.OK(w, "Webhook processed", WebhookResponse{
		WebhookID:   record.ID,
		ProcessedAt: *record.ProcessedAt,
	})
}
