package service

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/splitpay/internal/httpx"
	"github.com/mmynk/splitpay/internal/metrics"
	"github.com/mmynk/splitpay/internal/payments"
	"github.com/mmynk/splitpay/internal/storage"
)

// maxWebhookBody caps how much of a webhook request is read.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment status notifications from the platform
// and records them in the event log.
type WebhookHandler struct {
	events  storage.PaymentEventStore
	secret  string
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewWebhookHandler creates the handler. With an empty secret every
// notification is accepted as trusted.
func NewWebhookHandler(events storage.PaymentEventStore, secret string, m *metrics.Metrics, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		events:  events,
		secret:  secret,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.metrics.WebhookReceived("invalid")
		httpx.JSONError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	hook, err := payments.ParseWebhook(body)
	if err != nil {
		h.metrics.WebhookReceived("invalid")
		h.logger.Warn("Invalid webhook", "error", err)
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	valid := true
	if h.secret != "" {
		valid = payments.VerifySignature(body, r.Header.Get(payments.SignatureHeader), h.secret)
	}

	event := hook.Event(body, valid, h.now())
	if err := h.events.RecordPaymentEvent(r.Context(), event); err != nil {
		h.logger.Error("Failed to record webhook", "attempt_id", hook.AttemptID, "error", err)
		httpx.JSONError(w, http.StatusInternalServerError, "failed to record event")
		return
	}

	if !valid {
		// Kept for audit, but never used for reconciliation.
		h.metrics.WebhookReceived("rejected")
		h.logger.Warn("Webhook signature mismatch", "attempt_id", hook.AttemptID)
		httpx.JSONError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	h.metrics.WebhookReceived("accepted")
	h.logger.Info("Webhook recorded", "attempt_id", hook.AttemptID, "status", hook.Status, "reference", hook.Reference)
	httpx.OK(w)
}
