package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitpay/internal/models"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Signature"

var ErrInvalidWebhook = errors.New("invalid webhook payload")

// Webhook is a payment status notification pushed by the platform.
type Webhook struct {
	AttemptID string
	Status    string
	Reference string
	TxnID     string
	Phone     string
	Amount    decimal.Decimal
}

// ParseWebhook decodes a notification. The phone is taken from the first
// of phone, data.phone, data.customer_no and idata.customer_no that is set.
func ParseWebhook(body []byte) (Webhook, error) {
	rec, ok := decodeRecord(body)
	if !ok {
		return Webhook{}, ErrInvalidWebhook
	}

	w := Webhook{
		AttemptID: firstString(rec, []string{"id"}, []string{"data", "id"}),
		Status:    stringAt(rec, "status"),
		Reference: firstString(rec, []string{"reference"}, []string{"data", "reference"}),
		TxnID:     stringAt(rec, "txn_id"),
		Phone: firstString(rec,
			[]string{"phone"},
			[]string{"data", "phone"},
			[]string{"data", "customer_no"},
			[]string{"idata", "customer_no"},
		),
		Amount: firstAmount(rec, []string{"amount"}, []string{"data", "amount"}),
	}
	if w.AttemptID == "" {
		w.AttemptID = w.TxnID
	}
	if w.AttemptID == "" || w.Status == "" {
		return Webhook{}, ErrInvalidWebhook
	}
	return w, nil
}

// Event converts the notification into a log entry.
func (w Webhook) Event(payload []byte, signatureValid bool, received time.Time) *models.PaymentEvent {
	return &models.PaymentEvent{
		AttemptID:      w.AttemptID,
		BillReference:  w.Reference,
		RawStatus:      w.Status,
		PhoneNumber:    w.Phone,
		Amount:         w.Amount,
		SignatureValid: signatureValid,
		Payload:        string(payload),
		ReceivedAt:     received.Unix(),
	}
}

// VerifySignature checks a hex HMAC-SHA256 of payload under secret.
func VerifySignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret = strings.TrimSpace(secret)
	if sig == "" || secret == "" {
		return false
	}
	sig = strings.TrimPrefix(strings.ToLower(sig), "sha256=")

	decoded, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decoded)
}

// Sign returns the signature VerifySignature expects.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
