package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentAttempt is a payment record owned by the payments platform.
// This service only reads these; it never writes status transitions.
type PaymentAttempt struct {
	ID string

	// PhoneNumber is the payer's number as reported by the platform.
	// It may be in any local or international format.
	PhoneNumber string

	Amount decimal.Decimal

	// RawStatus is the platform-specific status string (SUCCESS, FAILED, ...).
	RawStatus string

	// BillReference matches Bill.Slug (or Bill.ID on older records).
	BillReference string

	// PayerName is a best-effort display name pulled from loose metadata.
	PayerName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExternalAccount is the platform's record of a bill.
type ExternalAccount struct {
	ID      string
	Slug    string
	Name    string
	Goal    decimal.Decimal
	Balance decimal.Decimal
	Status  string
}

// PaymentEvent is an inbound webhook notification about one attempt.
// Recorded events take precedence over polled attempt status.
type PaymentEvent struct {
	ID             string
	AttemptID      string
	BillReference  string
	RawStatus      string
	PhoneNumber    string
	Amount         decimal.Decimal
	SignatureValid bool
	Payload        string
	ReceivedAt     int64
}
