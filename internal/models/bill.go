package models

import "github.com/shopspring/decimal"

// BillStatus is the lifecycle state of a bill.
type BillStatus string

const (
	BillStatusActive    BillStatus = "active"
	BillStatusPending   BillStatus = "pending" // payout in flight
	BillStatusCompleted BillStatus = "completed"
)

// Bill represents a collection request with a monetary goal.
// It is created together with its participants and is never deleted.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string

	// Slug is the short, shareable identifier. It is also the payment
	// reference sent to the platform, so it stays within 12 characters.
	Slug string

	// Name is the human-readable name for the bill.
	Name string

	// Goal is the target amount. Always positive.
	Goal decimal.Decimal

	// OwnerID is the user who created the bill.
	OwnerID string

	// Status is one of active, pending or completed. A bill is pending
	// only while its settlement payout is in flight.
	Status BillStatus

	// ExternalAccountID is the platform account backing this bill.
	ExternalAccountID string

	// Participants are the people expected to pay.
	Participants []Participant

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64
}

// Participant is a person owing a share of a bill.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string

	// BillID is the owning bill. A participant cannot outlive it.
	BillID string

	Name string

	// PhoneNumber is stored normalized (254XXXXXXXXX).
	PhoneNumber string

	// TargetAmount is this participant's share. Never negative.
	TargetAmount decimal.Decimal
}

// Ownership is one row of the local ownership mirror.
// It answers "does user X own bill Y" without trusting the platform.
type Ownership struct {
	Slug    string
	OwnerID string
	BillID  string
	Name    string
	Goal    decimal.Decimal
}
