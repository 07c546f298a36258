// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitpay/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("already exists")

	// ErrStatusChanged is returned when a conditional status update finds
	// the row in a different status than expected.
	ErrStatusChanged = errors.New("status changed")
)

// BillStore persists bills, their participants and the slug-to-owner
// mirror used for visibility checks.
type BillStore interface {
	// CreateBill persists a bill and its participants atomically.
	// ID, CreatedAt and participant IDs are filled in when empty.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill retrieves a bill with its participants.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// GetBillBySlug retrieves a bill with its participants by slug.
	GetBillBySlug(ctx context.Context, slug string) (*models.Bill, error)

	// ListOwnership returns the ownership rows for ownerID.
	ListOwnership(ctx context.Context, ownerID string) ([]models.Ownership, error)

	// TransitionBillStatus moves a bill from one status to another in a
	// single statement. It returns ErrStatusChanged when the bill exists
	// but is no longer in status from.
	TransitionBillStatus(ctx context.Context, billID string, from, to models.BillStatus) error
}

// ChannelStore persists payout channels. An owner has at most one default.
type ChannelStore interface {
	// CreateChannel persists a channel. The owner's first channel becomes
	// the default regardless of ch.IsDefault.
	CreateChannel(ctx context.Context, ch *models.Channel) error

	ListChannels(ctx context.Context, ownerID string) ([]models.Channel, error)
	GetChannel(ctx context.Context, ownerID, channelID string) (*models.Channel, error)
	GetDefaultChannel(ctx context.Context, ownerID string) (*models.Channel, error)

	// SetDefaultChannel makes channelID the owner's only default channel.
	SetDefaultChannel(ctx context.Context, ownerID, channelID string) error
}

// PaymentEventStore keeps the log of webhook notifications.
type PaymentEventStore interface {
	RecordPaymentEvent(ctx context.Context, event *models.PaymentEvent) error

	// ListPaymentEvents returns events whose reference equals reference or
	// whose attempt ID is in attemptIDs, newest first.
	ListPaymentEvents(ctx context.Context, reference string, attemptIDs []string) ([]models.PaymentEvent, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Store is the full storage surface used by the server.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	BillStore
	ChannelStore
	PaymentEventStore
	UserStore

	// Close releases any resources held by the store.
	Close() error
}
