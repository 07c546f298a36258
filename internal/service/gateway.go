package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/payments"
)

// PaymentGateway is the slice of the payments platform the services use.
// *payments.Client implements it.
//
//go:generate mockgen -destination=mocks/mock_gateway.go -source=gateway.go PaymentGateway
type PaymentGateway interface {
	CreateAccount(ctx context.Context, slug, name string, goal decimal.Decimal) (string, error)
	ListAccounts(ctx context.Context) ([]models.ExternalAccount, error)
	ListAttempts(ctx context.Context, accountID, reference string) ([]models.PaymentAttempt, error)
	CreateChannel(ctx context.Context, displayID, name string) (string, error)
	Charge(ctx context.Context, req payments.ChargeRequest) (string, error)
	Payout(ctx context.Context, req payments.PayoutRequest) error
}

var _ PaymentGateway = (*payments.Client)(nil)
