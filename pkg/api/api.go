// Package api defines the request and response messages of the splitpay.v1
// services. Messages travel as JSON; money fields are decimal strings.
package api

import "github.com/shopspring/decimal"

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=200"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Password    string `json:"password" validate:"required"`
}

type RegisterResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Participant is a person owing a share of a bill.
type Participant struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name" validate:"required,max=100"`
	PhoneNumber  string          `json:"phone_number" validate:"required,ke_phone"`
	TargetAmount decimal.Decimal `json:"target_amount" validate:"gte=0"`
}

type Bill struct {
	ID           string          `json:"id"`
	Slug         string          `json:"slug"`
	Name         string          `json:"name"`
	Goal         decimal.Decimal `json:"goal"`
	Status       string          `json:"status"`
	CreatedAt    int64           `json:"created_at"`
	Participants []Participant   `json:"participants,omitempty"`
}

type Progress struct {
	Goal       decimal.Decimal `json:"goal"`
	Collected  decimal.Decimal `json:"collected"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percent    decimal.Decimal `json:"percent"`
	IsComplete bool            `json:"is_complete"`
}

// Attempt is one payment attempt as reported by the platform.
type Attempt struct {
	ID          string          `json:"id"`
	PhoneNumber string          `json:"phone_number"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	RawStatus   string          `json:"raw_status"`
	PayerName   string          `json:"payer_name,omitempty"`
	CreatedAt   int64           `json:"created_at"`
	UpdatedAt   int64           `json:"updated_at"`
}

// ParticipantProgress is one row of the tracking view. Latest is nil until
// the participant has made an attempt.
type ParticipantProgress struct {
	Participant Participant     `json:"participant"`
	Status      string          `json:"status"`
	Paid        decimal.Decimal `json:"paid"`
	Attempts    int             `json:"attempts"`
	Latest      *Attempt        `json:"latest,omitempty"`
}

type Summary struct {
	Progress     Progress              `json:"progress"`
	Participants []ParticipantProgress `json:"participants"`
	Unmatched    []Attempt             `json:"unmatched,omitempty"`
}

type CreateBillRequest struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Goal         decimal.Decimal `json:"goal" validate:"gt=0"`
	Participants []Participant   `json:"participants" validate:"required,min=1,dive"`
}

type CreateBillResponse struct {
	Bill *Bill `json:"bill"`
}

type ListBillsRequest struct{}

// BillOverview is a dashboard row. Its bill carries no participants.
type BillOverview struct {
	Bill     Bill     `json:"bill"`
	Progress Progress `json:"progress"`
}

type ListBillsResponse struct {
	Bills []BillOverview `json:"bills"`
}

// GetBillRequest identifies a bill by ID or by slug.
type GetBillRequest struct {
	BillID string `json:"bill_id" validate:"required_without=Slug"`
	Slug   string `json:"slug"`
}

type GetBillResponse struct {
	Bill    *Bill    `json:"bill"`
	Summary *Summary `json:"summary"`
}

type GetProgressRequest struct {
	BillID string `json:"bill_id" validate:"required"`
}

type GetProgressResponse struct {
	Summary *Summary `json:"summary"`
}

// RequestPaymentRequest sends a payment prompt to one participant. An empty
// ChannelID uses the owner's default channel.
type RequestPaymentRequest struct {
	BillID        string `json:"bill_id" validate:"required"`
	ParticipantID string `json:"participant_id" validate:"required"`
	ChannelID     string `json:"channel_id,omitempty"`
}

type RequestPaymentResponse struct {
	AttemptID string          `json:"attempt_id"`
	Amount    decimal.Decimal `json:"amount"`
}

type RequestPaymentsRequest struct {
	BillID    string `json:"bill_id" validate:"required"`
	ChannelID string `json:"channel_id,omitempty"`
}

// PaymentResult reports one prompt of a bulk request. Error is set when
// the prompt could not be sent.
type PaymentResult struct {
	ParticipantID string          `json:"participant_id"`
	AttemptID     string          `json:"attempt_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Error         string          `json:"error,omitempty"`
}

type RequestPaymentsResponse struct {
	Results []PaymentResult `json:"results"`
}

type SettleBillRequest struct {
	BillID string `json:"bill_id" validate:"required"`
}

type SettleBillResponse struct {
	Bill   *Bill           `json:"bill"`
	Amount decimal.Decimal `json:"amount"`
}

type WatchBillRequest struct {
	BillID string `json:"bill_id" validate:"required"`
}

// WatchBillResponse is one snapshot of a watched bill. When the refresh
// failed Error is set and Summary is nil; the client keeps its last view.
type WatchBillResponse struct {
	Seq     uint64   `json:"seq"`
	Summary *Summary `json:"summary,omitempty"`
	Error   string   `json:"error,omitempty"`
	At      int64    `json:"at"`
}

type Channel struct {
	ID        string `json:"id"`
	DisplayID string `json:"display_id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	CreatedAt int64  `json:"created_at"`
}

type CreateChannelRequest struct {
	DisplayID string `json:"display_id" validate:"required,numeric,min=5,max=10"`
	Name      string `json:"name" validate:"required,max=100"`
	IsDefault bool   `json:"is_default"`
}

type CreateChannelResponse struct {
	Channel *Channel `json:"channel"`
}

type ListChannelsRequest struct{}

type ListChannelsResponse struct {
	Channels []Channel `json:"channels"`
}

type SetDefaultChannelRequest struct {
	ChannelID string `json:"channel_id" validate:"required"`
}

type SetDefaultChannelResponse struct {
	Channel *Channel `json:"channel"`
}
