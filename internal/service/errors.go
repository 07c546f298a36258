package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitpay/internal/auth"
	"github.com/mmynk/splitpay/internal/payments"
	"github.com/mmynk/splitpay/internal/storage"
)

var (
	errBillNotFound    = errors.New("bill not found")
	errChannelNotFound = errors.New("channel not found")
	errNoChannel       = errors.New("no payment channel configured; add one first")
	errNotComplete     = errors.New("bill has not reached its goal")
	errAlreadySettled  = errors.New("bill is already settled")
	errSettling        = errors.New("bill is being settled")
	errUnknownPayer    = errors.New("participant not found on this bill")
	errNothingOwed     = errors.New("participant has no amount to pay")
)

// toConnectError translates domain errors into Connect codes at the
// service boundary. Errors that are already *connect.Error pass through.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, payments.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, payments.ErrUpstreamUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, payments.ErrUpstreamUnauthorized), errors.Is(err, payments.ErrUpstreamRejected):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, auth.ErrEmailExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, auth.ErrWeakPassword):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return connect.NewError(connect.CodeUnauthenticated, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func invalidArgument(err error) error {
	return connect.NewError(connect.CodeInvalidArgument, err)
}

func notFound(err error) error {
	return connect.NewError(connect.CodeNotFound, err)
}

func failedPrecondition(err error) error {
	return connect.NewError(connect.CodeFailedPrecondition, err)
}
