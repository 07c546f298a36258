// Package auth issues and checks the session tokens that gate every
// bill and channel RPC.
package auth

import (
	"context"

	"github.com/mmynk/splitpay/internal/models"
)

// Authenticator verifies who a caller is. Bills are scoped to the user it
// returns, so every ownership decision downstream starts here.
type Authenticator interface {
	// Register creates an account; credential rules depend on the implementation.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user when credential matches.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
}
