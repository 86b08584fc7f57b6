// Package charge talks to the payment provider that takes the student's
// money before a tutor is assigned.
package charge

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured    = errors.New("payment provider is not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// Intent is a started charge the client completes with ClientSecret.
type Intent struct {
	Ref          string `json:"transaction_ref"`
	ClientSecret string `json:"client_secret"`
}

// Charge is the provider's view of a charge.
type Charge struct {
	Ref           string
	ApplicationID string
	Amount        decimal.Decimal
	Currency      string
	Succeeded     bool
}

// IntentRequest describes the charge for one application.
type IntentRequest struct {
	ApplicationID string
	StudentEmail  string
	Description   string
	Amount        decimal.Decimal
	Currency      string
}

type Authority interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	// Confirm fetches the charge by reference from the provider.
	Confirm(ctx context.Context, ref string) (*Charge, error)
	// ParseWebhook verifies a webhook payload. It returns nil, nil for events
	// that do not report a successful charge.
	ParseWebhook(payload []byte, signature string) (*Charge, error)
}

type disabled struct{}

// Disabled rejects every call with ErrNotConfigured.
func Disabled() Authority { return disabled{} }

func (disabled) CreateIntent(context.Context, IntentRequest) (*Intent, error) {
	return nil, ErrNotConfigured
}

func (disabled) Confirm(context.Context, string) (*Charge, error) {
	return nil, ErrNotConfigured
}

func (disabled) ParseWebhook([]byte, string) (*Charge, error) {
	return nil, ErrNotConfigured
}
