package charge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

const metaApplicationID = "application_id"

type StripeAuthority struct {
	api           *client.API
	webhookSecret string
}

func NewStripeAuthority(secretKey, webhookSecret string) *StripeAuthority {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeAuthority{api: api, webhookSecret: webhookSecret}
}

// currencyExponents lists the currencies whose smallest unit is not a
// hundredth. Everything else uses two decimals.
var currencyExponents = map[string]int32{
	"bif": 0, "clp": 0, "djf": 0, "gnf": 0, "jpy": 0, "kmf": 0, "krw": 0, "mga": 0,
	"pyg": 0, "rwf": 0, "ugx": 0, "vnd": 0, "vuv": 0, "xaf": 0, "xof": 0, "xpf": 0,
	"bhd": 3, "jod": 3, "kwd": 3, "omr": 3, "tnd": 3,
}

func exponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToLower(currency)]; ok {
		return exp
	}
	return 2
}

// minorUnits converts an amount to the provider's smallest currency unit.
func minorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(exponent(currency)).Round(0).IntPart()
}

func majorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -exponent(currency))
}

func (s *StripeAuthority) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("charge amount must be positive, got %s", req.Amount)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(req.Amount, req.Currency)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String(req.Description),
	}
	if req.StudentEmail != "" {
		params.ReceiptEmail = stripe.String(req.StudentEmail)
	}
	params.Context = ctx
	params.AddMetadata(metaApplicationID, req.ApplicationID)

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &Intent{Ref: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *StripeAuthority) Confirm(ctx context.Context, ref string) (*Charge, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := s.api.PaymentIntents.Get(ref, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent: %w", err)
	}
	return fromIntent(pi), nil
}

func (s *StripeAuthority) ParseWebhook(payload []byte, signature string) (*Charge, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}
	if event.Type != "payment_intent.succeeded" {
		return nil, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return fromIntent(&pi), nil
}

func fromIntent(pi *stripe.PaymentIntent) *Charge {
	return &Charge{
		Ref:           pi.ID,
		ApplicationID: pi.Metadata[metaApplicationID],
		Amount:        majorUnits(pi.Amount, string(pi.Currency)),
		Currency:      string(pi.Currency),
		Succeeded:     pi.Status == stripe.PaymentIntentStatusSucceeded,
	}
}
