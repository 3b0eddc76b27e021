// Package payments holds the payment collaborators the order engine settles
// orders through: an instant mock and the M-Pesa STK push flow.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ProviderMock  = "mock"
	ProviderMpesa = "mpesa"
)

var (
	// ErrInvalidRequest marks problems with the caller's input (missing
	// phone number, non-positive amount) as opposed to gateway failures.
	ErrInvalidRequest  = errors.New("invalid payment request")
	ErrUnknownProvider = errors.New("unknown payment provider")
)

type Request struct {
	OrderID     uint
	Amount      decimal.Decimal
	PhoneNumber string
	Reference   string
	Description string
}

// Initiation is the gateway's answer to a payment request. Settled is true
// when the money moved within the call; otherwise the outcome arrives later
// as a Result carrying the same CorrelationID.
type Initiation struct {
	CorrelationID     string
	MerchantRequestID string
	Settled           bool
	Message           string
}

// Result is an asynchronous settlement notification.
type Result struct {
	CorrelationID     string
	MerchantRequestID string
	Succeeded         bool
	ResultCode        int
	ResultDesc        string
	Receipt           string
	Raw               []byte
}

type Gateway interface {
	Provider() string
	Initiate(ctx context.Context, req Request) (*Initiation, error)
}

// Registry resolves provider tags sent by clients to gateways.
type Registry struct {
	gateways map[string]Gateway
	fallback string
}

func NewRegistry(fallback string, gateways ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway, len(gateways)), fallback: fallback}
	for _, gw := range gateways {
		r.gateways[gw.Provider()] = gw
	}
	return r
}

func (r *Registry) Lookup(provider string) (Gateway, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = r.fallback
	}
	gw, ok := r.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return gw, nil
}

func validateRequest(req Request) error {
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	return nil
}
