package payments

import (
	"context"

	"github.com/google/uuid"
)

// MockGateway settles every request immediately.
type MockGateway struct{}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Provider() string {
	return ProviderMock
}

func (g *MockGateway) Initiate(_ context.Context, req Request) (*Initiation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return &Initiation{
		CorrelationID: "MOCK-" + uuid.NewString(),
		Settled:       true,
		Message:       "Payment processed",
	}, nil
}
