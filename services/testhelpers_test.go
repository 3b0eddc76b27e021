package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Kariqs/farmart-api/initializers"
	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/payments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := initializers.OpenDatabase(initializers.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, initializers.SyncDatabase(db))
	t.Cleanup(func() { _ = initializers.CloseDatabase(db) })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runInTx mirrors how handlers drive the services.
func runInTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.Begin()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func seedUser(t *testing.T, db *gorm.DB, name string, role models.Role) Caller {
	t.Helper()

	user := models.User{Name: name, Email: name + "@example.com", Password: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return Caller{ID: user.ID, Role: role}
}

func seedAnimal(t *testing.T, db *gorm.DB, farmer Caller, title string, price string, quantity int) models.Animal {
	t.Helper()

	status := models.AnimalAvailable
	if quantity == 0 {
		status = models.AnimalSold
	}
	animal := models.Animal{
		FarmerID:   farmer.ID,
		Title:      title,
		AnimalType: "cow",
		Breed:      "Friesian",
		Price:      decimal.RequireFromString(price),
		Quantity:   quantity,
		Status:     status,
	}
	require.NoError(t, db.Create(&animal).Error)
	return animal
}

func reloadAnimal(t *testing.T, db *gorm.DB, id uint) models.Animal {
	t.Helper()

	var animal models.Animal
	require.NoError(t, db.First(&animal, id).Error)
	return animal
}

func addToCart(t *testing.T, db *gorm.DB, buyer Caller, animalID uint, quantity int) {
	t.Helper()

	err := runInTx(db, func(tx *gorm.DB) error {
		_, err := AddCartItem(context.Background(), tx, buyer, models.CartItemInput{AnimalID: animalID, Quantity: quantity})
		return err
	})
	require.NoError(t, err)
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()

	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}

// fakeGateway records calls and answers with a fixed outcome.
type fakeGateway struct {
	mu       sync.Mutex
	provider string
	settled  bool
	err      error
	calls    []payments.Request
}

func (g *fakeGateway) Provider() string { return g.provider }

func (g *fakeGateway) Initiate(_ context.Context, req payments.Request) (*payments.Initiation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return &payments.Initiation{
		CorrelationID:     fmt.Sprintf("ws_CO_%s_%d", g.provider, len(g.calls)),
		MerchantRequestID: fmt.Sprintf("MR-%d", len(g.calls)),
		Settled:           g.settled,
		Message:           "accepted",
	}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type engineFixture struct {
	db     *gorm.DB
	engine *OrderEngine
	mock   *fakeGateway
	mpesa  *fakeGateway
	farmer Caller
	buyer  Caller
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	db := newTestDB(t)
	mock := &fakeGateway{provider: payments.ProviderMock, settled: true}
	mpesa := &fakeGateway{provider: payments.ProviderMpesa}
	return &engineFixture{
		db:     db,
		engine: NewOrderEngine(payments.NewRegistry(payments.ProviderMock, mock, mpesa), nil, discardLogger()),
		mock:   mock,
		mpesa:  mpesa,
		farmer: seedUser(t, db, "farmer", models.RoleFarmer),
		buyer:  seedUser(t, db, "buyer", models.RoleBuyer),
	}
}

func (f *engineFixture) createOrder(t *testing.T, buyer Caller) (*models.Order, error) {
	t.Helper()

	var order *models.Order
	err := runInTx(f.db, func(tx *gorm.DB) error {
		var err error
		order, err = f.engine.CreateFromCart(context.Background(), tx, buyer)
		return err
	})
	return order, err
}

func (f *engineFixture) pay(t *testing.T, buyer Caller, orderID uint, provider string) (*PaymentOutcome, error) {
	t.Helper()

	var outcome *PaymentOutcome
	err := runInTx(f.db, func(tx *gorm.DB) error {
		var err error
		outcome, err = f.engine.Pay(context.Background(), tx, buyer, orderID, PayRequest{Provider: provider, PhoneNumber: "0712345678"})
		return err
	})
	return outcome, err
}

func (f *engineFixture) confirm(t *testing.T, caller Caller, orderID uint) (*models.Order, error) {
	t.Helper()

	var order *models.Order
	err := runInTx(f.db, func(tx *gorm.DB) error {
		var err error
		order, err = f.engine.Confirm(context.Background(), tx, caller, orderID)
		return err
	})
	return order, err
}

func (f *engineFixture) reject(t *testing.T, caller Caller, orderID uint) (*models.Order, error) {
	t.Helper()

	var order *models.Order
	err := runInTx(f.db, func(tx *gorm.DB) error {
		var err error
		order, err = f.engine.Reject(context.Background(), tx, caller, orderID)
		return err
	})
	return order, err
}

func (f *engineFixture) applyResult(t *testing.T, result payments.Result) (*models.Payment, error) {
	t.Helper()

	var payment *models.Payment
	err := runInTx(f.db, func(tx *gorm.DB) error {
		var err error
		payment, err = f.engine.ApplyPaymentResult(context.Background(), tx, result)
		return err
	})
	return payment, err
}

func (f *engineFixture) orderStatus(t *testing.T, orderID uint) models.OrderStatus {
	t.Helper()

	var order models.Order
	require.NoError(t, f.db.First(&order, orderID).Error)
	return order.Status
}
