package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/payments"
	"github.com/Kariqs/farmart-api/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// OrderEngine drives orders from cart checkout through payment to the
// farmer's decision. It never opens or commits transactions itself.
//
// Lifecycle: pending -> paid -> confirmed, or pending -> rejected.
type OrderEngine struct {
	gateways *payments.Registry
	metrics  *telemetry.OrderMetrics
	logger   *slog.Logger
}

// NewOrderEngine wires the engine. metrics may be nil.
func NewOrderEngine(gateways *payments.Registry, metrics *telemetry.OrderMetrics, logger *slog.Logger) *OrderEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderEngine{gateways: gateways, metrics: metrics, logger: logger}
}

// CreateFromCart turns the caller's cart into a pending order at current
// listing prices, reserves the stock and empties the cart. Either all of it
// lands in tx or the first failure is returned and tx must be rolled back.
func (e *OrderEngine) CreateFromCart(ctx context.Context, tx *gorm.DB, caller Caller) (order *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderEngine.CreateFromCart")
	defer func() { e.finish(ctx, span, "create", err) }()

	if err := RequireBuyer(caller); err != nil {
		return nil, err
	}

	var cart models.Cart
	err = tx.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("buyer_id = ?", caller.ID).
		First(&cart).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Internal("Unable to load cart", err)
	}
	if len(cart.Items) == 0 {
		return nil, Validation(CodeEmptyCart, "Your cart is empty")
	}

	total := decimal.Zero
	lines := make([]models.OrderItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		var animal models.Animal
		if err := tx.WithContext(ctx).First(&animal, item.AnimalID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, e.rejectInventory(ctx, Inventory(fmt.Sprintf("Animal %d is no longer listed", item.AnimalID)))
			}
			return nil, Internal("Unable to load animal", err)
		}
		if animal.Status != models.AnimalAvailable {
			return nil, e.rejectInventory(ctx, Inventory(fmt.Sprintf("Animal %d is not available", animal.ID)))
		}
		if item.Quantity > animal.Quantity {
			return nil, e.rejectInventory(ctx, Inventory(fmt.Sprintf("Only %d unit(s) of animal %d available", animal.Quantity, animal.ID)))
		}

		line := models.OrderItem{
			AnimalID:  animal.ID,
			FarmerID:  animal.FarmerID,
			Quantity:  item.Quantity,
			UnitPrice: animal.Price,
		}
		total = total.Add(line.LineTotal())
		lines = append(lines, line)
	}

	order = &models.Order{
		BuyerID:     caller.ID,
		TotalAmount: total,
		Status:      models.OrderPending,
		OrderItems:  lines,
	}
	if err := tx.WithContext(ctx).Create(order).Error; err != nil {
		return nil, Internal("Failed to create order", err)
	}

	for _, line := range lines {
		if err := reserveAnimal(tx.WithContext(ctx), line.AnimalID, line.Quantity); err != nil {
			if KindOf(err) == KindInventory {
				return nil, e.rejectInventory(ctx, AsError(err))
			}
			return nil, err
		}
	}

	if err := tx.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return nil, Internal("Failed to empty cart", err)
	}

	telemetry.AddSpanAttributes(span, attribute.Int("order.id", int(order.ID)), attribute.Int("order.items", len(lines)))
	e.logger.InfoContext(ctx, "order created", "order_id", order.ID, "buyer_id", caller.ID, "total", total.StringFixed(2))

	return e.loadOrder(ctx, tx, order.ID)
}

// List returns the orders visible to the caller: their purchases for a
// buyer, and orders holding at least one of their animals for a farmer.
func (e *OrderEngine) List(ctx context.Context, db *gorm.DB, caller Caller) ([]models.Order, error) {
	query := db.WithContext(ctx).Preload("OrderItems").Preload("OrderItems.Animal")

	switch caller.Role {
	case models.RoleBuyer:
		query = query.Where("buyer_id = ?", caller.ID)
	case models.RoleFarmer:
		query = query.Where("id IN (?)", db.Model(&models.OrderItem{}).Select("order_id").Where("farmer_id = ?", caller.ID))
	default:
		return nil, AccessDenied("Unknown role")
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, Internal("Unable to fetch orders", err)
	}
	return orders, nil
}

func (e *OrderEngine) Get(ctx context.Context, db *gorm.DB, caller Caller, orderID uint) (*models.Order, error) {
	order, err := e.loadOrder(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(caller, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Confirm accepts a paid order on behalf of one of its farmers.
func (e *OrderEngine) Confirm(ctx context.Context, tx *gorm.DB, caller Caller, orderID uint) (order *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderEngine.Confirm", trace.WithAttributes(attribute.Int("order.id", int(orderID))))
	defer func() { e.finish(ctx, span, "confirm", err) }()

	order, err = e.orderForFarmer(ctx, tx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPaid {
		return nil, Conflict("payment_required", "Only paid orders can be confirmed")
	}
	if err := transitionOrder(ctx, tx, order.ID, models.OrderPaid, models.OrderConfirmed); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "order confirmed", "order_id", order.ID, "farmer_id", caller.ID)
	return e.loadOrder(ctx, tx, order.ID)
}

// Reject turns down a pending order and returns its stock to the listings.
func (e *OrderEngine) Reject(ctx context.Context, tx *gorm.DB, caller Caller, orderID uint) (order *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderEngine.Reject", trace.WithAttributes(attribute.Int("order.id", int(orderID))))
	defer func() { e.finish(ctx, span, "reject", err) }()

	order, err = e.orderForFarmer(ctx, tx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, Conflict("order_paid", "Paid orders can no longer be rejected")
	}
	// The buyer may still approve an open payment prompt.
	inFlight, err := pendingPayment(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if inFlight != nil {
		return nil, Conflict(CodePaymentInProgress, "The buyer has a payment in progress for this order")
	}
	if err := transitionOrder(ctx, tx, order.ID, models.OrderPending, models.OrderRejected); err != nil {
		return nil, err
	}

	for _, item := range order.OrderItems {
		if err := releaseAnimal(tx.WithContext(ctx), item.AnimalID, item.Quantity); err != nil {
			return nil, err
		}
	}

	e.logger.InfoContext(ctx, "order rejected", "order_id", order.ID, "farmer_id", caller.ID, "items", len(order.OrderItems))
	return e.loadOrder(ctx, tx, order.ID)
}

// orderForFarmer applies the checks shared by farmer transitions: role,
// existence, ownership of a line, then a terminal state guard.
func (e *OrderEngine) orderForFarmer(ctx context.Context, tx *gorm.DB, caller Caller, orderID uint) (*models.Order, error) {
	if err := RequireFarmer(caller); err != nil {
		return nil, err
	}
	order, err := e.loadOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(caller, order); err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, Conflict(CodeInvalidState, fmt.Sprintf("Order is already %s", order.Status))
	}
	return order, nil
}

func (e *OrderEngine) loadOrder(ctx context.Context, db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("OrderItems.Animal").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("Order not found")
		}
		return nil, Internal("Unable to retrieve order", err)
	}
	return &order, nil
}

// transitionOrder moves an order from one status to another only if it is
// still in the expected status.
func transitionOrder(ctx context.Context, tx *gorm.DB, orderID uint, from, to models.OrderStatus) error {
	result := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if result.Error != nil {
		return Internal("Failed to update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return Conflict(CodeInvalidState, "Order status changed, reload and try again")
	}
	return nil
}

func (e *OrderEngine) rejectInventory(ctx context.Context, err *Error) *Error {
	if e.metrics != nil {
		e.metrics.RecordInventoryRejection(ctx)
	}
	e.logger.InfoContext(ctx, "order refused for stock", "reason", err.Message)
	return err
}

func (e *OrderEngine) finish(ctx context.Context, span trace.Span, transition string, err error) {
	if err != nil {
		telemetry.RecordSpanError(span, err)
	} else {
		telemetry.SetSpanSuccess(span)
	}
	span.End()

	if e.metrics == nil {
		return
	}
	if transition == "create" {
		e.metrics.RecordOrderCreated(ctx, err == nil)
		return
	}
	e.metrics.RecordTransition(ctx, transition, err == nil)
}
