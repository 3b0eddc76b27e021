package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/payments"
	"github.com/Kariqs/farmart-api/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PayRequest struct {
	Provider    string
	PhoneNumber string
}

// PaymentOutcome describes what a pay call achieved. Pending means the
// gateway accepted the request and the result will arrive by callback.
// Replayed means nothing new was sent: the order was already paid, or an
// earlier attempt is still waiting for its callback.
type PaymentOutcome struct {
	Order    *models.Order   `json:"order"`
	Payment  *models.Payment `json:"payment"`
	Pending  bool            `json:"pending"`
	Replayed bool            `json:"replayed"`
	Message  string          `json:"message"`
}

// Pay starts payment of a pending order. Paying a paid order returns its
// settled payment again, and paying while an attempt with the same provider
// is still open returns that attempt without contacting the gateway.
func (e *OrderEngine) Pay(ctx context.Context, tx *gorm.DB, caller Caller, orderID uint, req PayRequest) (outcome *PaymentOutcome, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderEngine.Pay", trace.WithAttributes(attribute.Int("order.id", int(orderID))))
	defer func() { e.finish(ctx, span, "pay", err) }()

	if err := RequireBuyer(caller); err != nil {
		return nil, err
	}
	order, err := e.loadOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(caller, order); err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderPending:
	case models.OrderPaid, models.OrderConfirmed:
		settled, err := succeededPayment(ctx, tx, order.ID)
		if err != nil {
			return nil, err
		}
		if settled == nil {
			return nil, Conflict(CodeInvalidState, fmt.Sprintf("Order is %s without a settled payment", order.Status))
		}
		return &PaymentOutcome{Order: order, Payment: settled, Replayed: true, Message: "Order already paid"}, nil
	default:
		return nil, Conflict(CodeInvalidState, fmt.Sprintf("Order is %s and cannot be paid", order.Status))
	}

	gateway, err := e.gateways.Lookup(req.Provider)
	if err != nil {
		return nil, Validation("unknown_provider", fmt.Sprintf("Unsupported payment provider %q", req.Provider))
	}

	// One open attempt per order: a second prompt could be approved too.
	inFlight, err := pendingPayment(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	if inFlight != nil {
		if inFlight.Provider != gateway.Provider() {
			return nil, Conflict(CodePaymentInProgress, fmt.Sprintf("A %s payment is already in progress for this order", inFlight.Provider))
		}
		return &PaymentOutcome{
			Order:    order,
			Payment:  inFlight,
			Pending:  true,
			Replayed: true,
			Message:  "Payment already in progress, complete it on your phone",
		}, nil
	}
	telemetry.AddSpanAttributes(span, attribute.String("payment.provider", gateway.Provider()))

	payment := &models.Payment{
		OrderID:  order.ID,
		Amount:   order.TotalAmount,
		Provider: gateway.Provider(),
		Status:   models.PaymentPending,
	}
	if err := tx.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, Internal("Failed to record payment", err)
	}

	initiation, err := gateway.Initiate(ctx, payments.Request{
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		PhoneNumber: req.PhoneNumber,
		Reference:   fmt.Sprintf("ORDER-%d", order.ID),
		Description: fmt.Sprintf("Payment for order #%d", order.ID),
	})
	if err != nil {
		e.recordPayment(ctx, gateway.Provider(), "error")
		if errors.Is(err, payments.ErrInvalidRequest) {
			return nil, Validation("invalid_payment_request", err.Error())
		}
		e.logger.ErrorContext(ctx, "payment initiation failed", "order_id", order.ID, "provider", gateway.Provider(), "error", err)
		return nil, Upstream("Payment gateway request failed", err)
	}

	payment.ProviderTransactionID = initiation.CorrelationID
	if initiation.Settled {
		payment.Status = models.PaymentSucceeded
	}
	if err := tx.WithContext(ctx).Model(payment).Updates(map[string]any{
		"provider_transaction_id": payment.ProviderTransactionID,
		"status":                  payment.Status,
	}).Error; err != nil {
		return nil, Internal("Failed to record payment", err)
	}

	if initiation.Settled {
		if err := transitionOrder(ctx, tx, order.ID, models.OrderPending, models.OrderPaid); err != nil {
			return nil, err
		}
		e.recordPayment(ctx, gateway.Provider(), "settled")
		e.logger.InfoContext(ctx, "order paid", "order_id", order.ID, "provider", gateway.Provider(), "payment_id", payment.ID)
	} else {
		if err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
			"checkout_request_id": initiation.CorrelationID,
			"merchant_request_id": initiation.MerchantRequestID,
		}).Error; err != nil {
			return nil, Internal("Failed to record payment reference", err)
		}
		e.recordPayment(ctx, gateway.Provider(), "initiated")
		e.logger.InfoContext(ctx, "payment initiated", "order_id", order.ID, "provider", gateway.Provider(), "correlation_id", initiation.CorrelationID)
	}

	order, err = e.loadOrder(ctx, tx, order.ID)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{
		Order:   order,
		Payment: payment,
		Pending: !initiation.Settled,
		Message: initiation.Message,
	}, nil
}

// ApplyPaymentResult settles the payment a gateway callback refers to.
// Callbacks for payments that are no longer pending are ignored, so gateway
// retries are harmless. A failed result leaves the order payable. Money
// collected for an order that is no longer pending is kept as refund_required.
func (e *OrderEngine) ApplyPaymentResult(ctx context.Context, tx *gorm.DB, result payments.Result) (payment *models.Payment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderEngine.ApplyPaymentResult",
		trace.WithAttributes(attribute.String("payment.correlation_id", result.CorrelationID)))
	defer func() { e.finish(ctx, span, "settle", err) }()

	if result.CorrelationID == "" {
		return nil, Validation("missing_correlation_id", "Payment result has no correlation id")
	}

	payment = &models.Payment{}
	if err := tx.WithContext(ctx).Where("provider_transaction_id = ?", result.CorrelationID).First(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("No payment matches this result")
		}
		return nil, Internal("Unable to load payment", err)
	}
	if payment.Status != models.PaymentPending {
		e.logger.InfoContext(ctx, "duplicate payment result ignored", "payment_id", payment.ID, "status", payment.Status)
		return payment, nil
	}

	resultCode := result.ResultCode
	status := models.PaymentFailed
	desc := result.ResultDesc
	if result.Succeeded {
		status = models.PaymentSucceeded
		paid := tx.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", payment.OrderID, models.OrderPending).
			Update("status", models.OrderPaid)
		if paid.Error != nil {
			return nil, Internal("Failed to mark order paid", paid.Error)
		}
		if paid.RowsAffected == 0 {
			status = models.PaymentRefundRequired
			desc = "order no longer payable: " + result.ResultDesc
		}
	}

	// The pending guard makes concurrent deliveries of the same result settle once.
	updated := tx.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
		Updates(map[string]any{
			"status":      status,
			"result_code": resultCode,
			"result_desc": desc,
			"receipt":     result.Receipt,
		})
	if updated.Error != nil {
		return nil, Internal("Failed to record payment result", updated.Error)
	}
	if updated.RowsAffected == 0 {
		if status == models.PaymentSucceeded {
			// Rolls back the order flip above.
			return nil, Conflict(CodeInvalidState, "Payment result was already recorded")
		}
		if err := tx.WithContext(ctx).First(payment, payment.ID).Error; err != nil {
			return nil, Internal("Unable to reload payment", err)
		}
		return payment, nil
	}
	payment.Status = status
	payment.ResultCode = &resultCode
	payment.ResultDesc = desc
	payment.Receipt = result.Receipt

	if status == models.PaymentRefundRequired {
		e.recordPayment(ctx, payment.Provider, "refund_required")
		e.logger.ErrorContext(ctx, "payment collected for an order that can no longer take it, refund required",
			"order_id", payment.OrderID, "payment_id", payment.ID, "receipt", result.Receipt)
		return payment, nil
	}

	orderUpdates := map[string]any{
		"result_code": resultCode,
		"result_desc": result.ResultDesc,
	}
	if result.MerchantRequestID != "" {
		orderUpdates["merchant_request_id"] = result.MerchantRequestID
	}
	if len(result.Raw) > 0 {
		orderUpdates["callback_payload"] = datatypes.JSON(result.Raw)
	}
	if status == models.PaymentSucceeded {
		orderUpdates["receipt"] = result.Receipt
	}
	if err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", payment.OrderID).Updates(orderUpdates).Error; err != nil {
		return nil, Internal("Failed to record payment result on order", err)
	}

	if status == models.PaymentFailed {
		e.recordPayment(ctx, payment.Provider, "failed")
		e.logger.InfoContext(ctx, "payment failed", "order_id", payment.OrderID, "payment_id", payment.ID, "result_code", resultCode, "result_desc", result.ResultDesc)
		return payment, nil
	}

	e.recordPayment(ctx, payment.Provider, "settled")
	e.logger.InfoContext(ctx, "order paid", "order_id", payment.OrderID, "payment_id", payment.ID, "receipt", result.Receipt)
	return payment, nil
}

// succeededPayment returns the payment that settled the order, or nil.
func succeededPayment(ctx context.Context, db *gorm.DB, orderID uint) (*models.Payment, error) {
	return paymentWithStatus(ctx, db, orderID, models.PaymentSucceeded)
}

// pendingPayment returns the order's open payment attempt, or nil.
func pendingPayment(ctx context.Context, db *gorm.DB, orderID uint) (*models.Payment, error) {
	return paymentWithStatus(ctx, db, orderID, models.PaymentPending)
}

func paymentWithStatus(ctx context.Context, db *gorm.DB, orderID uint, status models.PaymentStatus) (*models.Payment, error) {
	var payment models.Payment
	err := db.WithContext(ctx).Where("order_id = ? AND status = ?", orderID, status).Order("id ASC").First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Internal("Unable to load payments", err)
	}
	return &payment, nil
}

func (e *OrderEngine) recordPayment(ctx context.Context, provider, outcome string) {
	if e.metrics != nil {
		e.metrics.RecordPayment(ctx, provider, outcome)
	}
}
