package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Kariqs/farmart-api/models"
	"github.com/Kariqs/farmart-api/payments"
	"github.com/Kariqs/farmart-api/services"
	"github.com/Kariqs/farmart-api/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// mpesaAck is what Daraja expects back from a callback endpoint.
var mpesaAck = gin.H{"ResultCode": 0, "ResultDesc": "Accepted"}

type OrderController struct {
	db     *gorm.DB
	engine *services.OrderEngine
	mailer *utils.Mailer
	logger *slog.Logger
}

func NewOrderController(db *gorm.DB, engine *services.OrderEngine, mailer *utils.Mailer, logger *slog.Logger) *OrderController {
	return &OrderController{db: db, engine: engine, mailer: mailer, logger: logger}
}

func (c *OrderController) GetOrders(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	orders, err := c.engine.List(ctx.Request.Context(), c.db, caller)
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"orders": orders})
}

func (c *OrderController) GetOrder(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	order, err := c.engine.Get(ctx.Request.Context(), c.db, caller, id)
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, order)
}

func (c *OrderController) CreateOrder(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}

	var order *models.Order
	err := withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		order, err = c.engine.CreateFromCart(ctx.Request.Context(), tx, caller)
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}
	sendJSONResponse(ctx, http.StatusCreated, order)
}

// PayOrder answers 200 when the order is paid (now or before) and 202 when
// the gateway will report the result later.
func (c *OrderController) PayOrder(ctx *gin.Context) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var input models.PayOrderInput
	if err := ctx.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		respondWithBindError(ctx, err)
		return
	}

	var outcome *services.PaymentOutcome
	err := withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		outcome, err = c.engine.Pay(ctx.Request.Context(), tx, caller, id, services.PayRequest{
			Provider:    input.Provider,
			PhoneNumber: input.PhoneNumber,
		})
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}

	status := http.StatusOK
	if outcome.Pending {
		status = http.StatusAccepted
	}
	sendJSONResponse(ctx, status, outcome)
}

func (c *OrderController) ConfirmOrder(ctx *gin.Context) {
	c.decide(ctx, c.engine.Confirm)
}

func (c *OrderController) RejectOrder(ctx *gin.Context) {
	c.decide(ctx, c.engine.Reject)
}

type transition func(ctx context.Context, tx *gorm.DB, caller services.Caller, orderID uint) (*models.Order, error)

// decide runs a farmer transition and tells the buyer about it.
func (c *OrderController) decide(ctx *gin.Context, apply transition) {
	caller, ok := requireCaller(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	var order *models.Order
	err := withTransaction(c.db, func(tx *gorm.DB) error {
		var err error
		order, err = apply(ctx.Request.Context(), tx, caller, id)
		return err
	})
	if err != nil {
		respondWithServiceError(ctx, c.logger, err)
		return
	}

	c.notifyBuyer(ctx.Request.Context(), order)
	sendJSONResponse(ctx, http.StatusOK, order)
}

func (c *OrderController) notifyBuyer(ctx context.Context, order *models.Order) {
	if !c.mailer.Enabled() {
		return
	}

	var buyer models.User
	if err := c.db.WithContext(ctx).First(&buyer, order.BuyerID).Error; err != nil {
		c.logger.WarnContext(ctx, "could not load buyer for notification", "order_id", order.ID, "error", err)
		return
	}

	message := "Good news! Your order has been confirmed by the farmer."
	if order.Status == models.OrderRejected {
		message = "Unfortunately your order was rejected by the farmer. Any reserved animals have been released."
	}
	emailData := utils.EmailData{
		Name:    buyer.Name,
		Message: message,
		OrderID: order.ID,
		Status:  string(order.Status),
		Total:   order.TotalAmount.StringFixed(2),
	}
	subject := fmt.Sprintf("Order #%d %s", order.ID, order.Status)
	if err := c.mailer.SendEmail(buyer.Email, subject, emailData, "order_status.html"); err != nil {
		c.logger.WarnContext(ctx, "error sending order status email", "order_id", order.ID, "error", err)
	}
}

// MpesaCallback always acknowledges; anything that goes wrong is logged.
func (c *OrderController) MpesaCallback(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()

	body, err := ctx.GetRawData()
	if err != nil {
		c.logger.WarnContext(reqCtx, "unable to read mpesa callback", "error", err)
		sendJSONResponse(ctx, http.StatusOK, mpesaAck)
		return
	}

	result, err := payments.ParseMpesaCallback(body)
	if err != nil {
		c.logger.WarnContext(reqCtx, "invalid mpesa callback", "error", err)
		sendJSONResponse(ctx, http.StatusOK, mpesaAck)
		return
	}

	err = withTransaction(c.db, func(tx *gorm.DB) error {
		_, err := c.engine.ApplyPaymentResult(reqCtx, tx, *result)
		return err
	})
	if err != nil {
		logger := c.logger.WarnContext
		// NotFound may be a callback that beat the commit of its payment row;
		// the gateway will not retry it, so it needs a human.
		if kind := services.KindOf(err); kind == services.KindInternal || kind == services.KindNotFound {
			logger = c.logger.ErrorContext
		}
		logger(reqCtx, "mpesa callback not applied",
			"checkout_request_id", result.CorrelationID, "result_code", result.ResultCode, "error", err)
	}

	sendJSONResponse(ctx, http.StatusOK, mpesaAck)
}
