package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/events"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/payment"
	"github.com/shopmind/shopmind/internal/realtime"
)

// PaymentWebhookHandler receives gateway notifications. The HMAC covers
// transaction_id|order_id|amount|currency with amount kept as the wire
// string; the gateway gets a 200 for every verified delivery, repeats
// included, so it never retries a processed transaction.
type PaymentWebhookHandler struct {
	DB         *gorm.DB
	Secret     string
	Producer   events.Publisher
	Dispatcher realtime.Dispatcher
}

type paymentNotification struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Success       bool   `json:"success"`
}

func (h *PaymentWebhookHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_webhook")

	var n paymentNotification
	if err := c.Bind(&n); err != nil {
		return httpapi.BadRequest("invalid body")
	}

	signature := c.QueryParam("signature")
	base := payment.BaseString(n.TransactionID, n.OrderID, n.Amount, n.Currency)
	if signature == "" || !payment.Verify(h.Secret, base, signature) {
		l.Warn("signature_mismatch", "transaction_id", n.TransactionID)
		return httpapi.Unauthenticated(httpapi.CodeUnauthenticated, "invalid signature")
	}

	orderID, err := strconv.ParseUint(n.OrderID, 10, 64)
	if err != nil {
		l.Warn("bad_order_id", "order_id", n.OrderID)
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}

	var order models.Order
	if err := h.DB.First(&order, uint(orderID)).Error; err != nil {
		l.Warn("order_not_found", "order_id", orderID)
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}

	if n.Success {
		h.markPaid(c, &order, n.TransactionID)
	} else {
		h.markFailed(c, &order, n.TransactionID)
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// markPaid transitions pending -> paid exactly once. The guarded UPDATE
// makes repeat deliveries no-ops: events fire only when a row flipped.
func (h *PaymentWebhookHandler) markPaid(c echo.Context, order *models.Order, txID string) {
	l := logging.FromContext(c.Request().Context())

	res := h.DB.Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", order.ID, models.PaymentPaid).
		Updates(map[string]any{
			"payment_status": models.PaymentPaid,
			"status":         "processing",
			"transaction_id": txID,
		})
	if res.Error != nil {
		l.Error("mark_paid_error", "order_id", order.ID, "error", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		l.Info("duplicate_notification", "order_id", order.ID, "transaction_id", txID)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Dispatcher.Publish(ctx, realtime.TenantRoom(order.TenantID), "order:paid", echo.Map{
		"order_id":       order.ID,
		"transaction_id": txID,
	}); err != nil {
		l.Error("broadcast_error", "order_id", order.ID, "error", err)
	}

	event := echo.Map{
		"type":           "order_paid",
		"order_id":       order.ID,
		"tenant_id":      order.TenantID,
		"transaction_id": txID,
	}
	if err := h.Producer.Publish(ctx, events.TopicOrders, fmt.Sprint(order.ID), event); err != nil {
		l.Error("kafka_publish_error", "error", err)
	}

	l.Info("order_paid", "order_id", order.ID, "transaction_id", txID)
}

func (h *PaymentWebhookHandler) markFailed(c echo.Context, order *models.Order, txID string) {
	l := logging.FromContext(c.Request().Context())

	res := h.DB.Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", order.ID, models.PaymentPending).
		Updates(map[string]any{
			"payment_status": models.PaymentFailed,
			"transaction_id": txID,
		})
	if res.Error != nil {
		l.Error("mark_failed_error", "order_id", order.ID, "error", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		l.Info("payment_failed", "order_id", order.ID, "transaction_id", txID)
	}
}
