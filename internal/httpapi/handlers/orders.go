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
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer events.Publisher
}

func (h *OrderHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Paginate(page, size)

	q := h.DB.Model(&models.Order{}).Where("tenant_id = ?", user.TenantID)
	if status := c.QueryParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fmt.Errorf("count orders: %w", err)
	}

	var items []models.Order
	if err := q.Preload("Items").Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return fmt.Errorf("list orders: %w", err)
	}

	return httpapi.OK(c, http.StatusOK, echo.Map{
		"items": items,
		"meta":  echo.Map{"page": page, "size": limit, "total": total},
	})
}

func (h *OrderHandler) Get(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid order id")
	}

	var order models.Order
	if err := h.DB.Preload("Items").
		Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&order).Error; err != nil {
		return httpapi.NotFound("order not found")
	}
	return httpapi.OK(c, http.StatusOK, order)
}

type orderItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
}

type orderRequest struct {
	CustomerID uint               `json:"customer_id"`
	Currency   string             `json:"currency"`
	Items      []orderItemRequest `json:"items"`
}

// Create prices items from the catalog, never from the request.
func (h *OrderHandler) Create(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req orderRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}
	if req.CustomerID == 0 || len(req.Items) == 0 {
		return httpapi.BadRequest("customer_id and items are required")
	}

	var customer models.Customer
	if err := h.DB.Where("id = ? AND tenant_id = ?", req.CustomerID, user.TenantID).First(&customer).Error; err != nil {
		return httpapi.BadRequest("unknown customer")
	}

	order := models.Order{
		TenantID:   user.TenantID,
		CustomerID: customer.ID,
		Currency:   "USD",
		Status:     "new",
	}
	if req.Currency != "" {
		order.Currency = req.Currency
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		var total float64
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			if it.Quantity == 0 {
				it.Quantity = 1
			}
			var product models.Product
			if err := tx.Where("id = ? AND tenant_id = ?", it.ProductID, user.TenantID).First(&product).Error; err != nil {
				return httpapi.BadRequest(fmt.Sprintf("unknown product %d", it.ProductID))
			}
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  it.Quantity,
				UnitPrice: product.Price,
			})
			total += product.Price * float64(it.Quantity)
		}
		order.Total = total
		order.PaymentStatus = models.PaymentPending
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return err
	}

	h.publishOrderEvent(c, "order_created", &order)
	return httpapi.OK(c, http.StatusCreated, order)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid order id")
	}

	var req orderStatusRequest
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return httpapi.BadRequest("status is required")
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&order).Error; err != nil {
		return httpapi.NotFound("order not found")
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	h.publishOrderEvent(c, "order_status_changed", &order)
	return httpapi.OK(c, http.StatusOK, order)
}

func (h *OrderHandler) publishOrderEvent(c echo.Context, typ string, order *models.Order) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	event := echo.Map{
		"type":      typ,
		"order_id":  order.ID,
		"tenant_id": order.TenantID,
		"status":    order.Status,
		"total":     order.Total,
	}
	if err := h.Producer.Publish(ctx, events.TopicOrders, fmt.Sprint(order.ID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_error", "error", err)
	}
}
