package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/models"
)

type AnalyticsHandler struct {
	DB *gorm.DB
}

type dayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Summary aggregates the dashboard numbers for the caller's tenant.
func (h *AnalyticsHandler) Summary(c echo.Context) error {
	user := middleware.CurrentUser(c)
	tenant := user.TenantID

	var orders, customers, conversations int64
	if err := h.DB.Model(&models.Order{}).Where("tenant_id = ?", tenant).Count(&orders).Error; err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if err := h.DB.Model(&models.Customer{}).Where("tenant_id = ?", tenant).Count(&customers).Error; err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if err := h.DB.Model(&models.Conversation{}).Where("tenant_id = ?", tenant).Count(&conversations).Error; err != nil {
		return fmt.Errorf("count conversations: %w", err)
	}

	var revenue float64
	if err := h.DB.Model(&models.Order{}).
		Where("tenant_id = ? AND payment_status = ?", tenant, models.PaymentPaid).
		Select("COALESCE(SUM(total), 0)").Scan(&revenue).Error; err != nil {
		return fmt.Errorf("sum revenue: %w", err)
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	var byDay []dayCount
	if err := h.DB.Model(&models.Message{}).
		Select("DATE(messages.created_at) AS day, COUNT(*) AS count").
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.tenant_id = ? AND messages.created_at >= ?", tenant, weekAgo).
		Group("DATE(messages.created_at)").
		Order("day ASC").
		Scan(&byDay).Error; err != nil {
		return fmt.Errorf("count messages: %w", err)
	}

	var recentMessages int64
	for _, d := range byDay {
		recentMessages += d.Count
	}

	return httpapi.OK(c, http.StatusOK, echo.Map{
		"orders":          orders,
		"customers":       customers,
		"conversations":   conversations,
		"revenue":         revenue,
		"messages_7d":     recentMessages,
		"messages_by_day": byDay,
	})
}
