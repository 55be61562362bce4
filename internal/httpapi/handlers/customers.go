package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/util"
)

type CustomerHandler struct {
	DB *gorm.DB
}

func (h *CustomerHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Paginate(page, size)

	var total int64
	if err := h.DB.Model(&models.Customer{}).Where("tenant_id = ?", user.TenantID).Count(&total).Error; err != nil {
		return fmt.Errorf("count customers: %w", err)
	}

	var items []models.Customer
	if err := h.DB.Where("tenant_id = ?", user.TenantID).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return fmt.Errorf("list customers: %w", err)
	}

	return httpapi.OK(c, http.StatusOK, echo.Map{
		"items": items,
		"meta":  echo.Map{"page": page, "size": limit, "total": total},
	})
}

func (h *CustomerHandler) Get(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid customer id")
	}

	var customer models.Customer
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&customer).Error; err != nil {
		return httpapi.NotFound("customer not found")
	}
	return httpapi.OK(c, http.StatusOK, customer)
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Channel string `json:"channel"`
}

func (h *CustomerHandler) Create(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}
	if req.Name == "" {
		return httpapi.BadRequest("name is required")
	}
	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		return httpapi.BadRequest(err.Error())
	}

	customer := models.Customer{
		TenantID: user.TenantID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Channel:  channel,
	}
	if err := h.DB.Create(&customer).Error; err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	return httpapi.OK(c, http.StatusCreated, customer)
}

func (h *CustomerHandler) Update(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid customer id")
	}

	var req customerRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}

	var customer models.Customer
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&customer).Error; err != nil {
		return httpapi.NotFound("customer not found")
	}

	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.Email != "" {
		customer.Email = req.Email
	}
	if req.Phone != "" {
		customer.Phone = req.Phone
	}
	if req.Channel != "" {
		channel, err := models.ParseChannel(req.Channel)
		if err != nil {
			return httpapi.BadRequest(err.Error())
		}
		customer.Channel = channel
	}

	if err := h.DB.Save(&customer).Error; err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return httpapi.OK(c, http.StatusOK, customer)
}

func (h *CustomerHandler) Delete(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid customer id")
	}

	res := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).Delete(&models.Customer{})
	if res.Error != nil {
		return fmt.Errorf("delete customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return httpapi.NotFound("customer not found")
	}
	return c.NoContent(http.StatusNoContent)
}
