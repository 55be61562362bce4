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
)

// ChannelHandler manages a tenant's messaging-channel connections.
// Credentials are write-only: they never appear in responses.
type ChannelHandler struct {
	DB *gorm.DB
}

func (h *ChannelHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var items []models.ChannelConnection
	if err := h.DB.Where("tenant_id = ?", user.TenantID).Order("id ASC").Find(&items).Error; err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	return httpapi.OK(c, http.StatusOK, items)
}

type channelRequest struct {
	Channel     string `json:"channel"`
	Credentials string `json:"credentials"`
	Active      *bool  `json:"active"`
}

func (h *ChannelHandler) Create(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req channelRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}
	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		return httpapi.BadRequest(err.Error())
	}
	if req.Credentials == "" {
		return httpapi.BadRequest("credentials are required")
	}

	var existing models.ChannelConnection
	if err := h.DB.Where("tenant_id = ? AND channel = ?", user.TenantID, channel).First(&existing).Error; err == nil {
		return httpapi.NewError(http.StatusConflict, httpapi.CodeConflict, "channel already connected")
	}

	conn := models.ChannelConnection{
		TenantID:    user.TenantID,
		Channel:     channel,
		Credentials: req.Credentials,
		Active:      true,
	}
	if err := h.DB.Create(&conn).Error; err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	return httpapi.OK(c, http.StatusCreated, conn)
}

func (h *ChannelHandler) Update(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid channel id")
	}

	var req channelRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}

	var conn models.ChannelConnection
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&conn).Error; err != nil {
		return httpapi.NotFound("channel not found")
	}

	if req.Credentials != "" {
		conn.Credentials = req.Credentials
	}
	if req.Active != nil {
		conn.Active = *req.Active
	}
	if err := h.DB.Save(&conn).Error; err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	return httpapi.OK(c, http.StatusOK, conn)
}

func (h *ChannelHandler) Delete(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid channel id")
	}

	res := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).Delete(&models.ChannelConnection{})
	if res.Error != nil {
		return fmt.Errorf("delete channel: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return httpapi.NotFound("channel not found")
	}
	return c.NoContent(http.StatusNoContent)
}
