package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/ai"
	"github.com/shopmind/shopmind/internal/events"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/realtime"
	"github.com/shopmind/shopmind/internal/util"
)

type ConversationHandler struct {
	DB         *gorm.DB
	Producer   events.Publisher
	Dispatcher realtime.Dispatcher
}

func (h *ConversationHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Paginate(page, size)

	q := h.DB.Model(&models.Conversation{}).Where("tenant_id = ?", user.TenantID)
	if status := c.QueryParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return fmt.Errorf("count conversations: %w", err)
	}

	var items []models.Conversation
	if err := q.Order("last_message_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	return httpapi.OK(c, http.StatusOK, echo.Map{
		"items": items,
		"meta":  echo.Map{"page": page, "size": limit, "total": total},
	})
}

func (h *ConversationHandler) Messages(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid conversation id")
	}

	var conv models.Conversation
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&conv).Error; err != nil {
		return httpapi.NotFound("conversation not found")
	}

	var messages []models.Message
	if err := h.DB.Where("conversation_id = ?", conv.ID).Order("id ASC").Find(&messages).Error; err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	return httpapi.OK(c, http.StatusOK, echo.Map{"conversation": conv, "messages": messages})
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// Send posts an agent reply into a conversation and broadcasts it to the
// conversation and tenant rooms.
func (h *ConversationHandler) Send(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid conversation id")
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil || req.Body == "" {
		return httpapi.BadRequest("body is required")
	}

	var conv models.Conversation
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&conv).Error; err != nil {
		return httpapi.NotFound("conversation not found")
	}

	msg := models.Message{
		ConversationID: conv.ID,
		Sender:         models.SenderAgent,
		Body:           req.Body,
	}
	if err := h.DB.Create(&msg).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	if err := h.DB.Model(&conv).Update("last_message_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	h.broadcastMessage(c, &conv, &msg)
	return httpapi.OK(c, http.StatusCreated, msg)
}

type personaRequest struct {
	Persona string `json:"persona"`
}

func (h *ConversationHandler) SetPersona(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid conversation id")
	}

	var req personaRequest
	if err := c.Bind(&req); err != nil || req.Persona == "" {
		return httpapi.BadRequest("persona is required")
	}
	persona, err := ai.ParsePersona(req.Persona)
	if err != nil {
		return httpapi.BadRequest(err.Error())
	}

	res := h.DB.Model(&models.Conversation{}).
		Where("id = ? AND tenant_id = ?", id, user.TenantID).
		Update("persona", persona)
	if res.Error != nil {
		return fmt.Errorf("set persona: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return httpapi.NotFound("conversation not found")
	}
	return httpapi.OK(c, http.StatusOK, echo.Map{"persona": persona})
}

func (h *ConversationHandler) broadcastMessage(c echo.Context, conv *models.Conversation, msg *models.Message) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	l := logging.FromContext(c.Request().Context())

	for _, room := range []string{
		realtime.ConversationRoom(conv.ID),
		realtime.TenantRoom(conv.TenantID),
	} {
		if err := h.Dispatcher.Publish(ctx, room, "message:new", msg); err != nil {
			l.Error("broadcast_error", "room", room, "error", err)
		}
	}

	event := echo.Map{
		"type":            "message_sent",
		"conversation_id": conv.ID,
		"tenant_id":       conv.TenantID,
		"sender":          msg.Sender,
	}
	if err := h.Producer.Publish(ctx, events.TopicMessages, fmt.Sprint(conv.ID), event); err != nil {
		l.Error("kafka_publish_error", "error", err)
	}
}
