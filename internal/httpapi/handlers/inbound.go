package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/ai"
	"github.com/shopmind/shopmind/internal/events"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/realtime"
)

// historyLimit caps how much context the model sees per reply.
const historyLimit = 20

// InboundHandler receives customer messages relayed from connected
// channels, persists them, asks the AI engine for a reply and broadcasts
// both sides of the exchange.
type InboundHandler struct {
	DB         *gorm.DB
	Engine     *ai.Engine
	Producer   events.Publisher
	Dispatcher realtime.Dispatcher
}

type inboundMessage struct {
	TenantID      string `json:"tenant_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	ExternalRef   string `json:"external_ref"`
	Text          string `json:"text"`
}

func (h *InboundHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "channel_inbound")

	channel, err := models.ParseChannel(c.Param("channel"))
	if err != nil {
		return httpapi.BadRequest(err.Error())
	}

	var req inboundMessage
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}
	if req.TenantID == "" || req.Text == "" {
		return httpapi.BadRequest("tenant_id and text are required")
	}

	var conn models.ChannelConnection
	if err := h.DB.Where("tenant_id = ? AND channel = ? AND active = ?", req.TenantID, channel, true).
		First(&conn).Error; err != nil {
		l.Warn("no_active_connection", "tenant_id", req.TenantID, "channel", channel)
		return httpapi.NotFound("no active connection for this channel")
	}

	customer, err := h.findOrCreateCustomer(ctx, &req, channel)
	if err != nil {
		return err
	}
	conv, err := h.findOrCreateConversation(ctx, customer, channel)
	if err != nil {
		return err
	}

	incoming := models.Message{
		ConversationID: conv.ID,
		Sender:         models.SenderCustomer,
		Body:           req.Text,
	}
	if err := h.DB.Create(&incoming).Error; err != nil {
		return fmt.Errorf("store message: %w", err)
	}
	h.broadcast(c, conv, &incoming)

	var history []models.Message
	if err := h.DB.Where("conversation_id = ? AND id < ?", conv.ID, incoming.ID).
		Order("id DESC").Limit(historyLimit).Find(&history).Error; err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	// Oldest first for the prompt.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	replyText, err := h.Engine.Reply(ctx, conv, history, req.Text)
	if err != nil {
		// The customer message is stored either way; the reply can come
		// later from a human agent.
		l.Error("ai_reply_error", "conversation_id", conv.ID, "error", err)
		return httpapi.OK(c, http.StatusAccepted, echo.Map{
			"conversation_id": conv.ID,
			"message_id":      incoming.ID,
		})
	}

	reply := models.Message{
		ConversationID: conv.ID,
		Sender:         models.SenderAssistant,
		Body:           replyText,
	}
	if err := h.DB.Create(&reply).Error; err != nil {
		return fmt.Errorf("store reply: %w", err)
	}
	if err := h.DB.Model(conv).Update("last_message_at", time.Now()).Error; err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	h.broadcast(c, conv, &reply)

	return httpapi.OK(c, http.StatusOK, echo.Map{
		"conversation_id": conv.ID,
		"reply":           reply,
	})
}

func (h *InboundHandler) findOrCreateCustomer(ctx context.Context, req *inboundMessage, channel models.Channel) (*models.Customer, error) {
	var customer models.Customer
	q := h.DB.WithContext(ctx).Where("tenant_id = ? AND channel = ?", req.TenantID, channel)
	switch {
	case req.CustomerEmail != "":
		q = q.Where("email = ?", req.CustomerEmail)
	case req.CustomerPhone != "":
		q = q.Where("phone = ?", req.CustomerPhone)
	default:
		q = q.Where("name = ?", req.CustomerName)
	}
	if err := q.First(&customer).Error; err == nil {
		return &customer, nil
	}

	name := req.CustomerName
	if name == "" {
		name = "guest"
	}
	customer = models.Customer{
		TenantID: req.TenantID,
		Name:     name,
		Email:    req.CustomerEmail,
		Phone:    req.CustomerPhone,
		Channel:  channel,
	}
	if err := h.DB.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &customer, nil
}

func (h *InboundHandler) findOrCreateConversation(ctx context.Context, customer *models.Customer, channel models.Channel) (*models.Conversation, error) {
	var conv models.Conversation
	err := h.DB.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND channel = ? AND status = ?",
			customer.TenantID, customer.ID, channel, "open").
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}

	conv = models.Conversation{
		TenantID:      customer.TenantID,
		CustomerID:    customer.ID,
		Channel:       channel,
		Persona:       ai.PersonaSales,
		Status:        "open",
		LastMessageAt: time.Now(),
	}
	if err := h.DB.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &conv, nil
}

func (h *InboundHandler) broadcast(c echo.Context, conv *models.Conversation, msg *models.Message) {
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
		"type":            "message_received",
		"conversation_id": conv.ID,
		"tenant_id":       conv.TenantID,
		"sender":          msg.Sender,
	}
	if err := h.Producer.Publish(ctx, events.TopicMessages, fmt.Sprint(conv.ID), event); err != nil {
		l.Error("kafka_publish_error", "error", err)
	}
}
