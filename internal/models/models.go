package models

import (
	"fmt"
	"time"
)

// Role is the closed set of dashboard roles. Anything else is rejected at
// the edge so a typo can never grant or deny access silently.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleViewer:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Channel is the closed set of messaging channels a tenant can connect.
type Channel string

const (
	ChannelWeb       Channel = "web"
	ChannelWhatsApp  Channel = "whatsapp"
	ChannelTelegram  Channel = "telegram"
	ChannelInstagram Channel = "instagram"
	ChannelMessenger Channel = "messenger"
)

func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelWeb, ChannelWhatsApp, ChannelTelegram, ChannelInstagram, ChannelMessenger:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// Order payment states.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Message sender kinds.
const (
	SenderCustomer  = "customer"
	SenderAgent     = "agent"
	SenderAssistant = "assistant"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Name         string    `gorm:"not null"                 json:"name"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         Role      `gorm:"not null"                 json:"role"`
	TenantID     string    `gorm:"index;not null"           json:"tenant_id"`
	Active       bool      `gorm:"default:true"             json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Customer struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID  string    `gorm:"index;not null"           json:"tenant_id"`
	Name      string    `gorm:"not null"                 json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Channel   Channel   `gorm:"not null"                 json:"channel"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID    string  `gorm:"index;not null"           json:"tenant_id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Stock       uint    `json:"stock"`
	Active      bool    `gorm:"default:true"             json:"active"`
}

type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID      string      `gorm:"index;not null"           json:"tenant_id"`
	CustomerID    uint        `gorm:"index;not null"           json:"customer_id"`
	Total         float64     `gorm:"not null"                 json:"total"`
	Currency      string      `gorm:"not null;default:USD"     json:"currency"`
	Status        string      `gorm:"not null;default:new"     json:"status"`
	PaymentStatus string      `gorm:"not null;default:pending" json:"payment_status"`
	TransactionID string      `gorm:"index"                    json:"transaction_id"`
	Items         []OrderItem `gorm:"foreignKey:OrderID"       json:"items,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint    `gorm:"index;not null"           json:"order_id"`
	ProductID uint    `gorm:"not null"                 json:"product_id"`
	Quantity  uint    `gorm:"default:1;check:quantity>0" json:"quantity"`
	UnitPrice float64 `gorm:"not null"                 json:"unit_price"`
}

type Conversation struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID      string    `gorm:"index;not null"           json:"tenant_id"`
	CustomerID    uint      `gorm:"index;not null"           json:"customer_id"`
	Channel       Channel   `gorm:"not null"                 json:"channel"`
	Persona       string    `gorm:"not null;default:sales"   json:"persona"`
	Status        string    `gorm:"not null;default:open"    json:"status"`
	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
}

type Message struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID uint      `gorm:"index;not null"           json:"conversation_id"`
	Sender         string    `gorm:"not null"                 json:"sender"`
	Body           string    `gorm:"not null"                 json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

type ChannelConnection struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID    string    `gorm:"index;not null"           json:"tenant_id"`
	Channel     Channel   `gorm:"not null"                 json:"channel"`
	Credentials string    `gorm:"not null"                 json:"-"`
	Active      bool      `gorm:"default:true"             json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&User{}, &Customer{}, &Product{}, &Order{}, &OrderItem{},
		&Conversation{}, &Message{}, &ChannelConnection{},
	}
}
