package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/shopmind/shopmind/internal/httpapi/handlers"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/realtime"
)

type Deps struct {
	Gate          *middleware.Gate
	Auth          *handlers.AuthHandler
	Products      *handlers.ProductHandler
	Customers     *handlers.CustomerHandler
	Orders        *handlers.OrderHandler
	Conversations *handlers.ConversationHandler
	Channels      *handlers.ChannelHandler
	Users         *handlers.UserHandler
	Analytics     *handlers.AnalyticsHandler
	PaymentHook   *handlers.PaymentWebhookHandler
	Inbound       *handlers.InboundHandler
	Realtime      *realtime.Server
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.Auth.Register)
	v1.POST("/login", d.Auth.Login)

	// Gateway-facing webhooks authenticate with their own signatures,
	// not bearer tokens.
	e.POST("/webhooks/payment", d.PaymentHook.Handle)
	e.POST("/webhooks/channels/:channel", d.Inbound.Handle)

	e.GET("/ws", d.Realtime.Handler)

	authed := v1.Group("", d.Gate.RequireAuth)
	authed.GET("/me", d.Auth.Me)

	authed.GET("/products", d.Products.List)
	authed.GET("/products/:id", d.Products.Get)
	authed.GET("/search", d.Products.Search)

	staff := authed.Group("", middleware.RequireRole(models.RoleAdmin, models.RoleManager))
	staff.POST("/products", d.Products.Create)
	staff.PATCH("/products/:id", d.Products.Update)
	staff.POST("/customers", d.Customers.Create)
	staff.PATCH("/customers/:id", d.Customers.Update)
	staff.POST("/orders", d.Orders.Create)
	staff.PATCH("/orders/:id/status", d.Orders.UpdateStatus)
	staff.POST("/conversations/:id/messages", d.Conversations.Send)
	staff.PATCH("/conversations/:id/persona", d.Conversations.SetPersona)

	admin := authed.Group("", middleware.RequireRole(models.RoleAdmin))
	admin.DELETE("/products/:id", d.Products.Delete)
	admin.DELETE("/customers/:id", d.Customers.Delete)
	admin.GET("/users", d.Users.List)
	admin.POST("/users", d.Users.Create)
	admin.PATCH("/users/:id", d.Users.Update)
	admin.GET("/channels", d.Channels.List)
	admin.POST("/channels", d.Channels.Create)
	admin.PATCH("/channels/:id", d.Channels.Update)
	admin.DELETE("/channels/:id", d.Channels.Delete)

	authed.GET("/customers", d.Customers.List)
	authed.GET("/customers/:id", d.Customers.Get)
	authed.GET("/orders", d.Orders.List)
	authed.GET("/orders/:id", d.Orders.Get)
	authed.GET("/conversations", d.Conversations.List)
	authed.GET("/conversations/:id/messages", d.Conversations.Messages)
	authed.GET("/analytics/summary", d.Analytics.Summary)
}
