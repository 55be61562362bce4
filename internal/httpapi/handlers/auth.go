package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/events"
	"github.com/shopmind/shopmind/internal/hash"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer events.Publisher
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}
	if req.Email == "" || req.Password == "" || req.TenantID == "" {
		return httpapi.BadRequest("email, password and tenant_id are required")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_failed", "reason", "hash", "error", err)
		return err
	}

	var existing models.User
	err = h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		l.Warn("register_failed", "reason", "user_exists")
		return httpapi.NewError(http.StatusConflict, httpapi.CodeConflict, "user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user lookup: %w", err)
	}

	// Public signup creates the tenant's owner account. Staff accounts
	// with narrower roles are provisioned by an admin.
	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: pwHash,
		Role:         models.RoleAdmin,
		TenantID:     req.TenantID,
		Active:       true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	h.publishUserEvent(c, "user_registered", &user)

	l.Info("register_success", "user_id", user.ID)
	return httpapi.OK(c, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login_failed", "reason", "unknown_email")
		return httpapi.Unauthenticated(httpapi.CodeUnauthenticated, "invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "reason", "bad_password", "user_id", user.ID)
		return httpapi.Unauthenticated(httpapi.CodeUnauthenticated, "invalid email or password")
	}
	if !user.Active {
		l.Warn("login_failed", "reason", "inactive", "user_id", user.ID)
		return httpapi.Forbidden("account deactivated")
	}

	signed, err := h.Tokens.Issue(fmt.Sprint(user.ID), user.Role, user.TenantID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	h.publishUserEvent(c, "user_logged_in", &user)

	l.Info("login_success", "user_id", user.ID)
	return httpapi.OK(c, http.StatusOK, echo.Map{
		"token": signed,
		"user":  user,
	})
}

// Me returns the user the gate resolved. Logout is client-side state
// clearing; tokens stay valid until expiry.
func (h *AuthHandler) Me(c echo.Context) error {
	return httpapi.OK(c, http.StatusOK, middleware.CurrentUser(c))
}

func (h *AuthHandler) publishUserEvent(c echo.Context, typ string, user *models.User) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	event := echo.Map{
		"type":      typ,
		"user_id":   user.ID,
		"tenant_id": user.TenantID,
	}
	if err := h.Producer.Publish(ctx, events.TopicUsers, fmt.Sprint(user.ID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_error", "error", err)
	}
}
