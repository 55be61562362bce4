package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/hash"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/models"
)

// UserHandler lets tenant admins provision and deactivate staff accounts.
// Deactivation is immediate: the gate re-reads the record on every request.
type UserHandler struct {
	DB *gorm.DB
}

func (h *UserHandler) List(c echo.Context) error {
	admin := middleware.CurrentUser(c)

	var users []models.User
	if err := h.DB.Where("tenant_id = ?", admin.TenantID).Order("id ASC").Find(&users).Error; err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	return httpapi.OK(c, http.StatusOK, users)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *UserHandler) Create(c echo.Context) error {
	admin := middleware.CurrentUser(c)

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return httpapi.BadRequest("email and password are required")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return httpapi.BadRequest(err.Error())
	}

	var existing models.User
	err = h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return httpapi.NewError(http.StatusConflict, httpapi.CodeConflict, "user already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user lookup: %w", err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: pwHash,
		Role:         role,
		TenantID:     admin.TenantID,
		Active:       true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return httpapi.OK(c, http.StatusCreated, user)
}

type updateUserRequest struct {
	Role   string `json:"role"`
	Active *bool  `json:"active"`
}

func (h *UserHandler) Update(c echo.Context) error {
	admin := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid user id")
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}

	var user models.User
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, admin.TenantID).First(&user).Error; err != nil {
		return httpapi.NotFound("user not found")
	}

	if req.Role != "" {
		role, err := models.ParseRole(req.Role)
		if err != nil {
			return httpapi.BadRequest(err.Error())
		}
		user.Role = role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return httpapi.OK(c, http.StatusOK, user)
}
