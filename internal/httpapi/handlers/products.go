package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/search"
	"github.com/shopmind/shopmind/internal/util"
)

type ProductHandler struct {
	DB *gorm.DB
	ES *elasticsearch.Client
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *ProductHandler) indexAsync(c echo.Context, p models.Product) {
	if h.ES == nil {
		return
	}
	l := logging.FromContext(c.Request().Context())
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := search.IndexProduct(ctx, h.ES, p); err != nil {
			l.Error("es_index_error", "product_id", p.ID, "error", err)
		}
	}()
}

func (h *ProductHandler) List(c echo.Context) error {
	user := middleware.CurrentUser(c)
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Paginate(page, size)

	var total int64
	if err := h.DB.Model(&models.Product{}).Where("tenant_id = ?", user.TenantID).Count(&total).Error; err != nil {
		return fmt.Errorf("count products: %w", err)
	}

	var items []models.Product
	if err := h.DB.Where("tenant_id = ?", user.TenantID).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	return httpapi.OK(c, http.StatusOK, echo.Map{
		"items": items,
		"meta": echo.Map{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *ProductHandler) Get(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid product id")
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&product).Error; err != nil {
		return httpapi.NotFound("product not found")
	}
	return httpapi.OK(c, http.StatusOK, product)
}

// Pointer fields distinguish "omitted" from a zero value on PATCH.
type productRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *uint    `json:"stock"`
	Active      *bool    `json:"active"`
}

func (h *ProductHandler) Create(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}
	if req.Name == "" || req.Price == nil || *req.Price < 0 {
		return httpapi.BadRequest("name is required and price must be non-negative")
	}

	product := models.Product{
		TenantID:    user.TenantID,
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Active:      true,
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	h.indexAsync(c, product)
	return httpapi.OK(c, http.StatusCreated, product)
}

func (h *ProductHandler) Update(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid product id")
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return httpapi.BadRequest("invalid body")
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).First(&product).Error; err != nil {
		return httpapi.NotFound("product not found")
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return httpapi.BadRequest("price must be non-negative")
		}
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := h.DB.Save(&product).Error; err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	h.indexAsync(c, product)
	return httpapi.OK(c, http.StatusOK, product)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	user := middleware.CurrentUser(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return httpapi.BadRequest("invalid product id")
	}

	res := h.DB.Where("id = ? AND tenant_id = ?", id, user.TenantID).Delete(&models.Product{})
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return httpapi.NotFound("product not found")
	}

	if h.ES != nil {
		l := logging.FromContext(c.Request().Context())
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := search.DeleteProduct(ctx, h.ES, uint(id)); err != nil {
				l.Error("es_delete_error", "product_id", id, "error", err)
			}
		}()
	}
	return c.NoContent(http.StatusNoContent)
}

// Search queries the Elasticsearch index scoped to the caller's tenant.
func (h *ProductHandler) Search(c echo.Context) error {
	user := middleware.CurrentUser(c)
	q := c.QueryParam("q")
	if q == "" {
		return httpapi.BadRequest("q is required")
	}
	if h.ES == nil {
		return httpapi.NewError(http.StatusServiceUnavailable, httpapi.CodeInternal, "search unavailable")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Paginate(page, size)

	total, items, err := search.SearchProducts(c.Request().Context(), h.ES, user.TenantID, q, from, limit)
	if err != nil {
		return fmt.Errorf("search products: %w", err)
	}
	return httpapi.OK(c, http.StatusOK, echo.Map{"total": total, "items": items})
}
