package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/models"
)

func TestProductCRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)
	bearer := env.tokenFor(admin)

	rec := env.do(http.MethodPost, "/api/v1/products", bearer, map[string]any{
		"name":        "Standing desk",
		"description": "Oak, height adjustable",
		"price":       499.0,
		"stock":       12,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var product models.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &product))
	require.Equal(t, "t1", product.TenantID)
	require.NotZero(t, product.ID)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, map[string]any{
		"price": 459.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &product))
	require.Equal(t, 459.0, product.Price)

	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, nil)
	requireErrorCode(t, rec, http.StatusNotFound, httpapi.CodeNotFound)
}

// A PATCH only touches the fields it carries: omitted fields keep their
// stored values, and zero is a settable price.
func TestProductUpdatePartial(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)
	bearer := env.tokenFor(admin)

	product := &models.Product{TenantID: "t1", Name: "Desk", Price: 499, Stock: 12, Active: true}
	require.NoError(t, env.DB.Create(product).Error)

	rec := env.do(http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, map[string]any{
		"price": 459.0,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var reloaded models.Product
	require.NoError(t, env.DB.First(&reloaded, product.ID).Error)
	require.Equal(t, 459.0, reloaded.Price)
	require.Equal(t, uint(12), reloaded.Stock)

	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, map[string]any{
		"stock": 7,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, env.DB.First(&reloaded, product.ID).Error)
	require.Equal(t, uint(7), reloaded.Stock)
	require.Equal(t, 459.0, reloaded.Price)

	// Zero is a legitimate price, not an omission.
	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, map[string]any{
		"price": 0.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, env.DB.First(&reloaded, product.ID).Error)
	require.Equal(t, 0.0, reloaded.Price)

	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/products/%d", product.ID), bearer, map[string]any{
		"price": -1.0,
	})
	requireErrorCode(t, rec, http.StatusBadRequest, httpapi.CodeValidation)
}

func TestProductCreateRequiresPrice(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)

	rec := env.do(http.MethodPost, "/api/v1/products", env.tokenFor(admin), map[string]any{
		"name": "Desk",
	})
	requireErrorCode(t, rec, http.StatusBadRequest, httpapi.CodeValidation)
}

func TestProductTenantIsolation(t *testing.T) {
	env := newTestEnv(t)
	a := env.createUser(models.RoleAdmin, "t1", "a@store.test", true)
	b := env.createUser(models.RoleAdmin, "t2", "b@store.test", true)

	rec := env.do(http.MethodPost, "/api/v1/products", env.tokenFor(a), map[string]any{
		"name":  "Lamp",
		"price": 40.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var product models.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &product))

	// Another tenant cannot see it.
	rec = env.do(http.MethodGet, fmt.Sprintf("/api/v1/products/%d", product.ID), env.tokenFor(b), nil)
	requireErrorCode(t, rec, http.StatusNotFound, httpapi.CodeNotFound)
}

func TestProductListPagination(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)
	bearer := env.tokenFor(admin)

	for i := 0; i < 25; i++ {
		require.NoError(t, env.DB.Create(&models.Product{
			TenantID: "t1",
			Name:     fmt.Sprintf("item-%02d", i),
			Price:    float64(i),
			Active:   true,
		}).Error)
	}

	rec := env.do(http.MethodGet, "/api/v1/products?page=2&size=10", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		Items []models.Product `json:"items"`
		Meta  struct {
			Page  int   `json:"page"`
			Size  int   `json:"size"`
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	require.Len(t, data.Items, 10)
	require.Equal(t, int64(25), data.Meta.Total)
	require.Equal(t, "item-10", data.Items[0].Name)
}

func TestProductRoleGate(t *testing.T) {
	env := newTestEnv(t)
	viewer := env.createUser(models.RoleViewer, "t1", "viewer@store.test", true)
	manager := env.createUser(models.RoleManager, "t1", "manager@store.test", true)

	body := map[string]any{"name": "Chair", "price": 80.0}

	rec := env.do(http.MethodPost, "/api/v1/products", env.tokenFor(viewer), body)
	requireErrorCode(t, rec, http.StatusForbidden, httpapi.CodeForbidden)

	rec = env.do(http.MethodPost, "/api/v1/products", env.tokenFor(manager), body)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Delete is admin-only, manager is refused.
	var product models.Product
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &product))
	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", product.ID), env.tokenFor(manager), nil)
	requireErrorCode(t, rec, http.StatusForbidden, httpapi.CodeForbidden)
}
