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

func TestUserCreateByAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)

	rec := env.do(http.MethodPost, "/api/v1/users", env.tokenFor(admin), map[string]string{
		"email":    "staff@store.test",
		"name":     "Staff",
		"password": "password",
		"role":     "manager",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	require.Equal(t, models.RoleManager, created.Role)
	require.Equal(t, "t1", created.TenantID)
	require.True(t, created.Active)

	// The new account can log in straight away.
	rec = env.do(http.MethodPost, "/api/v1/login", "", map[string]string{
		"email":    "staff@store.test",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUserCreateRejectsUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)

	rec := env.do(http.MethodPost, "/api/v1/users", env.tokenFor(admin), map[string]string{
		"email":    "staff@store.test",
		"password": "password",
		"role":     "superuser",
	})
	requireErrorCode(t, rec, http.StatusBadRequest, httpapi.CodeValidation)
}

func TestUserCreateForbiddenForManager(t *testing.T) {
	env := newTestEnv(t)
	manager := env.createUser(models.RoleManager, "t1", "manager@store.test", true)

	rec := env.do(http.MethodPost, "/api/v1/users", env.tokenFor(manager), map[string]string{
		"email":    "staff@store.test",
		"password": "password",
		"role":     "viewer",
	})
	requireErrorCode(t, rec, http.StatusForbidden, httpapi.CodeForbidden)
}

func TestUserDeactivation(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)
	staff := env.createUser(models.RoleViewer, "t1", "staff@store.test", true)
	staffToken := env.tokenFor(staff)

	// Token works before deactivation.
	rec := env.do(http.MethodGet, "/api/v1/me", staffToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", staff.ID),
		env.tokenFor(admin), map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The still-valid token is now refused.
	rec = env.do(http.MethodGet, "/api/v1/me", staffToken, nil)
	requireErrorCode(t, rec, http.StatusForbidden, httpapi.CodeForbidden)
}

func TestUserListScopedToTenant(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)
	env.createUser(models.RoleViewer, "t1", "staff@store.test", true)
	env.createUser(models.RoleAdmin, "t2", "other@store.test", true)

	rec := env.do(http.MethodGet, "/api/v1/users", env.tokenFor(admin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &users))
	require.Len(t, users, 2)
	for _, u := range users {
		require.Equal(t, "t1", u.TenantID)
	}
}
