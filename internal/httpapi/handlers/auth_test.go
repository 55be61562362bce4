package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopmind/shopmind/internal/events"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/models"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/register", "", map[string]string{
		"email":     "owner@store.test",
		"name":      "Owner",
		"password":  "password",
		"tenant_id": "t1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)

	var user models.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	require.Equal(t, "owner@store.test", user.Email)
	require.Equal(t, models.RoleAdmin, user.Role)
	require.Equal(t, "t1", user.TenantID)
	require.NotZero(t, user.ID)

	userEvents := env.Pub.byTopic(events.TopicUsers)
	require.Len(t, userEvents, 1)

	// Duplicate email conflicts.
	rec = env.do(http.MethodPost, "/api/v1/register", "", map[string]string{
		"email":     "owner@store.test",
		"password":  "password",
		"tenant_id": "t1",
	})
	requireErrorCode(t, rec, http.StatusConflict, httpapi.CodeConflict)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/register", "", map[string]string{
		"email": "owner@store.test",
	})
	requireErrorCode(t, rec, http.StatusBadRequest, httpapi.CodeValidation)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)

	rec := env.do(http.MethodPost, "/api/v1/login", "", map[string]string{
		"email":    user.Email,
		"password": "password",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeEnvelope(t, rec)
	var data struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.Token)
	require.Equal(t, user.ID, data.User.ID)

	// The issued token works against the gate.
	rec = env.do(http.MethodGet, "/api/v1/me", data.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestLoginBadPassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(models.RoleAdmin, "t1", "admin@store.test", true)

	rec := env.do(http.MethodPost, "/api/v1/login", "", map[string]string{
		"email":    user.Email,
		"password": "wrong",
	})
	requireErrorCode(t, rec, http.StatusUnauthorized, httpapi.CodeUnauthenticated)
}

func TestLoginInactive(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(models.RoleAdmin, "t1", "gone@store.test", false)

	rec := env.do(http.MethodPost, "/api/v1/login", "", map[string]string{
		"email":    user.Email,
		"password": "password",
	})
	requireErrorCode(t, rec, http.StatusForbidden, httpapi.CodeForbidden)
}

func TestMeReturnsFreshRecord(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(models.RoleManager, "t1", "manager@store.test", true)
	bearer := env.tokenFor(user)

	rec := env.do(http.MethodGet, "/api/v1/me", bearer, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec)
	var me models.User
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	require.Equal(t, user.ID, me.ID)
	require.Equal(t, models.RoleManager, me.Role)

	// Deactivation takes effect on the very next request.
	require.NoError(t, env.DB.Model(user).Update("active", false).Error)
	rec = env.do(http.MethodGet, "/api/v1/me", bearer, nil)
	requireErrorCode(t, rec, http.StatusForbidden, httpapi.CodeForbidden)
}
