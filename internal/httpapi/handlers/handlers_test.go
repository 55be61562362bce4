package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/ai"
	"github.com/shopmind/shopmind/internal/hash"
	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/httpapi/handlers"
	"github.com/shopmind/shopmind/internal/httpapi/middleware"
	"github.com/shopmind/shopmind/internal/identity"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/realtime"
	"github.com/shopmind/shopmind/internal/token"
	httpserver "github.com/shopmind/shopmind/internal/transport/http"
)

type publishedEvent struct {
	Topic string
	Key   string
	Event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (p *fakePublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

type broadcast struct {
	Room    string
	Event   string
	Payload any
}

type fakeDispatcher struct {
	mu        sync.Mutex
	published []broadcast
}

func (d *fakeDispatcher) Publish(_ context.Context, room, event string, payload any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, broadcast{Room: room, Event: event, Payload: payload})
	return nil
}

func (d *fakeDispatcher) byEvent(event string) []broadcast {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []broadcast
	for _, b := range d.published {
		if b.Event == event {
			out = append(out, b)
		}
	}
	return out
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.Service
	Pub    *fakePublisher
	Disp   *fakeDispatcher
}

const paymentTestSecret = "payment-test-secret"

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithEngine(t, nil)
}

func newTestEnvWithEngine(t *testing.T, engine *ai.Engine) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	tokens := token.NewService([]byte("test-secret"), 15*time.Minute)
	pub := &fakePublisher{}
	disp := &fakeDispatcher{}
	resolver := &identity.Resolver{DB: db, Tokens: tokens}

	e := echo.New()
	e.HTTPErrorHandler = httpapi.ErrorHandler

	deps := &httpserver.Deps{
		Gate:          &middleware.Gate{Resolver: resolver},
		Auth:          &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: pub},
		Products:      &handlers.ProductHandler{DB: db},
		Customers:     &handlers.CustomerHandler{DB: db},
		Orders:        &handlers.OrderHandler{DB: db, Producer: pub},
		Conversations: &handlers.ConversationHandler{DB: db, Producer: pub, Dispatcher: disp},
		Channels:      &handlers.ChannelHandler{DB: db},
		Users:         &handlers.UserHandler{DB: db},
		Analytics:     &handlers.AnalyticsHandler{DB: db},
		PaymentHook:   &handlers.PaymentWebhookHandler{DB: db, Secret: paymentTestSecret, Producer: pub, Dispatcher: disp},
		Inbound:       &handlers.InboundHandler{DB: db, Engine: engine, Producer: pub, Dispatcher: disp},
		Realtime:      &realtime.Server{Resolver: resolver, Hub: realtime.NewHub(), Dispatcher: disp},
	}
	httpserver.Register(e, deps)

	return &testEnv{T: t, E: e, DB: db, Tokens: tokens, Pub: pub, Disp: disp}
}

func (env *testEnv) createUser(role models.Role, tenant, email string, active bool) *models.User {
	env.T.Helper()
	pwHash, err := hash.HashPassword("password")
	require.NoError(env.T, err)
	user := &models.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: pwHash,
		Role:         role,
		TenantID:     tenant,
		Active:       active,
	}
	require.NoError(env.T, env.DB.Create(user).Error)
	// The column's default:true overrides a zero-value Active on insert,
	// so persist the requested flag explicitly.
	require.NoError(env.T, env.DB.Model(user).Update("active", active).Error)
	return user
}

func (env *testEnv) tokenFor(user *models.User) string {
	env.T.Helper()
	signed, err := env.Tokens.Issue(fmt.Sprint(user.ID), user.Role, user.TenantID)
	require.NoError(env.T, err)
	return signed
}

func (env *testEnv) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	env.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	require.False(t, env.Success)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
}
