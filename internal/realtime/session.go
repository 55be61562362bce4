package realtime

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo/v4"

	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/identity"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/token"
)

// Session is one authenticated websocket connection. Identity is checked
// once at the handshake; per-message handlers trust it for the lifetime
// of the connection.
type Session struct {
	conn   net.Conn
	user   *models.User
	tenant string

	writeMu sync.Mutex
}

func (s *Session) Send(data []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = wsutil.WriteServerText(s.conn, data)
}

// Client-to-server frames.
type clientFrame struct {
	Event          string `json:"event"`
	ConversationID uint   `json:"conversation_id"`
}

// Server owns the websocket endpoint: handshake gate, room membership,
// typing relay.
type Server struct {
	Resolver   *identity.Resolver
	Hub        *Hub
	Dispatcher Dispatcher
}

// Handler gates the handshake and runs the connection's read loop. The
// token comes from the Authorization header or a ?token= query parameter;
// refusal happens before the upgrade.
func (srv *Server) Handler(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("component", "realtime")

	raw := c.QueryParam("token")
	if raw == "" {
		var err error
		raw, err = identity.FromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return httpapi.Unauthenticated(httpapi.CodeUnauthenticated, "missing bearer token")
		}
	}

	user, claims, err := srv.Resolver.Resolve(ctx, raw)
	switch {
	case errors.Is(err, token.ErrExpired):
		return httpapi.Unauthenticated(httpapi.CodeTokenExpired, "token expired")
	case errors.Is(err, token.ErrMalformed):
		return httpapi.Unauthenticated(httpapi.CodeTokenMalformed, "invalid token")
	case errors.Is(err, identity.ErrUnknownSubject):
		return httpapi.Unauthenticated(httpapi.CodeUnauthenticated, "unknown subject")
	case errors.Is(err, identity.ErrInactive):
		return httpapi.Forbidden("account deactivated")
	case err != nil:
		l.Error("handshake_error", "error", err)
		return err
	}

	conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
	if err != nil {
		return err
	}
	defer conn.Close()

	sess := &Session{conn: conn, user: user, tenant: claims.Tenant}
	srv.Hub.Join(TenantRoom(claims.Tenant), sess)
	defer srv.Hub.LeaveAll(sess)

	l = l.With("user_id", user.ID, "tenant", claims.Tenant)
	l.Info("connected")

	srv.readLoop(c, sess, l)

	l.Info("disconnected")
	return nil
}

func (srv *Server) readLoop(c echo.Context, sess *Session, l *slog.Logger) {
	for {
		data, err := wsutil.ReadClientText(sess.conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				var closed wsutil.ClosedError
				if !errors.As(err, &closed) {
					l.Warn("read error", "error", err)
				}
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			l.Warn("bad frame", "error", err)
			continue
		}
		srv.handleFrame(c, sess, frame)
	}
}

func (srv *Server) handleFrame(c echo.Context, sess *Session, frame clientFrame) {
	ctx := c.Request().Context()
	switch frame.Event {
	case "join:conversation":
		srv.Hub.Join(ConversationRoom(frame.ConversationID), sess)
	case "leave:conversation":
		srv.Hub.Leave(ConversationRoom(frame.ConversationID), sess)
	case "typing:start", "typing:stop":
		_ = srv.Dispatcher.Publish(ctx, ConversationRoom(frame.ConversationID), frame.Event, echo.Map{
			"user_id": sess.user.ID,
			"name":    sess.user.Name,
		})
	}
}
