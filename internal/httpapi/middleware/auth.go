package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/shopmind/shopmind/internal/httpapi"
	"github.com/shopmind/shopmind/internal/identity"
	"github.com/shopmind/shopmind/internal/logging"
	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/token"
)

const userContextKey = "current_user"

// Gate authenticates requests before any handler runs. Auth failures are
// settled here; business logic never sees an unauthenticated request.
type Gate struct {
	Resolver *identity.Resolver
}

func (g *Gate) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		l := logging.FromContext(ctx)

		raw, err := identity.FromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return httpapi.Unauthenticated(httpapi.CodeUnauthenticated, "missing bearer token")
		}

		user, _, err := g.Resolver.Resolve(ctx, raw)
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
			l.Error("auth_gate_error", "error", err)
			return err
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// CurrentUser returns the user resolved by RequireAuth, nil when absent.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userContextKey).(*models.User)
	return u
}

// RequireRole restricts a route to the given allow-list. It assumes
// RequireAuth already ran; a missing identity fails closed.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil || !allowed[user.Role] {
				return httpapi.Forbidden("insufficient role")
			}
			return next(c)
		}
	}
}
