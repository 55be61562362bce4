package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/shopmind/shopmind/internal/models"
	"github.com/shopmind/shopmind/internal/token"
)

var (
	ErrNoToken        = errors.New("missing bearer token")
	ErrUnknownSubject = errors.New("unknown subject")
	ErrInactive       = errors.New("account inactive")
)

// Resolver turns a bearer credential into a live user record. The record is
// fetched fresh on every call so a deactivated account is locked out
// immediately, whatever its token still says.
type Resolver struct {
	DB     *gorm.DB
	Tokens *token.Service
}

// FromHeader strips the Bearer prefix from an Authorization header value.
func FromHeader(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", ErrNoToken
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" {
		return "", ErrNoToken
	}
	return raw, nil
}

// Resolve verifies the raw token and loads the current user record.
// Token errors (token.ErrExpired, token.ErrMalformed) pass through unwrapped.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*models.User, *token.Claims, error) {
	claims, err := r.Tokens.Verify(raw)
	if err != nil {
		return nil, nil, err
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, nil, token.ErrMalformed
	}

	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUnknownSubject
		}
		return nil, nil, fmt.Errorf("user lookup: %w", err)
	}
	if !user.Active {
		return nil, nil, ErrInactive
	}

	return &user, claims, nil
}
