// Package auth verifies connection credentials and resolves them to rider
// identities. Token issuance lives in the REST API service; this side only
// validates.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kylerivers/motorev-sub004/internal/models"
	"github.com/kylerivers/motorev-sub004/internal/realtime"
)

var ErrAuthentication = errors.New("authentication failed")

// UserLookup resolves a user ID claim to a stored account.
type UserLookup interface {
	UserByID(ctx context.Context, userID uint) (*models.User, error)
}

// Verifier validates HS256 bearer tokens and resolves the user_id claim to
// an Identity. A valid token for a user that no longer exists is refused.
type Verifier struct {
	secret []byte
	users  UserLookup
}

func NewVerifier(secret string, users UserLookup) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		users:  users,
	}
}

// Verify parses and validates the token and returns the connection's
// Identity. Every failure path wraps ErrAuthentication; no state is created
// for a refused credential.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (realtime.Identity, error) {
	if tokenString == "" {
		return realtime.Identity{}, fmt.Errorf("%w: missing token", ErrAuthentication)
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return realtime.Identity{}, fmt.Errorf("%w: invalid token", ErrAuthentication)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return realtime.Identity{}, fmt.Errorf("%w: invalid token claims", ErrAuthentication)
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return realtime.Identity{}, fmt.Errorf("%w: invalid user ID in token", ErrAuthentication)
	}

	user, err := v.users.UserByID(ctx, uint(rawID))
	if err != nil {
		if errors.Is(err, realtime.ErrNotFound) {
			return realtime.Identity{}, fmt.Errorf("%w: unknown user", ErrAuthentication)
		}
		return realtime.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}

	return realtime.Identity{
		UserID:    user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}
