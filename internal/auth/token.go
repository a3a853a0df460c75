package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"pawchat/internal/utils"
)

const (
	// Token expiration time - 24 hours
	tokenExpiration = 24 * time.Hour
)

// Claims represents the JWT claims for our application
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// Session is the client-side view of an authenticated session: who we are
// and when the token stops being usable.
type Session struct {
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
}

// GenerateToken creates a new signed JWT for the given user ID. Used by the
// devserver and the simulator; a real deployment issues tokens elsewhere.
func GenerateToken(userID uuid.UUID, secret string) (string, error) {
	expirationTime := time.Now().Add(tokenExpiration)

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "pawchat-api",
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken verifies the signature and expiry of a token. Server side
// only - the client never holds the signing secret.
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, utils.NewInvalidTokenError("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, utils.NewInvalidTokenError(err.Error())
	}
	if !token.Valid {
		return nil, utils.NewInvalidTokenError("token is not valid")
	}
	if claims.UserID == uuid.Nil {
		return nil, utils.NewInvalidTokenError("nil user ID in claims")
	}
	return claims, nil
}

// ParseSession extracts the session identity from a token without verifying
// the signature. The client has no signing secret; it only needs its own user
// ID and a local expiry check before dialing.
func ParseSession(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, utils.NewAppError(utils.ErrNoSession, "no session token present", nil)
	}

	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, utils.NewInvalidTokenError(err.Error())
	}
	if claims.UserID == uuid.Nil {
		return nil, utils.NewInvalidTokenError("nil user ID in claims")
	}
	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, utils.NewInvalidTokenError("token expired")
	}

	return &Session{
		UserID:    claims.UserID,
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
