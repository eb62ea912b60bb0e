package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the HttpOnly cookie carrying the room session token.
const CookieName = "auth_token"

// ErrUnauthenticated is returned when a request carries no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	tokenExpire time.Duration
)

// Init generates a fresh ed25519 key pair at runtime. Tokens do not survive a
// server restart, which is fine: clients re-join with the room code.
func Init(expire time.Duration) error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	tokenExpire = expire
	return nil
}

// CreateToken signs a token binding userID to roomCode. A user belongs to
// exactly one room for its lifetime, so the pair is immutable.
func CreateToken(userID uuid.UUID, roomCode string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"room": roomCode,
	}
	if tokenExpire > 0 {
		claims["exp"] = time.Now().Add(tokenExpire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// Authenticate verifies tokenString and returns the bound (roomCode, userID).
func Authenticate(tokenString string) (string, uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", uuid.Nil, errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", uuid.Nil, errors.New("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", uuid.Nil, errors.New("missing sub in jwt")
	}
	roomCode, ok := claims["room"].(string)
	if !ok {
		return "", uuid.Nil, errors.New("missing room in jwt")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("invalid user id in token: %w", err)
	}
	return roomCode, userID, nil
}

// Identify resolves a request's auth cookie to (roomCode, userID), or fails
// with ErrUnauthenticated.
func Identify(r *http.Request) (string, uuid.UUID, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", uuid.Nil, ErrUnauthenticated
	}
	roomCode, userID, err := Authenticate(c.Value)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	return roomCode, userID, nil
}

// SetCookie writes the session token for the given identity onto the response.
func SetCookie(w http.ResponseWriter, userID uuid.UUID, roomCode string) error {
	token, err := CreateToken(userID, roomCode)
	if err != nil {
		return fmt.Errorf("create session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	return nil
}
