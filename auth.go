package agencykit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims are the bearer token claims that carry an Actor.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Role     Role   `json:"role"`
	EntityID string `json:"entity_id"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into an Actor.
func (c *Claims) Actor() *Actor {
	return &Actor{
		UserID:   c.UserID,
		Username: c.Username,
		Name:     c.Name,
		Role:     c.Role,
		EntityID: c.EntityID,
	}
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. expiry applies to Issue.
func NewTokenIssuer(secret string, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Issue signs a token for the actor.
func (t *TokenIssuer) Issue(actor *Actor) (string, error) {
	if actor == nil {
		return "", ErrNoActor
	}
	now := t.now()
	claims := Claims{
		UserID:   actor.UserID,
		Username: actor.Username,
		Name:     actor.Name,
		Role:     actor.Role,
		EntityID: actor.EntityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a token. Tokens naming an unknown role are
// rejected here so no downstream check ever sees one.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, NewError(ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, NewError(ErrInvalidToken, "invalid token")
	}
	if !claims.Role.IsValid() {
		return nil, NewError(ErrInvalidToken, fmt.Sprintf("unknown role %q", claims.Role)).WithUser(claims.UserID)
	}
	return claims, nil
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// BearerActor returns an ActorExtractor that verifies the bearer token.
// A request without a token yields (nil, nil): an anonymous request.
func BearerActor(issuer *TokenIssuer) ActorExtractor {
	return func(r *http.Request) (*Actor, error) {
		raw := BearerToken(r)
		if raw == "" {
			return nil, nil
		}
		claims, err := issuer.Verify(raw)
		if err != nil {
			return nil, err
		}
		return claims.Actor(), nil
	}
}

// HashPassword returns the bcrypt hash stored in User.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored hash. A login
// without a hash never matches.
func (u *User) CheckPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Authenticate looks up username and checks password. Unknown users and
// wrong passwords both return ErrInvalidCredentials.
func Authenticate(ctx context.Context, users UserLookup, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, NewError(ErrInvalidRecord, "username and password are required")
	}
	user, err := users.UserByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewError(ErrInvalidCredentials, "invalid credentials")
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, NewError(ErrInvalidCredentials, "invalid credentials").WithUser(user.ID)
	}
	return user, nil
}
