package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/folio-admin/internal/config"
)

// AdminSubject is the only session subject.
const AdminSubject = "admin"

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims
}

// GetSessionID returns the token id.
func (c *Claims) GetSessionID() string {
	return c.ID
}

// Session is an issued admin token.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionService issues and validates admin session tokens.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewSessionService creates a session service. issuer is recorded in and
// required of every token.
func NewSessionService(cfg *config.JWTConfig, issuer string) *SessionService {
	return &SessionService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.Expiration(),
		issuer: issuer,
		now:    time.Now,
	}
}

// Issue signs a new admin session.
func (s *SessionService) Issue() (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   AdminSubject,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Session{Token: signed, ExpiresAt: expiresAt.UTC().Truncate(time.Second)}, nil
}

// ValidateToken parses tokenString and checks signature, expiry, subject and issuer.
func (s *SessionService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithSubject(AdminSubject),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}

	return claims, nil
}
