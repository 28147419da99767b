// Package auth guards the admin surface: password checks against the
// document's settings and signed session tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/folio-admin/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// FallbackPassword is accepted when settings.adminPassword is empty.
const FallbackPassword = "password"

// MinPasswordLength is the shortest new password accepted.
const MinPasswordLength = 4

// maxHashInput is the bcrypt input limit in bytes, pepper included.
const maxHashInput = 72

var (
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong    = errors.New("password is too long")
	ErrInvalidCredentials = errors.New("invalid password")
)

// Hasher hashes and checks the admin password.
type Hasher struct {
	cost   int
	pepper string
}

// NewHasher builds a Hasher from cfg. A nil cfg uses bcrypt.DefaultCost.
func NewHasher(cfg *config.PasswordConfig) *Hasher {
	if cfg == nil {
		return &Hasher{cost: bcrypt.DefaultCost}
	}
	return &Hasher{cost: cfg.BcryptCost, pepper: cfg.Pepper}
}

// Hash returns the bcrypt hash of pw.
func (h *Hasher) Hash(pw string) (string, error) {
	if len(pw) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(pw)+len(h.pepper) > maxHashInput {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw+h.pepper), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether pw matches stored. stored is either a bcrypt hash
// or a legacy plaintext value; an empty stored value means FallbackPassword.
func (h *Hasher) Verify(stored, pw string) bool {
	if stored == "" {
		stored = FallbackPassword
	}
	if IsHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pw+h.pepper)) == nil
	}

	log.WithField("event", "legacy_password").
		Warn("Admin password is stored in plaintext; set a new one to hash it")
	return subtle.ConstantTimeCompare([]byte(stored), []byte(pw)) == 1
}

// IsHash reports whether s looks like a bcrypt hash.
func IsHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
