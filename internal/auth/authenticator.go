package auth

import (
	"github.com/jonathan/folio-admin/internal/content"
)

// Authenticator checks the admin password held in the document and issues
// sessions.
type Authenticator struct {
	hasher   *Hasher
	sessions *SessionService
}

// NewAuthenticator combines a hasher and a session service.
func NewAuthenticator(h *Hasher, s *SessionService) *Authenticator {
	return &Authenticator{hasher: h, sessions: s}
}

// Login verifies password against doc's settings and returns a session.
func (a *Authenticator) Login(doc *content.Document, password string) (Session, error) {
	if !a.hasher.Verify(doc.Settings.AdminPassword, password) {
		return Session{}, ErrInvalidCredentials
	}
	return a.sessions.Issue()
}

// HashPassword hashes a new admin password.
func (a *Authenticator) HashPassword(pw string) (string, error) {
	return a.hasher.Hash(pw)
}

// ValidateToken checks a session token.
func (a *Authenticator) ValidateToken(token string) (*Claims, error) {
	return a.sessions.ValidateToken(token)
}
