// Package credential stores the repository and access token used to publish
// content. They live under their own storage keys, apart from the document.
package credential

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/folio-admin/internal/storage"
)

var repoPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ownerrepo", func(fl validator.FieldLevel) bool {
		return repoPattern.MatchString(fl.Field().String())
	})
	return v
}

// Credential is the publish target and its access token.
type Credential struct {
	Repository string `json:"repository" validate:"required,ownerrepo"`
	Token      string `json:"token" validate:"required"`
}

// Complete reports whether both fields are present.
func (c Credential) Complete() bool {
	return strings.TrimSpace(c.Repository) != "" && strings.TrimSpace(c.Token) != ""
}

// Masked returns a copy safe to display: only the last four token characters
// are kept.
func (c Credential) Masked() Credential {
	out := c
	if len(c.Token) > 4 {
		out.Token = strings.Repeat("*", 8) + c.Token[len(c.Token)-4:]
	} else if c.Token != "" {
		out.Token = strings.Repeat("*", 8)
	}
	return out
}

// InvalidError reports which field failed validation on Save.
type InvalidError struct {
	Field string
	Rule  string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid credential: %s (%s)", e.Field, e.Rule)
}

// Source reads and writes the credential in storage.
type Source struct {
	storage storage.Storage
	keys    storage.Keys
}

// NewSource returns a Source using the token and repo keys from keys.
func NewSource(st storage.Storage, keys storage.Keys) *Source {
	return &Source{storage: st, keys: keys}
}

// Load reads the credential. Missing keys yield empty fields, not an error.
func (s *Source) Load(ctx context.Context) (Credential, error) {
	repo, _, err := s.storage.Get(ctx, s.keys.Repo)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read repository: %w", err)
	}
	token, _, err := s.storage.Get(ctx, s.keys.Token)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to read token: %w", err)
	}
	return Credential{Repository: repo, Token: token}, nil
}

// Save validates and writes both fields.
func (s *Source) Save(ctx context.Context, c Credential) error {
	c.Repository = strings.TrimSpace(c.Repository)
	c.Token = strings.TrimSpace(c.Token)

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &InvalidError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
		}
		return err
	}

	if err := s.storage.Set(ctx, s.keys.Repo, c.Repository); err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}
	if err := s.storage.Set(ctx, s.keys.Token, c.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Clear removes both keys
func (s *Source) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.keys.Repo); err != nil {
		return err
	}
	return s.storage.Delete(ctx, s.keys.Token)
}
