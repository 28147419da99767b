package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/folio-admin/internal/auth"
	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/credential"
	"github.com/jonathan/folio-admin/internal/publish"
	"github.com/jonathan/folio-admin/internal/store"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		unknownSection *content.UnknownSectionError
		unknownSetting *content.UnknownSettingError
		decodeErr      *content.DecodeError
		validationErr  *content.ValidationError
		importErr      *store.ImportError
		credentialErr  *credential.InvalidError
		requestErr     *ErrValidation
	)

	switch {
	case errors.As(err, &unknownSection), errors.As(err, &unknownSetting):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &decodeErr),
		errors.As(err, &validationErr),
		errors.As(err, &importErr),
		errors.As(err, &credentialErr),
		errors.As(err, &requestErr),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorCode returns the machine-readable code sent with an error response.
func errorCode(err error) string {
	var importErr *store.ImportError
	if errors.As(err, &importErr) {
		return string(importErr.Kind())
	}
	switch HTTPStatus(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusBadRequest:
		return "invalid_request"
	default:
		return "internal_error"
	}
}

// PublishStatus maps a publish result to a response status.
func PublishStatus(r publish.Result) int {
	switch {
	case r.Success:
		return http.StatusOK
	case r.Error == publish.KindConfigMissing:
		return http.StatusPreconditionFailed
	default:
		return http.StatusBadGateway
	}
}
