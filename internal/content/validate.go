package content

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct-level rules: certification status, accent color and
// skill level range.
func Validate(doc *Document) error {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Namespace(),
			Rule:  fe.Tag(),
		})
	}
	return out
}
