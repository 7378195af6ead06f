package dispatch

import (
	"errors"
	"net/http"
)

// SelfValidator is implemented by request types that validate themselves.
type SelfValidator interface {
	Validate() error
}

// Validator validates any request.
type Validator interface {
	Validate(req any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(req any) error

// Validate calls f(req).
func (f ValidatorFunc) Validate(req any) error { return f(req) }

// validateRequest runs the request's own Validate, then v. An error that
// carries no status is reported as 422.
func validateRequest(req any, v Validator) error {
	if sv, ok := req.(SelfValidator); ok {
		if err := sv.Validate(); err != nil {
			return withValidationStatus(err)
		}
	}
	if v != nil {
		if err := v.Validate(req); err != nil {
			return withValidationStatus(err)
		}
	}
	return nil
}

func withValidationStatus(err error) error {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return err
	}
	return Error(http.StatusUnprocessableEntity, err.Error())
}
