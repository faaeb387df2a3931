package transport

import (
	"regexp"

	"crmlink_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// PersonalDataRequest is the submitted personal-data form. IsMale is a
// pointer so that an absent value fails validation instead of defaulting.
type PersonalDataRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Age       int    `json:"age" validate:"required,min=1,max=120"`
	IsMale    *bool  `json:"isMale" validate:"required"`
	Phone     string `json:"phone" validate:"required,intl_phone"`
	Email     string `json:"email" validate:"required,simple_email"`
}

// StatusResponse acknowledges a completed integration.
type StatusResponse struct {
	Status string `json:"status"`
}

// TokensResponse returns the CRM token pair after an OAuth code exchange.
type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

var (
	phonePattern = regexp.MustCompile(`^\+?\d+$`)
	emailPattern = regexp.MustCompile(`(?i)^[a-z.-]+@[a-z.-]+\.[a-z]+$`)
)

// RegisterValidations installs the intake-form validation rules.
func RegisterValidations(val *validator.Validator) error {
	if err := val.RegisterValidation("intl_phone", func(fl playground.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return val.RegisterValidation("simple_email", func(fl playground.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
}
