package utils

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// NewValidator returns a validator with the registry's custom tags registered
func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("notblank", validators.NotBlank)

	// At least one uppercase letter and one digit
	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})

	_ = v.RegisterValidation("phone_format", func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})

	_ = v.RegisterValidation("alpha_space", func(fl validator.FieldLevel) bool {
		for _, char := range fl.Field().String() {
			if !unicode.IsLetter(char) && char != ' ' {
				return false
			}
		}
		return true
	})

	return v
}

// IsStrongPassword checks length, an uppercase letter and a digit
func IsStrongPassword(value string) bool {
	if len(value) < MinPasswordLength {
		return false
	}

	hasUpper := false
	hasNumber := false
	for _, char := range value {
		if char >= 'A' && char <= 'Z' {
			hasUpper = true
		}
		if char >= '0' && char <= '9' {
			hasNumber = true
		}
	}

	return hasUpper && hasNumber
}

// IsValidPhone accepts an optional leading + followed by 7 to 15 digits.
// Spaces, dashes, dots and parentheses are ignored.
func IsValidPhone(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	value = strings.TrimPrefix(value, "+")

	digits := 0
	for _, char := range value {
		switch {
		case char >= '0' && char <= '9':
			digits++
		case char == ' ' || char == '-' || char == '.' || char == '(' || char == ')':
		default:
			return false
		}
	}

	return digits >= 7 && digits <= 15
}
