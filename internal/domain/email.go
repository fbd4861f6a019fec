package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 6

var validate = validator.New()

// NormalizeEmail trims and lower-cases an address. Stores and uniqueness
// checks only ever see the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes email and checks its syntax.
func ValidateEmail(email string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return "", ErrMissingField("email")
	}
	if err := validate.Var(email, "email"); err != nil {
		return "", ErrInvalidField("email", "not a valid email")
	}
	return email, nil
}

// ValidatePassword enforces the length policy. It runs before any hashing.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrMissingField("password")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrWeakPassword("min length 6")
	}
	return nil
}
