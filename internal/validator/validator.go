package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = errors.New("password too short")
	ErrEmptyDescription = errors.New("description must not be blank")
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail lowercases and trims an address. All email comparisons in
// the system go through this so that invitations and registrations match
// regardless of input casing.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string, minLength int) error {
	if len(password) < minLength {
		return ErrWeakPassword
	}
	return nil
}

func ValidateDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	return nil
}
