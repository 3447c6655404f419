package validator

import (
	"errors"
	"regexp"

	playground "github.com/go-playground/validator/v10"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidUsername = errors.New("invalid username")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidCard     = errors.New("invalid card number")
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
	cardRegex     = regexp.MustCompile(`^[0-9]{16}$`)
)

var validate = playground.New(playground.WithRequiredStructEnabled())

// Struct runs the validate-tag rules declared on a request struct.
func Struct(v any) error {
	return validate.Struct(v)
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

func ValidateCard(card string) error {
	if !cardRegex.MatchString(card) {
		return ErrInvalidCard
	}
	return nil
}
