package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 100
)

// ValidatePassword проверяет пароль при регистрации.
// Bcrypt учитывает только первые 72 байта, поэтому длинные пароли режем по байтам отдельно.
func ValidatePassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("password is required")
	}

	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength || length > MaxPasswordLength {
		return fmt.Errorf("password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	if len(password) > 72 {
		return fmt.Errorf("password is too long")
	}

	return nil
}
