package domain

import (
	"fmt"
	"strings"
)

// ValidatePassword rejects bundle passwords the tool cannot read back from a password file.
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPassword)
	}
	if strings.ContainsAny(password, "\r\n\x00") {
		return fmt.Errorf("%w: contains a line break", ErrInvalidPassword)
	}
	return nil
}
