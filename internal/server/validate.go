package server

import "fmt"

const (
	minUsernameLength = 3
	maxUsernameLength = 20
)

// ValidateUsername accepts names of 3 to 20 characters drawn from
// letters, digits, '_', '.' and '-'.
func ValidateUsername(name string) error {
	if len(name) < minUsernameLength || len(name) > maxUsernameLength {
		return fmt.Errorf("%w: length must be between %d and %d characters",
			ErrInvalidUsername, minUsernameLength, maxUsernameLength)
	}
	for i := 0; i < len(name); i++ {
		if !isUsernameByte(name[i]) {
			return fmt.Errorf("%w: character %q is not allowed", ErrInvalidUsername, name[i])
		}
	}
	return nil
}

func isUsernameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '.', c == '-':
		return true
	}
	return false
}
