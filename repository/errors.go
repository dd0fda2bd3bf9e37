package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// translate maps gorm sentinel errors onto the repository ones, keeping the
// original in the chain.
func translate(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %w", msg, ErrDuplicate, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
