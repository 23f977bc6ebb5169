package repository

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/local-talent/utils"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the shared categories.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", utils.ErrNotFound, what)
	}
	if errors.Is(err, utils.ErrNotFound) || errors.Is(err, utils.ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", utils.ErrStorageUnavailable, what, err)
}
