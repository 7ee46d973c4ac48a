package store

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistenceUnavailable wraps every failure of the backing store.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrUserNotFound           = errors.New("user not found")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrPersistenceUnavailable, err)
}
