package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrConflict   = errors.New("conflict")   // 409

	ErrAnonymousBasket    = errors.New("basket has no owner")
	ErrEmptyBasket        = errors.New("basket is empty")
	ErrBasketSubmitted    = errors.New("basket already submitted")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMailFailed         = errors.New("mail delivery failed")
)

// notFound turns a missing row into ErrNotFound and leaves other errors alone.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

// conflict turns a duplicate key into ErrConflict.
func conflict(err error, what string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrConflict, what)
	}
	return err
}
