package repository

import (
	"errors"

	domainerrors "github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// Common repository errors
var (
	ErrNotFound     = domainerrors.ErrNotFound
	ErrDuplicateKey = errors.New("duplicate key violation")
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound checks if the error indicates a record was not found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
