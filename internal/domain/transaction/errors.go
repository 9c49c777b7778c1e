package transaction

import "errors"

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
	ErrInvalidStatus      = errors.New("invalid status transition")
)
