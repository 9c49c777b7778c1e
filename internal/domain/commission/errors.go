package commission

import "errors"

var (
	ErrInvalidAmount = errors.New("invalid base amount")
	ErrInvalidRate   = errors.New("invalid commission rate")
	ErrUnknownModel  = errors.New("unknown commission model")
	ErrNotFound      = errors.New("commission setting not found")
)
