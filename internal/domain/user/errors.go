package user

import "errors"

var (
	ErrNotFound  = errors.New("user not found")
	ErrNotVendor = errors.New("user is not a vendor")
	ErrNoAdmin   = errors.New("no admin account configured")
)
