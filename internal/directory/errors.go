package directory

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("directory: not found")

	// ErrConflict indicates a uniqueness violation, such as a duplicate email.
	ErrConflict = errors.New("directory: conflict")

	// ErrInvalidInput indicates a request that fails validation.
	ErrInvalidInput = errors.New("directory: invalid input")

	// ErrInvalidCredentials indicates a failed authentication attempt. It does
	// not reveal whether the account exists.
	ErrInvalidCredentials = errors.New("directory: invalid credentials")
)
