package models

import (
	"errors"
	"fmt"
)

// Application-wide sentinel errors. Handlers map them to HTTP statuses in
// one place; anything not listed here is an internal error.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUserNotFound = fmt.Errorf("%w: user not found", ErrNotFound)

	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrUnauthenticated    = errors.New("could not validate credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrIPBanned           = fmt.Errorf("%w: too many failed login attempts, try again later", ErrForbidden)

	ErrTokenInvalid = errors.New("token is invalid")

	// Conflicts. Specific cases wrap ErrConflict so callers can match either.
	ErrConflict           = errors.New("conflict")
	ErrEmailAlreadyExists = fmt.Errorf("%w: user with this email already exists", ErrConflict)
	ErrUserAlreadyExists  = fmt.Errorf("%w: user with this username already exists", ErrConflict)
	ErrBootstrapClosed    = fmt.Errorf("%w: initial setup already completed", ErrConflict)

	ErrInvalidInput = errors.New("invalid input data")
	ErrFeatureOff   = errors.New("feature disabled")
)
