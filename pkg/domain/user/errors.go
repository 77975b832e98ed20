package user

import (
	"fmt"

	"github.com/northstarhq/api/pkg/domain/shared"
)

var (
	// ErrEmailTaken is returned when registering with an email that
	// already has an account.
	ErrEmailTaken = fmt.Errorf("%w: email is already registered", shared.ErrAlreadyExists)

	// ErrInvalidCredentials is returned on a failed login. Deliberately
	// identical for unknown email and wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", shared.ErrUnauthorized)

	// ErrAccountLocked is returned when the account is locked out after
	// repeated failed logins.
	ErrAccountLocked = fmt.Errorf("%w: account temporarily locked", shared.ErrForbidden)

	// ErrAccountInactive is returned when a suspended or deactivated
	// account attempts to authenticate.
	ErrAccountInactive = fmt.Errorf("%w: account is not active", shared.ErrForbidden)
)
