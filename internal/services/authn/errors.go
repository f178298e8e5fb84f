package authn

import "errors"

var (
	// ErrInvalidCredentials is returned when no enabled method accepts the login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMethodDisabled is returned when a login names a method that is not configured.
	ErrMethodDisabled = errors.New("authentication method disabled")

	// ErrImpersonationForbidden is returned when a non-administrator asks to act on behalf of someone.
	ErrImpersonationForbidden = errors.New("only administrators may act on behalf of another user")

	// ErrImpersonationTarget is returned for a malformed or unknown on-behalf-of EPerson.
	ErrImpersonationTarget = errors.New("invalid on-behalf-of target")
)
