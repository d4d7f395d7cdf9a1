package services

import "errors"

// Domain errors. Handlers map each of them to one HTTP status; anything else is a 500.
var (
	ErrDuplicateEmail          = errors.New("email already registered")
	ErrNotFound                = errors.New("not found")
	ErrNotVerified             = errors.New("email not verified")
	ErrAlreadyConfirmed        = errors.New("email already confirmed")
	ErrAuthenticationFailed    = errors.New("authentication failed")
	ErrInvalidToken            = errors.New("invalid token")
	ErrInvalidRefreshToken     = errors.New("invalid refresh token")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrThrottled               = errors.New("too many requests, try again later")
	ErrNothingToUpdate         = errors.New("nothing to update")
	ErrInvalidMeasurement      = errors.New("invalid measurement")
	ErrInternal                = errors.New("internal error")
)
