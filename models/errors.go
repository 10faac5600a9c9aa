package models

import (
	"errors"
	"fmt"
)

// Record-level validation failures. None of these are fatal; callers map them
// to client errors.
var (
	ErrRequiredField         = errors.New("required field missing")
	ErrInvalidEnum           = errors.New("value not allowed")
	ErrInvalidInterval       = errors.New("interval ends before it starts")
	ErrDeathBeforeBirth      = errors.New("date of death precedes date of birth")
	ErrSelfRelationship      = errors.New("relationship must connect two different individuals")
	ErrAncestryCycle         = errors.New("relationship would make an individual their own ancestor")
	ErrDuplicateCurrentName  = errors.New("individual already has a current name")
	ErrDuplicateRelationship = errors.New("relationship already recorded")
	ErrMarriageAlreadyEnded  = errors.New("marriage already has an end date")
	ErrIndividualNotFound    = errors.New("referenced individual does not exist")
	ErrImageNotOwned         = errors.New("image does not belong to this individual")
)

// Account failures.
var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrProfileTaken       = errors.New("individual is already linked to another account")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrLoginCooldown      = errors.New("too many failed login attempts, try again later")
	ErrInvalidConfirmCode = errors.New("invalid confirmation code")
	ErrAlreadyConfirmed   = errors.New("email already confirmed")
	ErrNoResetPending     = errors.New("no password reset pending")
	ErrInvalidResetToken  = errors.New("invalid password reset token")
	ErrResetTokenExpired  = errors.New("password reset token expired")
)

// ValidationError ties a failure to the field that caused it.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidationError reports whether err is a client-side data problem rather
// than a storage failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	for _, target := range []error{
		ErrRequiredField, ErrInvalidEnum, ErrInvalidInterval, ErrDeathBeforeBirth,
		ErrSelfRelationship, ErrAncestryCycle, ErrDuplicateCurrentName, ErrMarriageAlreadyEnded,
		ErrImageNotOwned, ErrWeakPassword, ErrInvalidEmail,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
