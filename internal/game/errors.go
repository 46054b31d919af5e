package game

import (
	"errors"
	"fmt"
)

// Rule violations reject the triggering action without mutating state. They
// are acknowledged to the issuer only and never broadcast.
var (
	ErrInvalidPlacement          = errors.New("invalid placement")
	ErrIllegalMove               = errors.New("illegal move")
	ErrNotYourTurn               = errors.New("not your turn")
	ErrInsufficientCommandPoints = errors.New("insufficient command points")
	ErrUnknownEvent              = errors.New("unknown event name")
	ErrUnknownPlayer             = errors.New("unknown player")
	ErrGameOver                  = errors.New("game is over")
)

// ValidationError marks a malformed action payload, rejected before the
// engine is invoked.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid action payload: %s", e.Reason)
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a payload validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsRuleViolation reports whether err is an engine-level rule rejection.
func IsRuleViolation(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidPlacement),
		errors.Is(err, ErrIllegalMove),
		errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrInsufficientCommandPoints),
		errors.Is(err, ErrUnknownEvent),
		errors.Is(err, ErrGameOver):
		return true
	}
	return false
}
