package availability

import "errors"

var (
	ErrAlreadyTaken  = errors.New("availability: slot already taken")
	ErrTokenExpired  = errors.New("availability: reservation token expired")
	ErrTokenNotFound = errors.New("availability: reservation token not found")
	ErrUnknownSlot   = errors.New("availability: slot not in doctor template")
)
