package mailer

import (
	"errors"
	"fmt"
)

// ErrPoolExhausted means every sending account has reached its daily limit.
// Transmission is never attempted when this is returned.
var ErrPoolExhausted = errors.New("no sending accounts available - all have reached daily limits")

// InvalidInputError is a pre-flight validation failure. No I/O was attempted.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// TransmissionError wraps a provider failure. The chosen account's quota was
// not charged.
type TransmissionError struct {
	Account string
	Err     error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("transmission via %s failed: %v", e.Account, e.Err)
}

func (e *TransmissionError) Unwrap() error {
	return e.Err
}
