package meetup

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrUnauthorized        = errors.New("actor is not a party to this transaction")
	ErrInvalidTransition   = errors.New("invalid transaction state transition")
	ErrNotFound            = errors.New("transaction not found")
	ErrConcurrencyConflict = errors.New("transaction was modified concurrently")
	ErrNotificationFailed  = errors.New("counterparty notification failed")
	ErrConversationClosed  = fmt.Errorf("%w: conversation is marked done", ErrInvalidTransition)
)

// NotificationFailedError reports a persisted write whose counterparty
// notification could not be delivered. Transaction is the stored record.
type NotificationFailedError struct {
	Transaction *Transaction
	Err         error
}

func (e *NotificationFailedError) Error() string {
	return fmt.Sprintf("transaction %s saved but notification failed: %v", e.Transaction.TransactionID, e.Err)
}

func (e *NotificationFailedError) Unwrap() error { return e.Err }

func (e *NotificationFailedError) Is(target error) bool {
	return target == ErrNotificationFailed
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func transitionErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidTransition}, args...)...)
}
