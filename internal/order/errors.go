package order

import "errors"

var (
	ErrInvalidState       = errors.New("order: no session in progress")
	ErrAlreadyOpen        = errors.New("order: session already in progress")
	ErrNoOrders           = errors.New("order: nobody has ordered anything")
	ErrUnauthorized       = errors.New("order: only the organizer may finish the order")
	ErrPaymentsNotStarted = errors.New("order: payment collection has not been started")
	ErrUnknownItem        = errors.New("order: item is not on the menu")

	// ErrPaymentMessageAttached means another payment message won the race.
	ErrPaymentMessageAttached = errors.New("order: payment message already posted")

	// ErrEmptyCandidateSet means organizer selection ran with nobody to pick.
	// The controller checks for an empty ledger first, so callers never see it.
	ErrEmptyCandidateSet = errors.New("order: empty organizer candidate set")
)
