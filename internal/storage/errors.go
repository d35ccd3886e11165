package storage

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrNegativeBalance is returned when an update would violate balance >= 0.
	ErrNegativeBalance = errors.New("balance would become negative")
	// ErrSerializationFailure marks an engine-forced abort (serialization failure or deadlock).
	ErrSerializationFailure = errors.New("transaction aborted by storage engine")
)
