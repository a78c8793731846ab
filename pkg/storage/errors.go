package storage

import "errors"

// ErrTransactionNotFound is returned when no transaction exists for the given id or index key.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrTransactionExists is returned when creating a transaction whose id is already taken.
var ErrTransactionExists = errors.New("transaction already exists")

// ErrCorrelationNotFound is returned when no temporary correlation record exists for a sub-transaction id.
var ErrCorrelationNotFound = errors.New("correlation record not found")

// ErrVersionConflict is returned when an update expected a version that is no longer current.
var ErrVersionConflict = errors.New("transaction version conflict")
