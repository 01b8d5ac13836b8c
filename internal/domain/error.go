package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound               = errors.New("entity not found")
	ErrAlreadyExists          = errors.New("entity already exists")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrValidation             = errors.New("validation failed")
	ErrAmountMismatch         = errors.New("amount does not match configured price")
	ErrDuplicateEntitlement   = errors.New("student already has an active entitlement")
	ErrInvalidState           = errors.New("invalid state transition")
	ErrAuthenticity           = errors.New("webhook signature verification failed")
	ErrReconciliationMismatch = errors.New("webhook amount or currency does not match recorded attempt")
	ErrNoActiveEntitlement    = errors.New("no active entitlement")

	// Infrastructure errors surfaced through repositories
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
