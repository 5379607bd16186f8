package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Token verification errors. These map to 401 at the boundary.
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenRevoked   = errors.New("token not found or revoked")
	ErrTokenMismatch  = errors.New("token does not match device or merchant")
)
