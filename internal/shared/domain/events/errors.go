package events

import "errors"

var (
	// ErrValidation is returned when a definition fails a validator.
	ErrValidation = errors.New("validation failed")

	// ErrOperator is returned when a rule operator cannot evaluate its input.
	ErrOperator = errors.New("operator failed")

	// ErrAlreadyExists is returned when a stored or remote entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidConfiguration is returned for configuration problems that
	// prevent delivery or catalog loading.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNotFound is returned when a stored or remote entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuthorization is returned when the remote side rejects credentials.
	ErrAuthorization = errors.New("authorization failed")
)
