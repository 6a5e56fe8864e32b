package domain

import "errors"

// Run-level error kinds. Callers wrap these with context and classify
// with errors.Is.
var (
	// ErrConfiguration is returned for invalid options, including an empty
	// or inverted reporting range. Raised before any work starts.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataContract is returned when an input record violates the
	// cleaned-ledger contract.
	ErrDataContract = errors.New("data contract violation")

	// ErrJoinIntegrity is returned when a snapshot key has no matching
	// row in a source it must always have one in.
	ErrJoinIntegrity = errors.New("join integrity error")
)
