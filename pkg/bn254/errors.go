// Copyright 2025 Near Private Payroll
//
// Verifier Error Sentinels

package bn254

import "errors"

// Sentinel errors surfaced by the pairing verifier, matching the closed
// error-kind set.
var (
	ErrSealMalformed      = errors.New("bn254: seal malformed")
	ErrInvalidPoint       = errors.New("bn254: invalid point")
	ErrInvalidScalar      = errors.New("bn254: invalid scalar")
	ErrProofInvalid       = errors.New("bn254: proof invalid")
)
