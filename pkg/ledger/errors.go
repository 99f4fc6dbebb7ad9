// Copyright 2025 Near Private Payroll
//
// Ledger Error Sentinels

// Package ledger persists the replay/freshness ledger and the image-id
// registry over a pluggable KV backend.
package ledger

import "errors"

// Sentinel errors for ledger operations.
var (
	// ErrReplay is returned when a seal hash is already recorded and not
	// yet expired.
	ErrReplay = errors.New("ledger: seal already recorded (replay)")

	// ErrImageIdUnregistered is returned when no image id has been
	// registered for a family.
	ErrImageIdUnregistered = errors.New("ledger: no image id registered for family")

	// ErrNotFound is returned by read operations when the requested key is
	// absent.
	ErrNotFound = errors.New("ledger: not found")
)
