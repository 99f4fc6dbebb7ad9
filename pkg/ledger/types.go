// Copyright 2025 Near Private Payroll
//
// Replay Ledger Types

package ledger

import (
	"crypto/sha256"
	"time"
)

// SealHashOf computes the ledger key for a seal blob: the SHA-256 of the
// full seal bytes, selector and journal included.
func SealHashOf(sealBytes []byte) [32]byte {
	return sha256.Sum256(sealBytes)
}

// SealRecord is the replay/freshness entry written once a verification
// succeeds: the 32-byte SHA-256 of the full seal bytes (see SealHashOf), paired with the
// monotonic expiry timestamp after which it is collectable (but never
// collected early).
type SealRecord struct {
	SealHash [32]byte  `json:"sealHash"`
	Expiry   time.Time `json:"expiry"`
}

// Expired reports whether the record's TTL has elapsed as of now.
func (r SealRecord) Expired(now time.Time) bool {
	return now.After(r.Expiry)
}

// Family mirrors journal.Family without importing it, so this package has
// no dependency on the journal schema — the ledger only ever keys on the
// family's wire ordinal. Ordinals must stay in lockstep with journal.Family.
type Family int

const (
	FamilyIncomeThreshold Family = iota
	FamilyIncomeRange
	FamilyCreditScore
	FamilyPayment
	FamilyBalance
)

// ImageIDEntry is one row of the owner-controlled registry mapping a proof
// family to the 32-byte guest image id permitted to populate it.
type ImageIDEntry struct {
	Family  Family  `json:"family"`
	ImageID [32]byte `json:"imageId"`
}
