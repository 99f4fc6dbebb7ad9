// Copyright 2025 Near Private Payroll
//
// Payment History Commitment

// Package commitment computes the domain-tagged history commitment that
// binds a proof to a specific, totally-ordered snapshot of payment history.
// A proof's journal carries one of these 32-byte values, and the
// core rejects any proof whose journal commitment disagrees with the
// caller-supplied commitment computed from on-chain payment state.
package commitment

import (
	"crypto/sha256"
)

// DomainTag is the fixed prefix mixed into every history commitment,
// pinning the hash to this wire format and preventing cross-protocol
// confusion with unrelated SHA-256 commitments.
const DomainTag = "near-private-payroll:history:v1:"

// History computes SHA-256(DomainTag || c1 || c2 || ... || ck) over 32-byte
// payment commitments in payment order. Any reordering or single-byte
// mutation of any cᵢ changes the result with overwhelming probability,
// which is what forbids stitching proofs across employees, companies, or
// historical tails.
func History(commitments [][32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(DomainTag))
	for _, c := range commitments {
		h.Write(c[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
