// Copyright 2025 Near Private Payroll
//
// BN254 Verifier Types

// Package bn254 implements the Groth16 pairing verifier over BN254 with
// little-endian field encoding: seal parsing, IC linear combination, and the
// four-pair pairing check. Point and field arithmetic is delegated to
// gnark-crypto; the LE/BE boundary is crossed exactly once, at decode and at
// encode.
package bn254

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// BaseFieldP is the BN254 base-field modulus.
var BaseFieldP, _ = new(big.Int).SetString("21888242871839275222246405745257275088696311157297823662689037894645226208583", 10)

// SealLen is the byte length of the 256-byte Groth16 proof body that
// follows the 4-byte selector.
const SealLen = 256

// SelectorLen is the byte length of the wrapping-family selector prefix.
const SelectorLen = 4

// MinSealBytesLen is the minimum total length of seal_bytes (selector + proof).
const MinSealBytesLen = SelectorLen + SealLen

// G1Point is a parsed, range-validated BN254 G1 affine point.
type G1Point struct {
	bn254.G1Affine
}

// G2Point is a parsed, range-validated BN254 G2 affine point (Fp2 coordinates).
type G2Point struct {
	bn254.G2Affine
}

// VerificationKey is the hard-coded Groth16 verification key: (alpha, beta,
// gamma, delta, IC[0..n]) where n is the declared public-input count. This
// verifier fixes n = 5.
type VerificationKey struct {
	Alpha G1Point
	Beta  G2Point
	Gamma G2Point
	Delta G2Point
	IC    [6]G1Point // IC[0..5]
}

// Seal is the parsed (A, B, C) Groth16 proof.
type Seal struct {
	A G1Point
	B G2Point
	C G1Point
}
