// Copyright 2025 Near Private Payroll
//
// Public Input Builder
// split_digest transform and the pinned recursion constants

// Package digest builds the recursion circuit's public scalars from a claim
// digest: the split_digest transform and the two fixed recursion constants.
package digest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// ErrInvalidScalar is returned when a reconstructed public scalar is >= r.
var ErrInvalidScalar = errors.New("digest: invalid scalar")

// ScalarR is the BN254 scalar-field (pairing subgroup) modulus.
var ScalarR, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// controlRootBEHex is pinned from the RISC Zero v1.2 recursion circuit release.
// Big-endian hex as emitted by the circuit.
const controlRootBEHex = "0539f17d42839dfb609313a5a8310f6a7f78ce98f12623c27b5558cc5e97d6a4"

// bn254ControlIDBEHex is the circuit's BN254 control id, big-endian as emitted.
// Pinned from the same recursion circuit release as ControlRoot.
const bn254ControlIDBEHex = "010ff834dd27a008618cf7d71eeae6a4a4c1c6543a6e4cce2055e0edff690e65"

// ControlRoot holds the 32 big-endian bytes of the recursion circuit's
// control root, as emitted.
var ControlRoot [32]byte

// Bn254ControlID holds the verifier's stored form of BN254_CONTROL_ID: the
// circuit's big-endian constant, byte-reversed to little-endian. The pinned
// hex is already reduced mod r; init only reverses it and runs the reversal
// self-test, it never reduces at runtime.
var Bn254ControlID [32]byte

func init() {
	raw, err := hex.DecodeString(controlRootBEHex)
	if err != nil || len(raw) != 32 {
		panic("digest: malformed ControlRoot constant")
	}
	copy(ControlRoot[:], raw)

	cidBE, err := hex.DecodeString(bn254ControlIDBEHex)
	if err != nil || len(cidBE) != 32 {
		panic("digest: malformed BN254_CONTROL_ID constant")
	}
	cidLE := reversed(cidBE)
	copy(Bn254ControlID[:], cidLE)

	if !selfTestReversalIdentity(cidBE, cidLE) {
		panic("digest: BN254_CONTROL_ID reversal self-test failed")
	}
}

// selfTestReversalIdentity asserts that reversing be yields le and that the
// little-endian reading of le equals the big-endian reading of be, modulo r.
func selfTestReversalIdentity(be, le []byte) bool {
	if len(be) != 32 || len(le) != 32 {
		return false
	}
	for i := 0; i < 32; i++ {
		if be[i] != le[31-i] {
			return false
		}
	}
	fromBE := new(big.Int).SetBytes(be)
	fromBE.Mod(fromBE, ScalarR)
	fromLE := new(big.Int).SetBytes(reversed(le))
	fromLE.Mod(fromLE, ScalarR)
	return fromBE.Cmp(fromLE) == 0
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

func leBytesFromInt(v *big.Int) [32]byte {
	var out [32]byte
	be := v.Bytes()
	if len(be) > 32 {
		panic("digest: reduced value overflows 32 bytes")
	}
	// be is big-endian with no leading zeros; reverse into out (little-endian).
	for i, b := range be {
		out[len(be)-1-i] = b
	}
	return out
}

// SplitDigest implements the split_digest transform: given a
// 32-byte digest D with big-endian semantics, produce two 32-byte
// little-endian scalars (lo, hi) such that, interpreted as integers,
// lo = low128(D) and hi = high128(D) under the original big-endian reading
// of D. The identity that pins the layout is
//
//	le(lo) + 2^128 * le(hi) == be(D)
//
// Each half is a 128-bit value, so its payload occupies the LOW 16 bytes of
// the 32-byte LE buffer and the high 16 bytes stay zero. That keeps every
// reconstructed scalar strictly below 2^128 (hence below r) for all 2^256
// digests; a layout that shifts the payload into the high bytes multiplies
// the half by 2^128 and overflows r for roughly half of them.
func SplitDigest(d [32]byte) (lo [32]byte, hi [32]byte) {
	// d[16:32] is the low 128 bits of the big-endian reading, d[0:16] the
	// high 128 bits; each half is byte-reversed once to land in LE form.
	copy(lo[0:16], reversed(d[16:32]))
	copy(hi[0:16], reversed(d[0:16]))
	return lo, hi
}

// ValidateScalar checks 0 <= le-decoded value < r, returning the value.
func ValidateScalar(buf [32]byte) (*big.Int, error) {
	v := new(big.Int).SetBytes(reversed(buf[:]))
	if v.Cmp(ScalarR) >= 0 {
		return nil, fmt.Errorf("%w: scalar %s >= r", ErrInvalidScalar, v.String())
	}
	return v, nil
}

// BuildPublicInputs reconstructs the five public scalars the recursion
// circuit binds, in order: control_root_lo, control_root_hi,
// claim_digest_lo, claim_digest_hi, BN254_CONTROL_ID. ControlRoot and
// Bn254ControlID are fixed at package init; claimDigest is the caller's
// dynamic 32-byte value.
func BuildPublicInputs(claimDigest [32]byte) (scalars [5][32]byte, err error) {
	rootLo, rootHi := SplitDigest(ControlRoot)
	claimLo, claimHi := SplitDigest(claimDigest)
	scalars[0] = rootLo
	scalars[1] = rootHi
	scalars[2] = claimLo
	scalars[3] = claimHi
	scalars[4] = Bn254ControlID

	for i, s := range scalars {
		if _, verr := ValidateScalar(s); verr != nil {
			return scalars, fmt.Errorf("public input s%d: %w", i+1, verr)
		}
	}
	return scalars, nil
}
