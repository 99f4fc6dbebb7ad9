// Copyright 2025 Near Private Payroll
//
// Unit tests for the pairing check

package bn254

import (
	"math/big"
	"testing"

	gcbn254 "github.com/consensys/gnark-crypto/ecc/bn254"
)

func scalarMulG1(t *testing.T, gen gcbn254.G1Affine, k int64) G1Point {
	t.Helper()
	var out gcbn254.G1Affine
	out.ScalarMultiplication(&gen, big.NewInt(k))
	return G1Point{G1Affine: out}
}

func scalarMulG2(t *testing.T, gen gcbn254.G2Affine, k int64) G2Point {
	t.Helper()
	var out gcbn254.G2Affine
	out.ScalarMultiplication(&gen, big.NewInt(k))
	return G2Point{G2Affine: out}
}

// TestComputeVkICLinearCombination checks vk_ic = IC[0] + sum s_i*IC[i]
// against a hand-computed multiple of the generator: choosing IC[i] = (i+1)-th
// multiple of G1 and scalars = [1,1,1,1,1] collapses the sum to a single
// known multiple, so the result can be checked without re-deriving ComputeVkIC.
func TestComputeVkICLinearCombination(t *testing.T) {
	_, _, g1Gen, _ := gcbn254.Generators()

	var ic [6]G1Point
	for i := range ic {
		ic[i] = scalarMulG1(t, g1Gen, int64(i+1)) // IC[i] = (i+1)*G
	}
	scalars := [5]*big.Int{big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1), big.NewInt(1)}

	got := ComputeVkIC(ic, scalars)
	// sum = 1*G + (2+3+4+5+6)*G = 21*G
	want := scalarMulG1(t, g1Gen, 21)

	if !got.G1Affine.Equal(&want.G1Affine) {
		t.Fatalf("ComputeVkIC = %v, want %v", got.G1Affine, want.G1Affine)
	}
}

func TestComputeVkICZeroScalarsReturnsIC0(t *testing.T) {
	_, _, g1Gen, _ := gcbn254.Generators()
	var ic [6]G1Point
	for i := range ic {
		ic[i] = scalarMulG1(t, g1Gen, int64(i+1))
	}
	scalars := [5]*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0)}

	got := ComputeVkIC(ic, scalars)
	if !got.G1Affine.Equal(&ic[0].G1Affine) {
		t.Fatalf("ComputeVkIC with zero scalars = %v, want IC[0] = %v", got.G1Affine, ic[0].G1Affine)
	}
}

// TestEncodePairingInputDeterministic checks the determinism guarantee:
// encoding the same fixed seal/vk twice produces byte-identical output.
func TestEncodePairingInputDeterministic(t *testing.T) {
	_, _, g1Gen, g2Gen := gcbn254.Generators()
	seal := Seal{
		A: scalarMulG1(t, g1Gen, 2),
		B: scalarMulG2(t, g2Gen, 3),
		C: scalarMulG1(t, g1Gen, 4),
	}
	negAlpha := scalarMulG1(t, g1Gen, 5)
	beta := scalarMulG2(t, g2Gen, 6)
	negVkIC := scalarMulG1(t, g1Gen, 7)
	gamma := scalarMulG2(t, g2Gen, 8)
	negC := scalarMulG1(t, g1Gen, 9)
	delta := scalarMulG2(t, g2Gen, 10)

	a := EncodePairingInput(seal, negAlpha, beta, negVkIC, gamma, negC, delta)
	b := EncodePairingInput(seal, negAlpha, beta, negVkIC, gamma, negC, delta)

	if len(a) != PairingInputLen {
		t.Fatalf("len = %d, want %d", len(a), PairingInputLen)
	}
	if string(a) != string(b) {
		t.Fatalf("EncodePairingInput not deterministic across calls")
	}
}

// TestCheckPairingCanonicalAndSwappedAgree is the conformance check: the
// canonical order (-vk_ic,gamma) then (-C,delta) and the swapped order must
// agree on both true and false cases, because the pairing product is
// commutative regardless of which operand the verifier happens to label
// gamma vs delta — the labels must still be threaded consistently, but
// swapping pair3 and pair4 as a matched unit never changes the product.
func TestCheckPairingCanonicalAndSwappedAgree(t *testing.T) {
	_, _, g1Gen, g2Gen := gcbn254.Generators()

	alpha := scalarMulG1(t, g1Gen, 7)
	beta := scalarMulG2(t, g2Gen, 11)
	gammaDelta := scalarMulG2(t, g2Gen, 13)

	var ic [6]G1Point
	for i := range ic {
		ic[i] = scalarMulG1(t, g1Gen, int64(i+2))
	}
	vk := VerificationKey{Alpha: alpha, Beta: beta, Gamma: gammaDelta, Delta: gammaDelta, IC: ic}

	scalars := [5]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5)}
	vkIC := ComputeVkIC(ic, scalars)

	var negVkIC gcbn254.G1Affine
	negVkIC.Neg(&vkIC.G1Affine)
	seal := Seal{A: alpha, B: beta, C: G1Point{G1Affine: negVkIC}}

	okCanonical, err := CheckPairing(seal, vk, vkIC, PairOrderCanonical)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	okSwapped, err := CheckPairing(seal, vk, vkIC, PairOrderSwapped)
	if err != nil {
		t.Fatalf("swapped: %v", err)
	}
	if !okCanonical || !okSwapped {
		t.Fatalf("expected both orderings to accept a valid seal: canonical=%v swapped=%v", okCanonical, okSwapped)
	}

	// Now break the identity and confirm both orderings reject it together.
	var wrongC gcbn254.G1Affine
	wrongC.ScalarMultiplication(&g1Gen, big.NewInt(999))
	seal.C = G1Point{G1Affine: wrongC}

	okCanonical, err = CheckPairing(seal, vk, vkIC, PairOrderCanonical)
	if err != nil {
		t.Fatalf("canonical (broken): %v", err)
	}
	okSwapped, err = CheckPairing(seal, vk, vkIC, PairOrderSwapped)
	if err != nil {
		t.Fatalf("swapped (broken): %v", err)
	}
	if okCanonical || okSwapped {
		t.Fatalf("expected both orderings to reject a broken seal: canonical=%v swapped=%v", okCanonical, okSwapped)
	}
}

func TestHostG1NegateInvolution(t *testing.T) {
	_, _, g1Gen, _ := gcbn254.Generators()
	p := scalarMulG1(t, g1Gen, 17)
	negP := hostG1Negate(p)
	roundTrip := hostG1Negate(negP)
	if !roundTrip.G1Affine.Equal(&p.G1Affine) {
		t.Fatalf("double negation did not return original point")
	}
	if negP.G1Affine.Equal(&p.G1Affine) {
		t.Fatalf("negation returned the same point")
	}
}
