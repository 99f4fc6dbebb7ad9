// Copyright 2025 Near Private Payroll
//
// Unit tests for the verification state machine
// End-to-end scenarios over synthetic pairing-satisfying seals

package verifier

import (
	"errors"
	"math/big"
	"testing"
	"time"

	gcbn254 "github.com/consensys/gnark-crypto/ecc/bn254"

	"github.com/near-private-payroll/zkverifier/pkg/bn254"
	"github.com/near-private-payroll/zkverifier/pkg/commitment"
	"github.com/near-private-payroll/zkverifier/pkg/digest"
	"github.com/near-private-payroll/zkverifier/pkg/journal"
	"github.com/near-private-payroll/zkverifier/pkg/ledger"
)

// --- in-memory KV, duplicated from pkg/ledger's test helper so this package
// has no test-only dependency on another package's _test.go file.

type memKV struct{ m map[string][]byte }

func newMemKV() *memKV { return &memKV{m: map[string][]byte{}} }

func (k *memKV) Get(key []byte) ([]byte, error) { return k.m[string(key)], nil }
func (k *memKV) Set(key, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	k.m[string(key)] = cp
	return nil
}

func wrapG1(p gcbn254.G1Affine) bn254.G1Point { return bn254.G1Point{G1Affine: p} }
func wrapG2(p gcbn254.G2Affine) bn254.G2Point { return bn254.G2Point{G2Affine: p} }

// fixtureVK picks a fixed, arbitrary (alpha, beta, gamma=delta, IC) verification
// key. gamma=delta is the load-bearing choice: it lets buildFixture satisfy
// the pairing identity for ANY vk_ic by setting C = -vk_ic, without needing
// a real Groth16 circuit, proving key, or trusted setup — something this
// package cannot run at write time. The pairing-check plumbing itself
// (ComputeVkIC, CheckPairing, gnark-crypto's PairingCheck) is exercised for
// real; only the "this came from an actual zkVM guest" step is synthetic.
func fixtureVK(t *testing.T) bn254.VerificationKey {
	t.Helper()
	_, _, g1Gen, g2Gen := gcbn254.Generators()

	var alpha gcbn254.G1Affine
	alpha.ScalarMultiplication(&g1Gen, big.NewInt(7))
	var beta gcbn254.G2Affine
	beta.ScalarMultiplication(&g2Gen, big.NewInt(11))
	var gammaDelta gcbn254.G2Affine
	gammaDelta.ScalarMultiplication(&g2Gen, big.NewInt(13))

	var ic [6]bn254.G1Point
	for i := range ic {
		var p gcbn254.G1Affine
		p.ScalarMultiplication(&g1Gen, big.NewInt(int64(i+2)))
		ic[i] = wrapG1(p)
	}

	return bn254.VerificationKey{
		Alpha: wrapG1(alpha),
		Beta:  wrapG2(beta),
		Gamma: wrapG2(gammaDelta),
		Delta: wrapG2(gammaDelta),
		IC:    ic,
	}
}

// buildSeal constructs a Groth16-shaped seal that satisfies the pairing
// identity for exactly the public scalars derived from claimDigest under
// vk. A = alpha, B = beta (trivially satisfies e(A,B)=e(alpha,beta), which
// cancels against e(-alpha,beta)); C = -vk_ic (cancels e(-vk_ic,gamma)
// against e(-C,delta) because gamma=delta).
func buildSeal(t *testing.T, vk bn254.VerificationKey, claimDigest [32]byte, selector [4]byte, journalBytes []byte) []byte {
	t.Helper()
	scalarBytes, err := digest.BuildPublicInputs(claimDigest)
	if err != nil {
		t.Fatalf("BuildPublicInputs: %v", err)
	}
	var scalars [5]*big.Int
	for i, sb := range scalarBytes {
		s, err := digest.ValidateScalar(sb)
		if err != nil {
			t.Fatalf("ValidateScalar: %v", err)
		}
		scalars[i] = s
	}
	vkIC := bn254.ComputeVkIC(vk.IC, scalars)

	var negVkIC gcbn254.G1Affine
	negVkIC.Neg(&vkIC.G1Affine)

	seal := bn254.Seal{
		A: vk.Alpha,
		B: vk.Beta,
		C: wrapG1(negVkIC),
	}

	out := make([]byte, 0, 260+len(journalBytes))
	out = append(out, selector[:]...)
	out = append(out, bn254.EncodeG1(seal.A)...)
	out = append(out, bn254.EncodeG2(seal.B)...)
	out = append(out, bn254.EncodeG1(seal.C)...)
	out = append(out, journalBytes...)
	return out
}

func newTestVerifier(t *testing.T, vk bn254.VerificationKey, now time.Time) *Verifier {
	t.Helper()
	store := ledger.NewStore(newMemKV())
	if err := store.RegisterImageID(ledger.Family(journal.FamilyIncomeThreshold), [32]byte{0x42}); err != nil {
		t.Fatalf("register image id: %v", err)
	}
	v := New(vk, store, map[journal.Family]time.Duration{journal.FamilyIncomeThreshold: 24 * time.Hour}, nil)
	v.now = func() time.Time { return now }
	return v
}

func e1HistoryCommitment() [32]byte {
	return commitment.History([][32]byte{{}})
}

func e1Journal() journal.IncomeThreshold {
	return journal.NewIncomeThreshold(5000, true, 1, e1HistoryCommitment())
}

// TestE1IncomeThresholdHonest is scenario E1: an honest IncomeThreshold
// proof is accepted and an expiry is returned.
func TestE1IncomeThresholdHonest(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x11, 0x22, 0x33}
	journalBytes := journal.EncodeIncomeThreshold(e1Journal())
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, journalBytes)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)

	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         sealBytes,
		ClaimDigest:       claimDigest,
		Params:            journal.IncomeThresholdParams{Threshold: 5000},
		HistoryCommitment: e1HistoryCommitment(),
		RequestedTTL:      time.Hour,
	}
	result, failure := v.Verify(req)
	if failure != nil {
		t.Fatalf("expected Verified, got failure: %v", failure)
	}
	if !result.Expiry.Equal(now.Add(time.Hour)) {
		t.Fatalf("expiry = %v, want %v", result.Expiry, now.Add(time.Hour))
	}
}

// TestE4Replay is scenario E4: resubmitting the identical seal fails with Replay.
func TestE4Replay(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x11, 0x22, 0x33}
	journalBytes := journal.EncodeIncomeThreshold(e1Journal())
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, journalBytes)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)

	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         sealBytes,
		ClaimDigest:       claimDigest,
		Params:            journal.IncomeThresholdParams{Threshold: 5000},
		HistoryCommitment: e1HistoryCommitment(),
		RequestedTTL:      time.Hour,
	}
	if _, failure := v.Verify(req); failure != nil {
		t.Fatalf("first submission should succeed, got %v", failure)
	}
	_, failure := v.Verify(req)
	if failure == nil {
		t.Fatalf("expected replay failure on resubmission")
	}
	if failure.Kind != KindReplay {
		t.Fatalf("expected KindReplay, got %v", failure.Kind)
	}
}

// TestE5WrongCommitment is scenario E5: the caller's history_commitment
// parameter differs from the journal's by one byte.
func TestE5WrongCommitment(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x11, 0x22, 0x33}
	journalBytes := journal.EncodeIncomeThreshold(e1Journal())
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, journalBytes)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)

	wrongCommitment := e1HistoryCommitment()
	wrongCommitment[0] ^= 0x01

	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         sealBytes,
		ClaimDigest:       claimDigest,
		Params:            journal.IncomeThresholdParams{Threshold: 5000},
		HistoryCommitment: wrongCommitment,
		RequestedTTL:      time.Hour,
	}
	_, failure := v.Verify(req)
	if failure == nil || failure.Kind != KindCommitmentMismatch {
		t.Fatalf("expected KindCommitmentMismatch, got %v", failure)
	}
}

// TestE3DigestDriftWithoutReproving models E3 within this package's
// component boundary: the scenario flips a journal byte "without
// regenerating the proof." Journal bytes are not themselves bound into the
// pairing check in this core (that binding lives in the recursion circuit
// that produced claim_digest, which lives upstream), so the only way a
// journal change can invalidate the existing proof without a re-prove is if
// whoever tampered it also updated claim_digest to match, which is exactly
// what breaks the pairing identity here: the seal was built for the old
// claim_digest's scalars, not the new one.
func TestE3DigestDriftWithoutReproving(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x11, 0x22, 0x33}
	journalBytes := journal.EncodeIncomeThreshold(e1Journal())
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, journalBytes)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)

	driftedDigest := claimDigest
	driftedDigest[31] ^= 0x01

	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         sealBytes,
		ClaimDigest:       driftedDigest,
		Params:            journal.IncomeThresholdParams{Threshold: 5000},
		HistoryCommitment: e1HistoryCommitment(),
		RequestedTTL:      time.Hour,
	}
	_, failure := v.Verify(req)
	if failure == nil || failure.Kind != KindProofInvalid {
		t.Fatalf("expected KindProofInvalid, got %v", failure)
	}
}

func TestParamMismatch(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x44}
	journalBytes := journal.EncodeIncomeThreshold(e1Journal())
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0x01, 0x02, 0x03, 0x04}, journalBytes)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)

	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         sealBytes,
		ClaimDigest:       claimDigest,
		Params:            journal.IncomeThresholdParams{Threshold: 9999},
		HistoryCommitment: e1HistoryCommitment(),
		RequestedTTL:      time.Hour,
	}
	_, failure := v.Verify(req)
	if failure == nil || failure.Kind != KindParamMismatch {
		t.Fatalf("expected KindParamMismatch, got %v", failure)
	}
}

func TestImageIdUnregistered(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x44}
	journalBuf := journal.EncodeIncomeRange(journal.NewIncomeRange(3000, 7000, true, 3, e1HistoryCommitment()))
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0x01, 0x02, 0x03, 0x04}, journalBuf)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now) // only IncomeThreshold is registered

	req := VerifyRequest{
		Family:            journal.FamilyIncomeRange,
		SealBytes:         sealBytes,
		ClaimDigest:       claimDigest,
		Params:            journal.IncomeRangeParams{Min: 3000, Max: 7000},
		HistoryCommitment: e1HistoryCommitment(),
		RequestedTTL:      time.Hour,
	}
	_, failure := v.Verify(req)
	if failure == nil || failure.Kind != KindImageIdUnregistered {
		t.Fatalf("expected KindImageIdUnregistered, got %v", failure)
	}
}

func TestSealTooShort(t *testing.T) {
	vk := fixtureVK(t)
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)
	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         make([]byte, 100),
		ClaimDigest:       [32]byte{},
		Params:            journal.IncomeThresholdParams{Threshold: 5000},
		HistoryCommitment: [32]byte{},
	}
	_, failure := v.Verify(req)
	if failure == nil || failure.Kind != KindSealMalformed {
		t.Fatalf("expected KindSealMalformed, got %v", failure)
	}
}

func TestDevModeRefusedAfterSealRecord(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x11, 0x22, 0x33}
	journalBytes := journal.EncodeIncomeThreshold(e1Journal())
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, journalBytes)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)

	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         sealBytes,
		ClaimDigest:       claimDigest,
		Params:            journal.IncomeThresholdParams{Threshold: 5000},
		HistoryCommitment: e1HistoryCommitment(),
		RequestedTTL:      time.Hour,
	}
	if _, failure := v.Verify(req); failure != nil {
		t.Fatalf("setup verify failed: %v", failure)
	}
	if err := v.SetMode(ModeDevMode); !errors.Is(err, ErrDevModeRefused) {
		t.Fatalf("expected ErrDevModeRefused once a seal record exists, got %v", err)
	}
}

func TestDevModeBypassesPairing(t *testing.T) {
	vk := fixtureVK(t)
	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)
	if err := v.SetMode(ModeDevMode); err != nil {
		t.Fatalf("SetMode(DevMode): %v", err)
	}

	journalValue := e1Journal()
	req := VerifyRequest{
		Family:            journal.FamilyIncomeThreshold,
		SealBytes:         journal.EncodeIncomeThreshold(journalValue),
		Params:            journal.IncomeThresholdParams{Threshold: 5000},
		HistoryCommitment: e1HistoryCommitment(),
		RequestedTTL:      time.Hour,
	}
	result, failure := v.Verify(req)
	if failure != nil {
		t.Fatalf("devmode verify failed: %v", failure)
	}
	if result.Journal.PaymentCount() != 1 {
		t.Fatalf("payment count = %d, want 1", result.Journal.PaymentCount())
	}
}

// TestE2IncomeRangeJustInside is scenario E2: a just-inside range journal is
// accepted when the caller's [min, max] matches the journal's.
func TestE2IncomeRangeJustInside(t *testing.T) {
	vk := fixtureVK(t)
	claimDigest := [32]byte{0x44, 0x55}
	history := commitment.History([][32]byte{{0x01}, {0x02}, {0x03}})
	journalBytes := journal.EncodeIncomeRange(journal.NewIncomeRange(3000, 7000, true, 3, history))
	sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, journalBytes)

	now := time.Unix(1_700_000_000, 0)
	v := newTestVerifier(t, vk, now)
	if err := v.Store.RegisterImageID(ledger.Family(journal.FamilyIncomeRange), [32]byte{0x43}); err != nil {
		t.Fatalf("register image id: %v", err)
	}
	v.TTLCeilings[journal.FamilyIncomeRange] = 12 * time.Hour

	req := VerifyRequest{
		Family:            journal.FamilyIncomeRange,
		SealBytes:         sealBytes,
		ClaimDigest:       claimDigest,
		Params:            journal.IncomeRangeParams{Min: 3000, Max: 7000},
		HistoryCommitment: history,
		RequestedTTL:      time.Hour,
	}
	result, failure := v.Verify(req)
	if failure != nil {
		t.Fatalf("expected Verified, got failure: %v", failure)
	}
	r, ok := result.Journal.(journal.IncomeRange)
	if !ok {
		t.Fatalf("journal type = %T, want IncomeRange", result.Journal)
	}
	if !r.InRange || r.Min != 3000 || r.Max != 7000 {
		t.Fatalf("journal fields = %+v", r)
	}
}

// TestRequestedTTLClampedToCeiling checks the boundary behavior around the
// per-family TTL ceiling: a request above the ceiling is silently clamped
// and the returned expiry reflects the clamp, not the request; a zero
// request also gets the ceiling.
func TestRequestedTTLClampedToCeiling(t *testing.T) {
	vk := fixtureVK(t)
	now := time.Unix(1_700_000_000, 0)

	cases := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{"above ceiling", 100 * time.Hour, 24 * time.Hour},
		{"zero request", 0, 24 * time.Hour},
		{"under ceiling", time.Hour, time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := newTestVerifier(t, vk, now)
			claimDigest := [32]byte{byte(len(tc.name))}
			journalBytes := journal.EncodeIncomeThreshold(e1Journal())
			sealBytes := buildSeal(t, vk, claimDigest, [4]byte{0xDE, 0xAD, 0xBE, 0xEF}, journalBytes)

			req := VerifyRequest{
				Family:            journal.FamilyIncomeThreshold,
				SealBytes:         sealBytes,
				ClaimDigest:       claimDigest,
				Params:            journal.IncomeThresholdParams{Threshold: 5000},
				HistoryCommitment: e1HistoryCommitment(),
				RequestedTTL:      tc.requested,
			}
			result, failure := v.Verify(req)
			if failure != nil {
				t.Fatalf("verify failed: %v", failure)
			}
			if got := result.Expiry.Sub(now); got != tc.want {
				t.Fatalf("expiry-now = %v, want %v", got, tc.want)
			}
		})
	}
}
