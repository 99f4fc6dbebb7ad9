// Copyright 2025 Near Private Payroll
//
// Verification State Machine

// Package verifier orchestrates the per-call state machine:
// DecodeSeal -> DecodePoints -> ValidateOnCurve ->
// BuildPublicInputs -> ComputeVkIc -> Pair -> DecodeJournal ->
// CheckJournalBindings -> RecordSeal -> Return(Verified). Any state may
// transition to a terminal Return(Failure); the ledger is only written in
// RecordSeal.
package verifier

import (
	"crypto/sha256"
	"errors"
	"log"
	"math/big"
	"time"

	"github.com/near-private-payroll/zkverifier/pkg/bn254"
	"github.com/near-private-payroll/zkverifier/pkg/digest"
	"github.com/near-private-payroll/zkverifier/pkg/journal"
	"github.com/near-private-payroll/zkverifier/pkg/ledger"
)

// Mode selects whether Verify runs the full Groth16 pairing pipeline or the
// DevMode short-circuit.
type Mode int

const (
	ModeGroth16 Mode = iota
	ModeDevMode
)

// VerifyRequest is the input to the verify operation.
type VerifyRequest struct {
	Family            journal.Family
	SealBytes         []byte
	ClaimDigest       [32]byte
	Params            journal.Params
	HistoryCommitment [32]byte
	RequestedTTL      time.Duration
}

// VerifiedResult is returned on success: the decoded journal and the expiry
// attached to the freshly recorded seal.
type VerifiedResult struct {
	Family  journal.Family
	Journal journal.Journal
	Expiry  time.Time
}

// Verifier ties together the pairing verifier (bn254), the public-input
// builder (digest), the journal decoder (journal), and the replay/freshness
// ledger (ledger) into a single call surface.
type Verifier struct {
	VK          bn254.VerificationKey
	Store       *ledger.Store
	TTLCeilings map[journal.Family]time.Duration
	Logger      *log.Logger

	mode Mode
	// now is overridable so tests can exercise TTL/expiry/replay behavior
	// deterministically; production leaves it nil and gets time.Now.
	now func() time.Time
}

// New constructs a Verifier in Groth16 mode.
func New(vk bn254.VerificationKey, store *ledger.Store, ttlCeilings map[journal.Family]time.Duration, logger *log.Logger) *Verifier {
	if logger == nil {
		logger = log.New(log.Writer(), "[Verifier] ", log.LstdFlags)
	}
	return &Verifier{VK: vk, Store: store, TTLCeilings: ttlCeilings, Logger: logger, mode: ModeGroth16}
}

func (v *Verifier) clock() time.Time {
	if v.now != nil {
		return v.now()
	}
	return time.Now()
}

// Mode reports the verifier's current verification mode.
func (v *Verifier) Mode() Mode { return v.mode }

// Verify runs the full per-call state machine and returns either a
// VerifiedResult or a typed Failure. No partial success state is ever
// persisted: the ledger is written only after every prior state succeeds.
func (v *Verifier) Verify(req VerifyRequest) (*VerifiedResult, *Failure) {
	if v.mode == ModeDevMode {
		return v.verifyDevMode(req)
	}
	return v.verifyGroth16(req)
}

func (v *Verifier) verifyGroth16(req VerifyRequest) (*VerifiedResult, *Failure) {
	// DecodeSeal, DecodePoints, ValidateOnCurve.
	seal, journalBytes, err := bn254.ParseSeal(req.SealBytes)
	if err != nil {
		return nil, v.terminal(req.Family, classifyBN254(err))
	}

	// ImageIdUnregistered is checked before spending pairing-check compute.
	if _, err := v.Store.ImageID(ledger.Family(req.Family)); err != nil {
		return nil, v.terminal(req.Family, fail(KindImageIdUnregistered, err))
	}

	// BuildPublicInputs.
	scalarBytes, err := digest.BuildPublicInputs(req.ClaimDigest)
	if err != nil {
		return nil, v.terminal(req.Family, fail(KindInvalidScalar, err))
	}
	var scalars [5]*big.Int
	for i, sb := range scalarBytes {
		s, err := digest.ValidateScalar(sb)
		if err != nil {
			return nil, v.terminal(req.Family, fail(KindInvalidScalar, err))
		}
		scalars[i] = s
	}

	// ComputeVkIc.
	vkIC := bn254.ComputeVkIC(v.VK.IC, scalars)

	// Pair.
	ok, err := bn254.CheckPairing(seal, v.VK, vkIC, bn254.PairOrderCanonical)
	if err != nil {
		return nil, v.terminal(req.Family, fail(KindProofInvalid, err))
	}
	if !ok {
		return nil, v.terminal(req.Family, fail(KindProofInvalid, errors.New("pairing identity does not hold")))
	}

	// DecodeJournal.
	j, err := journal.Decode(req.Family, journalBytes)
	if err != nil {
		return nil, v.terminal(req.Family, classifyJournal(err))
	}

	// CheckJournalBindings.
	if err := j.CheckParams(req.Params); err != nil {
		return nil, v.terminal(req.Family, fail(KindParamMismatch, err))
	}
	if j.HistoryCommitment() != req.HistoryCommitment {
		return nil, v.terminal(req.Family, fail(KindCommitmentMismatch, errors.New("journal history_commitment does not match caller parameter")))
	}

	// RecordSeal.
	return v.recordSeal(req, j)
}

// recordSeal implements the shared RecordSeal state for both Groth16 and
// DevMode paths: compute seal_hash, clamp the requested TTL, and insert.
func (v *Verifier) recordSeal(req VerifyRequest, j journal.Journal) (*VerifiedResult, *Failure) {
	sealHash := sha256.Sum256(req.SealBytes)
	ttl := clampTTL(req.RequestedTTL, v.TTLCeilings[req.Family])
	expiry, err := v.Store.CheckAndRecordSeal(sealHash, v.clock(), ttl)
	if err != nil {
		if errors.Is(err, ledger.ErrReplay) {
			return nil, v.terminal(req.Family, fail(KindReplay, err))
		}
		return nil, v.terminal(req.Family, fail(KindSealMalformed, err))
	}
	v.Logger.Printf("verified family=%s expiry=%s", req.Family, expiry.Format(time.RFC3339))
	return &VerifiedResult{Family: req.Family, Journal: j, Expiry: expiry}, nil
}

// terminal logs the failure kind and family only — never raw seal bytes or
// journal contents, and avoids logging at all for
// Replay to keep failed-replay probing quiet.
func (v *Verifier) terminal(family journal.Family, f *Failure) *Failure {
	if f.Kind != KindReplay {
		v.Logger.Printf("verify failed family=%s kind=%s", family, f.Kind)
	}
	return f
}

func clampTTL(requested, ceiling time.Duration) time.Duration {
	if ceiling <= 0 {
		return requested
	}
	if requested <= 0 || requested > ceiling {
		return ceiling
	}
	return requested
}

func classifyBN254(err error) *Failure {
	switch {
	case errors.Is(err, bn254.ErrInvalidPoint):
		return fail(KindInvalidPoint, err)
	case errors.Is(err, bn254.ErrInvalidScalar):
		return fail(KindInvalidScalar, err)
	case errors.Is(err, bn254.ErrSealMalformed):
		return fail(KindSealMalformed, err)
	default:
		return fail(KindSealMalformed, err)
	}
}

func classifyJournal(err error) *Failure {
	if errors.Is(err, journal.ErrParamMismatch) {
		return fail(KindParamMismatch, err)
	}
	return fail(KindJournalMalformed, err)
}
