// Copyright 2025 Near Private Payroll
//
// Dev Mode Gate

package verifier

import (
	"errors"

	"github.com/near-private-payroll/zkverifier/pkg/journal"
)

// ErrDevModeRefused is returned when SetMode(ModeDevMode) is rejected
// because a real SealRecord already exists. DevMode is a footgun: allowing
// it once production history has accumulated would let a bypassed proof
// shadow real verified assertions.
var ErrDevModeRefused = errors.New("verifier: devmode refused, seal records already exist")

// SetMode switches between ModeGroth16 and ModeDevMode. Switching into
// DevMode is refused once any SealRecord exists; switching back
// to Groth16 is always allowed.
func (v *Verifier) SetMode(mode Mode) error {
	if mode == ModeDevMode {
		count, err := v.Store.SealRecordCount()
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDevModeRefused
		}
	}
	v.mode = mode
	return nil
}

// verifyDevMode bypasses seal parsing and the pairing check entirely.
// The caller's SealBytes is taken as the raw journal for the family
// directly — there is no Groth16 proof to strip a selector and body from.
// The image-id registration check is skipped as well. Journal decode,
// param and commitment bindings, and replay/freshness recording still run.
func (v *Verifier) verifyDevMode(req VerifyRequest) (*VerifiedResult, *Failure) {
	j, err := journal.Decode(req.Family, req.SealBytes)
	if err != nil {
		return nil, v.terminal(req.Family, classifyJournal(err))
	}
	if err := j.CheckParams(req.Params); err != nil {
		return nil, v.terminal(req.Family, fail(KindParamMismatch, err))
	}
	if j.HistoryCommitment() != req.HistoryCommitment {
		return nil, v.terminal(req.Family, fail(KindCommitmentMismatch, errors.New("journal history_commitment does not match caller parameter")))
	}
	return v.recordSeal(req, j)
}
