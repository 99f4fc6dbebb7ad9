// Copyright 2025 Near Private Payroll
//
// Journal Decoder
// Fixed-layout little-endian journal codecs per proof family

// Package journal decodes the fixed-layout little-endian journal a guest
// program commits to, per proof family. No length prefixes, no variable
// framing: every field is at a fixed offset and width.
package journal

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformed is returned on any length mismatch or out-of-range boolean
// byte while decoding a journal.
var ErrMalformed = errors.New("journal: malformed")

// ErrParamMismatch is returned when a journal's declared public parameter
// disagrees with the caller-supplied parameter of the same name.
var ErrParamMismatch = errors.New("journal: param mismatch")

// Family selects the journal schema and parameter type.
type Family int

const (
	FamilyIncomeThreshold Family = iota
	FamilyIncomeRange
	FamilyCreditScore
	FamilyPayment
	FamilyBalance
)

func (f Family) String() string {
	switch f {
	case FamilyIncomeThreshold:
		return "IncomeThreshold"
	case FamilyIncomeRange:
		return "IncomeRange"
	case FamilyCreditScore:
		return "CreditScore"
	case FamilyPayment:
		return "Payment"
	case FamilyBalance:
		return "Balance"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Journal is the decoded, family-specific public-output record. Every
// implementation exposes the two fields the core checks on every call:
// the history commitment binding and the payment count used for audit.
type Journal interface {
	HistoryCommitment() [32]byte
	PaymentCount() uint32
	// CheckParams compares this journal's declared parameters against the
	// caller-supplied params, returning ErrParamMismatch on disagreement.
	CheckParams(params Params) error
}

// Params is implemented by each family's caller-supplied public-parameter
// bag.
type Params interface {
	family() Family
}

func decodeBool(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: boolean byte must be 0 or 1, got %d", ErrMalformed, b)
	}
}

func encodeBool(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// --- IncomeThreshold: threshold u64 || meets u8 || payment_count u32 || history_commitment [32]byte (45 bytes)

const incomeThresholdLen = 8 + 1 + 4 + 32

type IncomeThreshold struct {
	Threshold    uint64
	Meets        bool
	paymentCount uint32
	commitment   [32]byte
}

func (j IncomeThreshold) HistoryCommitment() [32]byte { return j.commitment }
func (j IncomeThreshold) PaymentCount() uint32         { return j.paymentCount }

func (j IncomeThreshold) CheckParams(params Params) error {
	p, ok := params.(IncomeThresholdParams)
	if !ok {
		return fmt.Errorf("%w: expected IncomeThreshold params", ErrParamMismatch)
	}
	if p.Threshold != j.Threshold {
		return fmt.Errorf("%w: threshold %d != journal %d", ErrParamMismatch, p.Threshold, j.Threshold)
	}
	return nil
}

// IncomeThresholdParams is the caller-supplied public parameter bag for the
// IncomeThreshold family.
type IncomeThresholdParams struct{ Threshold uint64 }

func (IncomeThresholdParams) family() Family { return FamilyIncomeThreshold }

// DecodeIncomeThreshold decodes the 45-byte IncomeThreshold journal layout.
func DecodeIncomeThreshold(buf []byte) (IncomeThreshold, error) {
	var out IncomeThreshold
	if len(buf) != incomeThresholdLen {
		return out, fmt.Errorf("%w: IncomeThreshold journal must be %d bytes, got %d", ErrMalformed, incomeThresholdLen, len(buf))
	}
	out.Threshold = binary.LittleEndian.Uint64(buf[0:8])
	meets, err := decodeBool(buf[8])
	if err != nil {
		return out, err
	}
	out.Meets = meets
	out.paymentCount = binary.LittleEndian.Uint32(buf[9:13])
	copy(out.commitment[:], buf[13:45])
	return out, nil
}

// EncodeIncomeThreshold is the inverse of DecodeIncomeThreshold, used by
// fixture generation and round-trip tests.
func EncodeIncomeThreshold(j IncomeThreshold) []byte {
	out := make([]byte, incomeThresholdLen)
	binary.LittleEndian.PutUint64(out[0:8], j.Threshold)
	out[8] = encodeBool(j.Meets)
	binary.LittleEndian.PutUint32(out[9:13], j.paymentCount)
	copy(out[13:45], j.commitment[:])
	return out
}

// NewIncomeThreshold constructs a journal value for encoding in tests.
func NewIncomeThreshold(threshold uint64, meets bool, paymentCount uint32, commitment [32]byte) IncomeThreshold {
	return IncomeThreshold{Threshold: threshold, Meets: meets, paymentCount: paymentCount, commitment: commitment}
}

// --- IncomeRange: min u64 || max u64 || in_range u8 || payment_count u32 || history_commitment [32]byte (53 bytes)

const incomeRangeLen = 8 + 8 + 1 + 4 + 32

type IncomeRange struct {
	Min          uint64
	Max          uint64
	InRange      bool
	paymentCount uint32
	commitment   [32]byte
}

func (j IncomeRange) HistoryCommitment() [32]byte { return j.commitment }
func (j IncomeRange) PaymentCount() uint32         { return j.paymentCount }

func (j IncomeRange) CheckParams(params Params) error {
	p, ok := params.(IncomeRangeParams)
	if !ok {
		return fmt.Errorf("%w: expected IncomeRange params", ErrParamMismatch)
	}
	if p.Min != j.Min || p.Max != j.Max {
		return fmt.Errorf("%w: [min,max] (%d,%d) != journal (%d,%d)", ErrParamMismatch, p.Min, p.Max, j.Min, j.Max)
	}
	return nil
}

// IncomeRangeParams is the caller-supplied public parameter bag for the
// IncomeRange family.
type IncomeRangeParams struct{ Min, Max uint64 }

func (IncomeRangeParams) family() Family { return FamilyIncomeRange }

// DecodeIncomeRange decodes the 53-byte IncomeRange journal layout.
func DecodeIncomeRange(buf []byte) (IncomeRange, error) {
	var out IncomeRange
	if len(buf) != incomeRangeLen {
		return out, fmt.Errorf("%w: IncomeRange journal must be %d bytes, got %d", ErrMalformed, incomeRangeLen, len(buf))
	}
	out.Min = binary.LittleEndian.Uint64(buf[0:8])
	out.Max = binary.LittleEndian.Uint64(buf[8:16])
	inRange, err := decodeBool(buf[16])
	if err != nil {
		return out, err
	}
	out.InRange = inRange
	out.paymentCount = binary.LittleEndian.Uint32(buf[17:21])
	copy(out.commitment[:], buf[21:53])
	return out, nil
}

// EncodeIncomeRange is the inverse of DecodeIncomeRange.
func EncodeIncomeRange(j IncomeRange) []byte {
	out := make([]byte, incomeRangeLen)
	binary.LittleEndian.PutUint64(out[0:8], j.Min)
	binary.LittleEndian.PutUint64(out[8:16], j.Max)
	out[16] = encodeBool(j.InRange)
	binary.LittleEndian.PutUint32(out[17:21], j.paymentCount)
	copy(out[21:53], j.commitment[:])
	return out
}

// NewIncomeRange constructs a journal value for encoding in tests.
func NewIncomeRange(min, max uint64, inRange bool, paymentCount uint32, commitment [32]byte) IncomeRange {
	return IncomeRange{Min: min, Max: max, InRange: inRange, paymentCount: paymentCount, commitment: commitment}
}

// --- CreditScore: threshold u32 || meets u8 || payment_count u32 || history_commitment [32]byte (41 bytes)

const creditScoreLen = 4 + 1 + 4 + 32

type CreditScore struct {
	Threshold    uint32
	Meets        bool
	paymentCount uint32
	commitment   [32]byte
}

func (j CreditScore) HistoryCommitment() [32]byte { return j.commitment }
func (j CreditScore) PaymentCount() uint32         { return j.paymentCount }

func (j CreditScore) CheckParams(params Params) error {
	p, ok := params.(CreditScoreParams)
	if !ok {
		return fmt.Errorf("%w: expected CreditScore params", ErrParamMismatch)
	}
	if p.Threshold != j.Threshold {
		return fmt.Errorf("%w: threshold %d != journal %d", ErrParamMismatch, p.Threshold, j.Threshold)
	}
	return nil
}

// CreditScoreParams is the caller-supplied public parameter bag for the
// CreditScore family.
type CreditScoreParams struct{ Threshold uint32 }

func (CreditScoreParams) family() Family { return FamilyCreditScore }

// DecodeCreditScore decodes the 41-byte CreditScore journal layout.
func DecodeCreditScore(buf []byte) (CreditScore, error) {
	var out CreditScore
	if len(buf) != creditScoreLen {
		return out, fmt.Errorf("%w: CreditScore journal must be %d bytes, got %d", ErrMalformed, creditScoreLen, len(buf))
	}
	out.Threshold = binary.LittleEndian.Uint32(buf[0:4])
	meets, err := decodeBool(buf[4])
	if err != nil {
		return out, err
	}
	out.Meets = meets
	out.paymentCount = binary.LittleEndian.Uint32(buf[5:9])
	copy(out.commitment[:], buf[9:41])
	return out, nil
}

// EncodeCreditScore is the inverse of DecodeCreditScore.
func EncodeCreditScore(j CreditScore) []byte {
	out := make([]byte, creditScoreLen)
	binary.LittleEndian.PutUint32(out[0:4], j.Threshold)
	out[4] = encodeBool(j.Meets)
	binary.LittleEndian.PutUint32(out[5:9], j.paymentCount)
	copy(out[9:41], j.commitment[:])
	return out
}

// NewCreditScore constructs a journal value for encoding in tests.
func NewCreditScore(threshold uint32, meets bool, paymentCount uint32, commitment [32]byte) CreditScore {
	return CreditScore{Threshold: threshold, Meets: meets, paymentCount: paymentCount, commitment: commitment}
}

// ErrFamilyUnregistered is returned by Decode for a family whose journal
// codec has not been wired (Payment, Balance as of this release). This is
// the fail-closed behavior for families that are registrable but have no
// pinned byte layout yet.
var ErrFamilyUnregistered = errors.New("journal: no codec registered for family")

// Decode dispatches to the family-specific decoder.
func Decode(family Family, buf []byte) (Journal, error) {
	switch family {
	case FamilyIncomeThreshold:
		return DecodeIncomeThreshold(buf)
	case FamilyIncomeRange:
		return DecodeIncomeRange(buf)
	case FamilyCreditScore:
		return DecodeCreditScore(buf)
	case FamilyPayment, FamilyBalance:
		return nil, fmt.Errorf("%w: %s", ErrFamilyUnregistered, family)
	default:
		return nil, fmt.Errorf("%w: unknown family %v", ErrMalformed, family)
	}
}
