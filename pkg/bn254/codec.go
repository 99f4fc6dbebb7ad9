// Copyright 2025 Near Private Payroll
//
// BN254 Point Codec
// Little-endian G1/G2 parsing with strict field-range validation

package bn254

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// parseFieldElementLE decodes a 32-byte little-endian field element, strictly
// rejecting values >= p. The LE buffer is byte-reversed exactly once here to
// hand gnark-crypto its native big-endian SetBytes entry point.
func parseFieldElementLE(buf []byte) (fp.Element, error) {
	var zero fp.Element
	if len(buf) != 32 {
		return zero, fmt.Errorf("%w: field element must be 32 bytes, got %d", ErrSealMalformed, len(buf))
	}
	v := new(big.Int).SetBytes(reverseBytes(buf))
	if v.Cmp(BaseFieldP) >= 0 {
		return zero, fmt.Errorf("%w: coordinate %s >= p", ErrInvalidPoint, v.String())
	}
	var e fp.Element
	e.SetBigInt(v)
	return e, nil
}

// ParseG1 decodes 64 raw bytes laid out as (x||y), each coordinate a 32-byte
// LE field element. No byte reversal beyond the single LE->BE crossing
// inside parseFieldElementLE; the verifier's convention is LE throughout.
func ParseG1(buf []byte) (G1Point, error) {
	var out G1Point
	if len(buf) != 64 {
		return out, fmt.Errorf("%w: G1 point must be 64 bytes, got %d", ErrSealMalformed, len(buf))
	}
	x, err := parseFieldElementLE(buf[0:32])
	if err != nil {
		return out, err
	}
	y, err := parseFieldElementLE(buf[32:64])
	if err != nil {
		return out, err
	}
	out.X = x
	out.Y = y
	if !out.G1Affine.IsOnCurve() {
		return out, fmt.Errorf("%w: G1 point not on curve", ErrInvalidPoint)
	}
	return out, nil
}

// ParseG2 decodes 128 raw bytes laid out as (X.c0, X.c1, Y.c0, Y.c1), each a
// 32-byte LE field element, c0 = real. No internal swap is applied: the
// seal's G2 layout after stripping the selector is taken as written.
func ParseG2(buf []byte) (G2Point, error) {
	var out G2Point
	if len(buf) != 128 {
		return out, fmt.Errorf("%w: G2 point must be 128 bytes, got %d", ErrSealMalformed, len(buf))
	}
	xc0, err := parseFieldElementLE(buf[0:32])
	if err != nil {
		return out, err
	}
	xc1, err := parseFieldElementLE(buf[32:64])
	if err != nil {
		return out, err
	}
	yc0, err := parseFieldElementLE(buf[64:96])
	if err != nil {
		return out, err
	}
	yc1, err := parseFieldElementLE(buf[96:128])
	if err != nil {
		return out, err
	}
	out.X.A0 = xc0
	out.X.A1 = xc1
	out.Y.A0 = yc0
	out.Y.A1 = yc1
	if !out.G2Affine.IsOnCurve() {
		return out, fmt.Errorf("%w: G2 point not on curve", ErrInvalidPoint)
	}
	if !out.G2Affine.IsInSubGroup() {
		return out, fmt.Errorf("%w: G2 point not in correct subgroup", ErrInvalidPoint)
	}
	return out, nil
}

// ParseSeal strips the 4-byte selector and decodes the 256-byte Groth16
// proof (A, B, C). Journal bytes, if present,
// begin immediately after the 260th byte and are not touched here.
func ParseSeal(sealBytes []byte) (Seal, []byte, error) {
	var out Seal
	if len(sealBytes) < MinSealBytesLen {
		return out, nil, fmt.Errorf("%w: seal_bytes length %d < %d", ErrSealMalformed, len(sealBytes), MinSealBytesLen)
	}
	body := sealBytes[SelectorLen:]
	a, err := ParseG1(body[0:64])
	if err != nil {
		return out, nil, err
	}
	b, err := ParseG2(body[64:192])
	if err != nil {
		return out, nil, err
	}
	c, err := ParseG1(body[192:256])
	if err != nil {
		return out, nil, err
	}
	out.A, out.B, out.C = a, b, c
	journal := sealBytes[MinSealBytesLen:]
	return out, journal, nil
}

// EncodeG1 writes a G1 point back to the 64-byte LE wire layout. Used for
// deterministic fixture generation and conformance tests, never on the
// accept path.
func EncodeG1(p G1Point) []byte {
	out := make([]byte, 64)
	xBytes := p.X.Bytes()
	yBytes := p.Y.Bytes()
	copy(out[0:32], reverseBytes(xBytes[:]))
	copy(out[32:64], reverseBytes(yBytes[:]))
	return out
}
