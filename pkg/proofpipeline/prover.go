// Copyright 2025 Near Private Payroll
//
// Shrink-Wrap Prover
// Groth16 proving, setup artifacts, and wire-format seal assembly

package proofpipeline

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/near-private-payroll/zkverifier/pkg/bn254"
	"github.com/near-private-payroll/zkverifier/pkg/digest"
)

// ShrinkWrapProver holds the compiled ClaimBindingCircuit and its Groth16
// keys, and turns claim digests into wire-format seals the verifier accepts.
type ShrinkWrapProver struct {
	mu sync.RWMutex

	cs constraint.ConstraintSystem
	pk groth16.ProvingKey
	vk groth16.VerifyingKey

	initialized bool
}

// NewShrinkWrapProver creates an uninitialized prover. Call Initialize (dev,
// in-process trusted setup) or InitializeFromKeys (production, pre-generated
// setup artifacts) before proving.
func NewShrinkWrapProver() *ShrinkWrapProver {
	return &ShrinkWrapProver{}
}

// Initialize compiles the circuit and runs an in-process Groth16 setup.
// One-time and slow; production deployments use InitializeFromKeys with
// artifacts produced by cmd/zk-setup instead.
func (p *ShrinkWrapProver) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	var circuit ClaimBindingCircuit
	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return fmt.Errorf("compile circuit: %w", err)
	}
	p.cs = cs

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return fmt.Errorf("groth16 setup: %w", err)
	}
	p.pk = pk
	p.vk = vk

	p.initialized = true
	return nil
}

// InitializeFromKeys loads pre-generated setup artifacts from disk.
func (p *ShrinkWrapProver) InitializeFromKeys(pkPath, vkPath, csPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	csFile, err := os.Open(csPath)
	if err != nil {
		return fmt.Errorf("open constraint system: %w", err)
	}
	defer csFile.Close()
	cs := groth16.NewCS(ecc.BN254)
	if _, err := cs.ReadFrom(csFile); err != nil {
		return fmt.Errorf("read constraint system: %w", err)
	}
	p.cs = cs

	pkFile, err := os.Open(pkPath)
	if err != nil {
		return fmt.Errorf("open proving key: %w", err)
	}
	defer pkFile.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(pkFile); err != nil {
		return fmt.Errorf("read proving key: %w", err)
	}
	p.pk = pk

	vkFile, err := os.Open(vkPath)
	if err != nil {
		return fmt.Errorf("open verification key: %w", err)
	}
	defer vkFile.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(vkFile); err != nil {
		return fmt.Errorf("read verification key: %w", err)
	}
	p.vk = vk

	p.initialized = true
	return nil
}

// SaveKeys persists the setup artifacts for later InitializeFromKeys calls.
func (p *ShrinkWrapProver) SaveKeys(pkPath, vkPath, csPath string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return errors.New("prover not initialized")
	}

	csFile, err := os.Create(csPath)
	if err != nil {
		return fmt.Errorf("create constraint system file: %w", err)
	}
	defer csFile.Close()
	if _, err := p.cs.WriteTo(csFile); err != nil {
		return fmt.Errorf("write constraint system: %w", err)
	}

	pkFile, err := os.Create(pkPath)
	if err != nil {
		return fmt.Errorf("create proving key file: %w", err)
	}
	defer pkFile.Close()
	if _, err := p.pk.WriteTo(pkFile); err != nil {
		return fmt.Errorf("write proving key: %w", err)
	}

	vkFile, err := os.Create(vkPath)
	if err != nil {
		return fmt.Errorf("create verification key file: %w", err)
	}
	defer vkFile.Close()
	if _, err := p.vk.WriteTo(vkFile); err != nil {
		return fmt.Errorf("write verification key: %w", err)
	}

	return nil
}

// scalarFromLE interprets a 32-byte little-endian buffer as a big integer.
func scalarFromLE(buf [32]byte) *big.Int {
	rev := make([]byte, 32)
	for i, b := range buf {
		rev[31-i] = b
	}
	return new(big.Int).SetBytes(rev)
}

// Seal generates a Groth16 proof binding claimDigest and wraps it in the
// wire layout the verifier parses: 4-byte selector || A (64) || B (128) ||
// C (64) || journal. The selector identifies the wrapping circuit release
// via the verification key digest.
func (p *ShrinkWrapProver) Seal(claimDigest [32]byte, journal []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return nil, errors.New("prover not initialized")
	}

	scalars, err := digest.BuildPublicInputs(claimDigest)
	if err != nil {
		return nil, fmt.Errorf("build public inputs: %w", err)
	}

	assignment := &ClaimBindingCircuit{
		ControlRootLo:   scalarFromLE(scalars[0]),
		ControlRootHi:   scalarFromLE(scalars[1]),
		ClaimDigestLo:   scalarFromLE(scalars[2]),
		ClaimDigestHi:   scalarFromLE(scalars[3]),
		ControlID:       scalarFromLE(scalars[4]),
		ReceiptDigestLo: scalarFromLE(scalars[2]),
		ReceiptDigestHi: scalarFromLE(scalars[3]),
	}

	witnessData, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("create witness: %w", err)
	}

	proof, err := groth16.Prove(p.cs, p.pk, witnessData)
	if err != nil {
		return nil, fmt.Errorf("generate proof: %w", err)
	}

	proofBN254, ok := proof.(*groth16_bn254.Proof)
	if !ok {
		return nil, errors.New("proof is not a bn254 Groth16 proof")
	}

	vkWire, err := p.exportWireVKLocked()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, bn254.MinSealBytesLen+len(journal))
	out = append(out, SelectorFor(vkWire)...)
	out = append(out, bn254.EncodeG1(bn254.G1Point{G1Affine: proofBN254.Ar})...)
	out = append(out, bn254.EncodeG2(bn254.G2Point{G2Affine: proofBN254.Bs})...)
	out = append(out, bn254.EncodeG1(bn254.G1Point{G1Affine: proofBN254.Krs})...)
	out = append(out, journal...)
	return out, nil
}

// ExportWireVerificationKey returns the verification key in the verifier's
// 832-byte little-endian wire form.
func (p *ShrinkWrapProver) ExportWireVerificationKey() ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exportWireVKLocked()
}

func (p *ShrinkWrapProver) exportWireVKLocked() ([]byte, error) {
	if !p.initialized {
		return nil, errors.New("prover not initialized")
	}
	vkBN254, ok := p.vk.(*groth16_bn254.VerifyingKey)
	if !ok {
		return nil, errors.New("verification key is not a bn254 Groth16 key")
	}
	if len(vkBN254.G1.K) != 6 {
		return nil, fmt.Errorf("verification key has %d IC points, want 6", len(vkBN254.G1.K))
	}

	var vk bn254.VerificationKey
	vk.Alpha = bn254.G1Point{G1Affine: vkBN254.G1.Alpha}
	vk.Beta = bn254.G2Point{G2Affine: vkBN254.G2.Beta}
	vk.Gamma = bn254.G2Point{G2Affine: vkBN254.G2.Gamma}
	vk.Delta = bn254.G2Point{G2Affine: vkBN254.G2.Delta}
	for i := 0; i < 6; i++ {
		vk.IC[i] = bn254.G1Point{G1Affine: vkBN254.G1.K[i]}
	}
	return bn254.EncodeVerificationKey(vk), nil
}

// SelectorFor derives the 4-byte wrapping-family selector from a wire-form
// verification key: the first 4 bytes of its Keccak-256 digest. Every seal
// produced under one circuit release carries the same selector, so a
// verifier fed a seal from a different release fails at the pairing, not by
// accident of framing.
func SelectorFor(vkWire []byte) []byte {
	return ethcrypto.Keccak256(vkWire)[:4]
}
