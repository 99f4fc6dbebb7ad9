// Copyright 2025 Near Private Payroll
//
// ZK Setup CLI
// Generates Groth16 setup artifacts for the claim-binding wrap circuit

// zk-setup runs the one-time Groth16 trusted setup for the claim-binding
// wrap circuit and writes the artifacts the prover and verifier consume:
// the proving key, gnark verification key, constraint system, and the
// verification key in the verifier's little-endian wire form.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/near-private-payroll/zkverifier/pkg/proofpipeline"
)

func main() {
	pkPath := flag.String("pk", "zk-setup.pk", "output path for the proving key")
	vkPath := flag.String("vk", "zk-setup.vk", "output path for the gnark verification key")
	csPath := flag.String("cs", "zk-setup.r1cs", "output path for the constraint system")
	wireVKPath := flag.String("wire-vk", "zk-setup.wirevk.hex", "output path for the wire-form (LE) verification key, hex-encoded")
	flag.Parse()

	if err := run(*pkPath, *vkPath, *csPath, *wireVKPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(pkPath, vkPath, csPath, wireVKPath string) error {
	prover := proofpipeline.NewShrinkWrapProver()

	fmt.Println("Compiling circuit and running Groth16 setup (this takes a while)...")
	if err := prover.Initialize(); err != nil {
		return err
	}

	if err := prover.SaveKeys(pkPath, vkPath, csPath); err != nil {
		return err
	}

	wireVK, err := prover.ExportWireVerificationKey()
	if err != nil {
		return err
	}
	if err := os.WriteFile(wireVKPath, []byte(hex.EncodeToString(wireVK)), 0o644); err != nil {
		return fmt.Errorf("write wire verification key: %w", err)
	}

	fmt.Printf("Proving key:        %s\n", pkPath)
	fmt.Printf("Verification key:   %s\n", vkPath)
	fmt.Printf("Constraint system:  %s\n", csPath)
	fmt.Printf("Wire-form VK:       %s (%d bytes)\n", wireVKPath, len(wireVK))
	fmt.Printf("Seal selector:      %x\n", proofpipeline.SelectorFor(wireVK))
	return nil
}
