// Copyright 2025 Near Private Payroll
//
// Unit tests for history commitments

package commitment

import "testing"

func TestHistoryMutationChangesCommitment(t *testing.T) {
	c1 := [32]byte{1}
	c2 := [32]byte{2}
	base := History([][32]byte{c1, c2})

	mutated := c1
	mutated[17] ^= 0x01
	withMutation := History([][32]byte{mutated, c2})

	if base == withMutation {
		t.Fatalf("mutating a payment commitment byte did not change the history commitment")
	}
}

func TestHistoryReorderChangesCommitment(t *testing.T) {
	c1 := [32]byte{1}
	c2 := [32]byte{2}
	forward := History([][32]byte{c1, c2})
	reversed := History([][32]byte{c2, c1})
	if forward == reversed {
		t.Fatalf("reordering payment commitments did not change the history commitment")
	}
}

func TestHistorySingleZeroCommitment(t *testing.T) {
	// E1's fixture: history computed from a single zero 32-byte payment
	// commitment under the v1 domain tag.
	got := History([][32]byte{{}})
	if got == ([32]byte{}) {
		t.Fatalf("domain-tagged hash of a zero commitment must not itself be zero")
	}
}

func TestHistoryDeterministic(t *testing.T) {
	cs := [][32]byte{{1}, {2}, {3}}
	a := History(cs)
	b := History(cs)
	if a != b {
		t.Fatalf("History is not deterministic across calls")
	}
}
