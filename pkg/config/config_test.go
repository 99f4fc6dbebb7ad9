// Copyright 2025 Near Private Payroll
//
// Unit tests for configuration loading

package config

import (
	"os"
	"testing"
)

func TestValidateRequiresJWTSecret(t *testing.T) {
	cfg := &Config{DBName: "zkverifier_audit"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error with no JWT_SECRET")
	}
	cfg.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for a JWT secret under 32 characters")
	}
	cfg.JWTSecret = "this-is-a-sufficiently-long-secret-value"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRequiresFirebaseProjectWhenFirestoreEnabled(t *testing.T) {
	cfg := &Config{
		DBName:    "zkverifier_audit",
		JWTSecret: "this-is-a-sufficiently-long-secret-value",
		FirestoreEnabled: true,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error when Firestore is enabled without a project id")
	}
	cfg.FirebaseProjectID = "my-project"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestLoadReadsEnvOverrides(t *testing.T) {
	os.Setenv("API_PORT", "9999")
	defer os.Unsetenv("API_PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9999" {
		t.Fatalf("ListenAddr = %q, want 0.0.0.0:9999", cfg.ListenAddr)
	}
}

func TestDurationMarshalYAML(t *testing.T) {
	d := Duration(0)
	out, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML: %v", err)
	}
	if out != "0s" {
		t.Fatalf("MarshalYAML(0) = %v, want 0s", out)
	}
}
