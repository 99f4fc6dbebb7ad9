// Copyright 2025 Near Private Payroll
//
// Service Configuration
// Environment-driven configuration with fail-fast validation

// Package config loads process configuration from environment variables,
// fail-fast on anything a production deployment cannot safely default.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the verifier service.
type Config struct {
	// Server Configuration
	ListenAddr  string
	MetricsAddr string
	HealthAddr  string

	// KV ledger backend (pkg/kvdb-wrapped CometBFT-DB).
	LedgerDBBackend string // "memdb" for in-memory; any other value opens goleveldb
	LedgerDBName    string
	LedgerDBDir     string

	// Postgres audit mirror (pkg/audit), optional.
	AuditDBEnabled    bool
	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Firestore audit mirror (pkg/audit), optional.
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Family bootstrap: path to the YAML file describing image ids and TTL
	// ceilings per proof family, loaded by LoadFamilyBootstrap.
	FamilyBootstrapPath string

	// Proof pipeline (component P) upstream, optional.
	ProofPipelineURL     string
	ProofPipelineTimeout time.Duration

	// Operational
	LogLevel string
	DevMode  bool

	// Security
	JWTSecret   string
	CORSOrigins []string

	RateLimitRequests int
	RateLimitWindow   int
}

// Load reads configuration from environment variables. Required variables
// have no defaults; call Validate after Load to enforce that.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),
		HealthAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("HEALTH_CHECK_PORT", "8081"),

		LedgerDBBackend: getEnv("LEDGER_DB_BACKEND", "goleveldb"),
		LedgerDBName:    getEnv("LEDGER_DB_NAME", "zkverifier"),
		LedgerDBDir:     getEnv("LEDGER_DB_DIR", "./data"),

		AuditDBEnabled:    getEnvBool("AUDIT_DB_ENABLED", false),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnvInt("DB_PORT", 5432),
		DBUser:            getEnv("DB_USER", "zkverifier"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            getEnv("DB_NAME", "zkverifier_audit"),
		DBSSLMode:         getEnv("DB_SSL_MODE", "require"),
		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),

		FirestoreEnabled:        getEnvBool("FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		FamilyBootstrapPath: getEnv("FAMILY_BOOTSTRAP_PATH", "./config/families.yaml"),

		ProofPipelineURL:     getEnv("PROOF_PIPELINE_URL", ""),
		ProofPipelineTimeout: getEnvDuration("PROOF_PIPELINE_TIMEOUT", 30*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvBool("DEV_MODE", false),

		JWTSecret:   getEnv("JWT_SECRET", ""),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvInt("RATE_LIMIT_WINDOW", 60),
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and secure.
// Must be called after Load before starting the service in production.
func (c *Config) Validate() error {
	var errs []string

	if c.AuditDBEnabled && c.DBName == "" {
		errs = append(errs, "DB_NAME is required when AUDIT_DB_ENABLED=true")
	}
	if c.FirestoreEnabled && c.FirebaseProjectID == "" {
		errs = append(errs, "FIREBASE_PROJECT_ID is required when FIRESTORE_ENABLED=true")
	}
	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required but not set")
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters for security")
	}
	if c.DevMode {
		// DevMode bypasses the pairing check entirely; production
		// deployments must opt in explicitly, never by omission.
		fmt.Println("WARNING: DEV_MODE is true — the Groth16 pairing check is bypassed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
