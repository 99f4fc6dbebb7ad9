// Copyright 2025 Near Private Payroll
//
// Postgres Audit Sink
// Connection pooling, embedded migrations, append-only event rows

package audit

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/near-private-payroll/zkverifier/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresSink writes verification events to a Postgres audit table with
// connection pooling.
type PostgresSink struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresSink opens the connection pool, verifies connectivity, and
// applies the embedded migrations.
func NewPostgresSink(cfg *config.Config, logger *log.Logger) (*PostgresSink, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[AuditDB] ", log.LstdFlags)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping database: %w", err)
	}

	sink := &PostgresSink{db: db, logger: logger}
	if err := sink.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Printf("connected to audit database (max_conns=%d)", cfg.DBMaxOpenConns)
	return sink, nil
}

// migrate applies the embedded migration files in lexical order. Every
// statement is idempotent (IF NOT EXISTS), so re-running on startup is safe.
func (s *PostgresSink) migrate(ctx context.Context) error {
	entries, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("audit: list migrations: %w", err)
	}
	sort.Strings(entries)
	for _, name := range entries {
		raw, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("audit: read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(raw)); err != nil {
			return fmt.Errorf("audit: apply migration %s: %w", name, err)
		}
	}
	return nil
}

// RecordVerification inserts one event row.
func (s *PostgresSink) RecordVerification(ctx context.Context, ev Event) error {
	var expiry sql.NullTime
	if !ev.Expiry.IsZero() {
		expiry = sql.NullTime{Time: ev.Expiry, Valid: true}
	}
	var sealHash sql.NullString
	if ev.SealHashHex != "" {
		sealHash = sql.NullString{String: ev.SealHashHex, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO verification_events
		   (request_id, family, outcome, seal_hash, payment_count, expiry, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.RequestID, ev.Family, ev.Outcome, sealHash, ev.PaymentCount, expiry, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: insert verification event: %w", err)
	}
	return nil
}

// Ping verifies the pool is alive.
func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *PostgresSink) Close() error {
	s.logger.Println("closing audit database connection")
	return s.db.Close()
}
